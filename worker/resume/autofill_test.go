package resume_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"auto_resume_go/formfill"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
	"auto_resume_go/resolver/domtest"
	"auto_resume_go/worker/resume"
)

const resumePage = `<html><body>
<div id="app"><div class="layout"><div class="main"><div class="resume">
  <div class="section personal">
    <div class="header"><h3 data-box="100,100,80,20">个人信息</h3></div>
    <div class="item">
      <label data-box="100,140,60,20">姓名</label>
      <input class="name" data-box="180,140,200,20">
    </div>
  </div>
  <div class="section project">
    <div class="header">
      <h3 data-box="100,300,80,20">项目经历</h3>
      <a class="add" data-reveal="proj" data-box="600,300,40,20">添加</a>
    </div>
  </div>
  <div class="form-modal" data-hidden-until="proj" data-box="500,400,600,300">
    <div class="item">
      <label data-box="520,420,80,20">项目名称</label>
      <input class="project-name" data-box="620,420,200,20">
    </div>
    <div class="item">
      <label data-box="520,460,80,20">开始时间</label>
      <input class="start-year" data-box="620,460,90,20">
      <input class="start-month" data-box="720,460,90,20">
    </div>
    <div class="footer"><button data-close="proj" data-box="900,650,60,30">保存</button></div>
  </div>
</div></div></div></div>
</body></html>`

// 个人信息区域也有自己的保存按钮
var twoSavePage = strings.Replace(resumePage,
	`<h3 data-box="100,100,80,20">个人信息</h3>`,
	`<h3 data-box="100,100,80,20">个人信息</h3><button class="personal-save" data-box="300,100,60,20">保存</button>`, 1)

func newAutofiller(t *testing.T, page *domtest.Page) *resume.Autofiller {
	t.Helper()
	logger, _ := test.NewNullLogger()
	entry := logger.WithField("component", "test")
	res := resolver.New(page, resolver.DefaultOptions(), entry)
	filler := formfill.New(res, formfill.DefaultOptions(), entry)
	return resume.NewAutofiller(filler, resume.DefaultAutofillOptions(), entry)
}

func fieldSpec(label string, optional bool, values ...string) model.FieldSpec {
	return model.FieldSpec{Labels: model.StringList{label}, Values: values, Optional: optional}
}

func TestAutofillRun(t *testing.T) {
	page := domtest.MustParse(resumePage)
	a := newAutofiller(t, page)

	data := &model.Resume{
		PersonalInfo: &model.Section{
			TitleLabels: model.StringList{"个人信息"},
			Fields: []model.FieldSpec{
				fieldSpec("姓名", false, "张三"),
				fieldSpec("微信号", true, "zhangsan"),
			},
		},
		ProjectExperiences: []model.Section{{
			TitleLabels:         model.StringList{"项目经历"},
			AddButtonLabels:     model.StringList{"添加"},
			FirstFormFieldLabel: "项目名称",
			Fields: []model.FieldSpec{
				fieldSpec("项目名称", false, "简历助手"),
				fieldSpec("开始时间", false, "2024", "06"),
			},
		}},
		InternshipExperiences: []model.Section{{
			TitleLabels:     model.StringList{"实习经历"},
			AddButtonLabels: model.StringList{"添加"},
			Fields:          []model.FieldSpec{fieldSpec("公司名称", false, "某公司")},
		}},
	}

	summary := a.Run(context.Background(), data)
	if len(summary.Sessions) != 3 {
		t.Fatalf("sessions = %d, want 3", len(summary.Sessions))
	}
	if summary.Aborted() != 1 {
		t.Errorf("aborted = %d, want 1", summary.Aborted())
	}

	personal := summary.Sessions[0]
	if personal.Filled() != 1 || len(personal.Fields) != 2 {
		t.Errorf("personal filled %d of %d, want 1 of 2", personal.Filled(), len(personal.Fields))
	}
	if personal.SavedVia != resolver.KeyEscape {
		t.Errorf("personal saved via %q, want Escape", personal.SavedVia)
	}
	if got := page.ValueOf("input.name"); got != "张三" {
		t.Errorf("name = %q", got)
	}

	project := summary.Sessions[1]
	if project.Err != nil {
		t.Fatalf("project failed: %v", project.Err)
	}
	if project.Container == "" {
		t.Error("form container should be detected")
	}
	if project.SavedVia != "保存" {
		t.Errorf("project saved via %q, want 保存", project.SavedVia)
	}
	if project.Filled() != 2 {
		t.Errorf("project filled = %d, want 2", project.Filled())
	}
	for sel, want := range map[string]string{
		"input.project-name": "简历助手",
		"input.start-year":   "2024",
		"input.start-month":  "06",
	} {
		if got := page.ValueOf(sel); got != want {
			t.Errorf("%s = %q, want %q", sel, got, want)
		}
	}
	if page.Revealed("proj") {
		t.Error("save button should close the form")
	}

	internship := summary.Sessions[2]
	if !errors.Is(internship.Err, resolver.ErrNotFound) {
		t.Errorf("internship err = %v, want ErrNotFound", internship.Err)
	}
	if len(internship.Fields) != 0 {
		t.Error("aborted record must not fill fields")
	}
}

func TestAutofillStopsWhenCancelled(t *testing.T) {
	page := domtest.MustParse(resumePage)
	a := newAutofiller(t, page)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := a.Run(ctx, &model.Resume{
		ProjectExperiences: []model.Section{{TitleLabels: model.StringList{"项目经历"}}},
	})
	if len(summary.Sessions) != 0 {
		t.Errorf("sessions = %d, want 0 after cancel", len(summary.Sessions))
	}
}

func TestFillSectionSavesOwnForm(t *testing.T) {
	page := domtest.MustParse(twoSavePage)
	a := newAutofiller(t, page)

	project := a.FillSection(context.Background(), "项目经历", 1, model.Section{
		TitleLabels:         model.StringList{"项目经历"},
		AddButtonLabels:     model.StringList{"添加"},
		FirstFormFieldLabel: "项目名称",
		Fields:              []model.FieldSpec{fieldSpec("项目名称", false, "简历助手")},
	})
	if project.Err != nil {
		t.Fatalf("project failed: %v", project.Err)
	}
	if project.SavedVia != "保存" {
		t.Errorf("saved via %q, want 保存", project.SavedVia)
	}
	if page.Revealed("proj") {
		t.Error("project form should be saved and closed")
	}
	// 个人信息保存按钮的中心点
	personalSave := "mouse:330,110"
	for _, e := range page.Events {
		if e == personalSave {
			t.Fatal("clicked the personal info save button while saving the project form")
		}
	}

	personal := a.FillSection(context.Background(), "个人信息", 1, model.Section{
		TitleLabels: model.StringList{"个人信息"},
		Fields:      []model.FieldSpec{fieldSpec("姓名", false, "张三")},
	})
	if personal.SavedVia != "保存" {
		t.Errorf("personal saved via %q, want 保存", personal.SavedVia)
	}
	if last := page.Events[len(page.Events)-1]; last != personalSave {
		t.Errorf("last event = %s, want %s", last, personalSave)
	}
}
