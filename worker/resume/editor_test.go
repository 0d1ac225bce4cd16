package resume_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"auto_resume_go/formfill"
	"auto_resume_go/resolver"
	"auto_resume_go/resolver/domtest"
	"auto_resume_go/worker/resume"
)

type savedRecord struct{ source, saved string }

type fakeRecorder struct {
	records []savedRecord
}

func (f *fakeRecorder) RecordSaved(source, saved string) error {
	f.records = append(f.records, savedRecord{source, saved})
	return nil
}

const startURL = "https://jobs.example.com/detail/42"

func newEditor(t *testing.T, page *domtest.Page, rec resume.Recorder) *resume.Editor {
	t.Helper()
	logger, _ := test.NewNullLogger()
	entry := logger.WithField("component", "test")
	res := resolver.New(page, resolver.DefaultOptions(), entry)
	filler := formfill.New(res, formfill.DefaultOptions(), entry)
	page.SetURL(startURL)
	return resume.NewEditor(filler, page, resume.DefaultEditorOptions(), rec, entry)
}

const editorPage = `<html><body>
<div class="top"><button data-navigate="https://jobs.example.com/resume/edit" data-box="800,20,60,30">编辑</button></div>
<div class="resume">
  <textarea class="short" data-box="100,100,400,40">你好</textarea>
  <textarea class="summary" data-box="100,160,400,80">负责后端服务开发，</textarea>
  <label class="agree" data-box="100,300,300,20"><input type="checkbox" class="agree-box" data-box="100,300,16,16">我已阅读并同意隐私协议</label>
  <button class="save" data-navigate="https://jobs.example.com/resume/done" data-box="100,400,80,30">保存</button>
</div>
</body></html>`

func TestEditorRefresh(t *testing.T) {
	page := domtest.MustParse(editorPage)
	rec := &fakeRecorder{}
	e := newEditor(t, page, rec)

	result, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !result.Edited || result.NewText != "负责后端服务开发。" {
		t.Errorf("edit result = %+v", result)
	}
	if got := page.ValueOf("textarea.summary"); got != "负责后端服务开发。" {
		t.Errorf("summary = %q", got)
	}
	if page.ValueOf("textarea.short") != "你好" {
		t.Error("short text must be skipped")
	}
	if !page.IsChecked("input.agree-box") {
		t.Error("agreement checkbox should be ticked")
	}
	if result.SaveKeyword != "保存" || !result.Saved {
		t.Errorf("save = %q saved=%v", result.SaveKeyword, result.Saved)
	}
	if len(rec.records) != 1 || rec.records[0].saved != "https://jobs.example.com/resume/done" {
		t.Errorf("records = %+v", rec.records)
	}
	if e.SavedCount() != 1 {
		t.Errorf("saved count = %d", e.SavedCount())
	}

	url, _ := page.URL(context.Background())
	if url != startURL {
		t.Errorf("final url = %q, want %q", url, startURL)
	}
	if !page.DialogsAccepted {
		t.Error("leave-page dialogs should be accepted before navigating back")
	}
}

func TestEditorViaUserMenu(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div class="bar"><span class="user" data-box="1700,10,80,30">个人中心</span>
  <a data-navigate="https://jobs.example.com/my/resume" data-box="1700,50,80,30">我的简历</a></div>
<textarea data-box="100,160,400,80">熟悉分布式系统</textarea>
</body></html>`)
	e := newEditor(t, page, nil)

	result, err := e.Refresh(context.Background())
	if !errors.Is(err, resume.ErrSaveNotFound) {
		t.Fatalf("err = %v, want ErrSaveNotFound", err)
	}
	if result.NewText != "熟悉分布式系统。" {
		t.Errorf("new text = %q", result.NewText)
	}
	if page.Count("move") == 0 {
		t.Error("user bar should be hovered")
	}
	if page.Count("navigate") != 1 {
		t.Errorf("navigate events = %d, want 1", page.Count("navigate"))
	}
	url, _ := page.URL(context.Background())
	if url != startURL {
		t.Errorf("final url = %q", url)
	}
}

func TestEditorUnreachable(t *testing.T) {
	page := domtest.MustParse(`<html><body><button data-box="10,10,60,30">编辑</button></body></html>`)
	e := newEditor(t, page, nil)

	_, err := e.Refresh(context.Background())
	if !errors.Is(err, resume.ErrEditorUnreachable) {
		t.Fatalf("err = %v, want ErrEditorUnreachable", err)
	}
	if page.Count("navigate") != 0 {
		t.Error("no navigation expected when the url never changed")
	}
}

func TestModifyText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"负责开发，", "负责开发。"},
		{"负责开发。", "负责开发，"},
		{"负责开发", "负责开发。"},
		{"", "。"},
	}
	for _, tt := range tests {
		if got := resume.ModifyText(tt.in); got != tt.want {
			t.Errorf("ModifyText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
