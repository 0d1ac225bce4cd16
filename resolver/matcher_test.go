package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"auto_resume_go/resolver"
	"auto_resume_go/resolver/domtest"
)

func newResolver(t *testing.T, page *domtest.Page) (*resolver.Resolver, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return resolver.New(page, resolver.DefaultOptions(), logger.WithField("component", "resolver")), hook
}

// sectionPage 标题位于 {100,200,80,20}；b1 与标题的共同祖先深度为 1，b2、b3 为 4
func sectionPage(buttons ...string) string {
	inner := ""
	outer := ""
	for _, b := range buttons {
		switch b {
		case "b1":
			outer += `<button class="b1" data-box="130,210,20,20">添加</button>`
		case "b2":
			inner += `<div class="ops"><button class="b2" data-box="130,250,20,20">添加</button></div>`
		case "b3":
			inner += `<div class="ops"><button class="b3" data-box="130,230,20,20">添加</button></div>`
		}
	}
	return fmt.Sprintf(`<html><body>
<div id="root">
  <div class="page">
    %s
    <div class="main"><div class="card"><div class="section">
      <h3 class="title" data-box="100,200,80,20">项目经历</h3>
      %s
    </div></div></div>
  </div>
</div>
</body></html>`, outer, inner)
}

func TestFindAddButtonPrefersDeepAncestorThenDistance(t *testing.T) {
	orders := [][]string{
		{"b1", "b2", "b3"},
		{"b3", "b2", "b1"},
		{"b2", "b1", "b3"},
	}
	for _, order := range orders {
		page := domtest.MustParse(sectionPage(order...))
		r, _ := newResolver(t, page)
		ctx := context.Background()

		res, err := r.FindAddButton(ctx, page.Find("h3.title"), []string{"添加"})
		if err != nil {
			t.Fatalf("order %v: FindAddButton error: %v", order, err)
		}
		if want := page.Find("button.b3"); res.Node.Key() != want.Key() {
			t.Errorf("order %v: winner = %s, want b3", order, res.Path)
		}
		if res.Score.Depth != 4 {
			t.Errorf("order %v: depth = %d, want 4", order, res.Score.Depth)
		}
		if res.Score.Distance < 29.999 || res.Score.Distance > 30.001 {
			t.Errorf("order %v: distance = %v, want 30", order, res.Score.Distance)
		}
	}
}

func TestFindAddButtonExcludesButtonsAboveOrLeftOfTitle(t *testing.T) {
	tests := []struct {
		name   string
		button string
	}{
		{"above title", `<button data-box="130,100,20,20">添加</button>`},
		{"same band left of title", `<button data-box="20,305,20,20">添加</button>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := domtest.MustParse(`<html><body><div id="root"><div><div><div><div class="section">
<h3 class="title" data-box="100,300,80,20">项目经历</h3>
<div class="ops">` + tt.button + `</div>
</div></div></div></div></div></body></html>`)
			r, _ := newResolver(t, page)

			_, err := r.FindAddButton(context.Background(), page.Find("h3.title"), []string{"添加"})
			if !errors.Is(err, resolver.ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
			var rerr *resolver.ResolveError
			if !errors.As(err, &rerr) || rerr.Query != "添加" {
				t.Errorf("err should carry the query, got %#v", err)
			}
		})
	}
}

func TestFindAddButtonZeroThresholdsAreKept(t *testing.T) {
	slightlyAbove := `<html><body><div id="root"><div><div><div><div class="section">
<h3 class="title" data-box="100,300,80,20">项目经历</h3>
<div class="ops"><button data-box="300,290,20,20">添加</button></div>
</div></div></div></div></div></body></html>`
	tests := []struct {
		name   string
		page   string
		adjust func(*resolver.Options)
		found  bool
	}{
		{"shallow ancestor dropped by default", sectionPage("b1"), func(*resolver.Options) {}, false},
		{"shallow ancestor kept with depth 0", sectionPage("b1"), func(o *resolver.Options) { o.MinAncestorDepth = 0 }, true},
		{"slightly above kept by default", slightlyAbove, func(*resolver.Options) {}, true},
		{"slightly above dropped with tolerance 0", slightlyAbove, func(o *resolver.Options) { o.ButtonAboveTolerance = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := domtest.MustParse(tt.page)
			opts := resolver.DefaultOptions()
			tt.adjust(&opts)
			logger, _ := test.NewNullLogger()
			r := resolver.New(page, opts, logger.WithField("component", "resolver"))

			_, err := r.FindAddButton(context.Background(), page.Find("h3.title"), []string{"添加"})
			if tt.found && err != nil {
				t.Fatalf("err = %v, want a match", err)
			}
			if !tt.found && !errors.Is(err, resolver.ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFindAddButtonFiltersDisabledAndOversized(t *testing.T) {
	page := domtest.MustParse(`<html><body><div id="root"><div><div><div><div class="section">
<h3 class="title" data-box="100,200,80,20">项目经历</h3>
<div class="ops">
  <button class="disabled" disabled data-box="130,230,20,20">添加</button>
  <a class="aria" aria-disabled="true" data-box="130,232,20,20">添加</a>
  <div class="overlay-btn" data-box="0,0,1900,1000">添加</div>
  <button class="ok" data-box="130,300,20,20">添加</button>
</div>
</div></div></div></div></div></body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindAddButton(context.Background(), page.Find("h3.title"), []string{"添加"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("button.ok").Key() {
		t.Errorf("winner = %s, want button.ok", res.Path)
	}
}

func TestFindAddButtonTitleNotVisible(t *testing.T) {
	page := domtest.MustParse(sectionPage("b3"))
	r, _ := newResolver(t, page)
	_, err := r.FindAddButton(context.Background(), page.Find("div.card"), []string{"添加"})
	if !errors.Is(err, resolver.ErrNotVisible) {
		t.Fatalf("err = %v, want ErrNotVisible", err)
	}
}

func TestFindSectionTitlePicksInnermostVisible(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<h2 class="hidden">项目经历</h2>
<p class="long" data-box="0,0,600,200">这里是一段很长的说明文字，其中提到了项目经历，但它不是标题，因为它实在太长了。</p>
<div class="section" data-box="0,300,800,400">
  <div class="head" data-box="0,300,800,40">
    <span class="t" data-box="10,310,80,20">项目经历</span>
    <a data-box="700,310,40,20">添加</a>
  </div>
</div>
</body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindSectionTitle(context.Background(), []string{"项目经验", "项目经历"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("span.t").Key() {
		t.Errorf("title = %s, want span.t", res.Path)
	}
	if page.Count("scroll") != 1 {
		t.Errorf("title should be scrolled into view once, events: %v", page.Events)
	}

	if _, err := r.FindSectionTitle(context.Background(), []string{"教育经历"}); !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("missing title err = %v, want ErrNotFound", err)
	}
}

const formPage = `<html><body>
<div id="app"><div class="form"><div class="body"><div class="group">
  <div class="item">
    <label data-box="100,100,80,20">公司名称</label>
    <input class="company" data-box="200,100,200,20">
  </div>
  <div class="item">
    <label data-box="100,140,80,20">职位名称</label>
    <input class="position" data-box="200,140,200,20">
  </div>
</div></div></div></div>
</body></html>`

func TestFindInputByLabel(t *testing.T) {
	page := domtest.MustParse(formPage)
	r, _ := newResolver(t, page)
	ctx := context.Background()

	tests := []struct {
		label string
		want  string
	}{
		{"公司名称", "input.company"},
		{"职位名称", "input.position"},
	}
	for _, tt := range tests {
		res, err := r.FindInputByLabel(ctx, nil, tt.label)
		if err != nil {
			t.Fatalf("%s: %v", tt.label, err)
		}
		if res.Node.Key() != page.Find(tt.want).Key() {
			t.Errorf("%s: got %s, want %s", tt.label, res.Path, tt.want)
		}
		if res.Via != resolver.ViaProximity || res.Score.Depth != 4 {
			t.Errorf("%s: via=%s depth=%d, want proximity/4", tt.label, res.Via, res.Score.Depth)
		}
	}
}

func TestFindInputByLabelScope(t *testing.T) {
	page := domtest.MustParse(formPage)
	r, _ := newResolver(t, page)

	scope := page.Find("div.item:nth-child(2)")
	res, err := r.FindInputByLabel(context.Background(), scope, "职位名称")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("input.position").Key() {
		t.Errorf("got %s, want input.position", res.Path)
	}
}

func TestFindInputByLabelForLinkageWins(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div id="app"><div><div><div>
  <div class="item">
    <label for="cname" data-box="100,100,80,20">公司名称</label>
    <input class="near" data-box="200,100,200,20">
  </div>
</div></div></div></div>
<div class="far"><input id="cname" data-box="900,900,200,20"></div>
</body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindInputByLabel(context.Background(), nil, "公司名称")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("#cname").Key() || res.Via != resolver.ViaForLinkage {
		t.Errorf("got %s via %s, want #cname via for", res.Path, res.Via)
	}
}

func TestFindInputByLabelExcludesInputsAboveLabel(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div id="app"><div class="form"><div class="body"><div class="group">
  <div class="item">
    <input class="above" data-box="200,200,200,20">
    <label data-box="100,300,80,20">项目描述</label>
  </div>
  <div class="item">
    <textarea class="below" data-box="100,330,400,80"></textarea>
  </div>
</div></div></div></div>
</body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindInputByLabel(context.Background(), nil, "项目描述")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("textarea.below").Key() {
		t.Errorf("got %s, want textarea.below", res.Path)
	}
}

func TestFindInputByLabelBreaksTiesLeftmost(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div id="app"><div><div><div>
  <div class="item">
    <label data-box="250,100,100,20">时间</label>
    <input class="month" data-box="350,140,100,20">
    <input class="year" data-box="150,140,100,20">
  </div>
</div></div></div></div>
</body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindInputByLabel(context.Background(), nil, "时间")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("input.year").Key() {
		t.Errorf("got %s, want input.year (leftmost)", res.Path)
	}
}

func TestFindInputByLabelPlaceholderFallbackIsLogged(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div id="app"><div><div><div>
  <input class="company" placeholder="请输入公司名称" data-box="200,100,200,20">
  <input class="other" placeholder="请输入职位" data-box="200,140,200,20">
</div></div></div></div>
</body></html>`)
	r, hook := newResolver(t, page)

	res, err := r.FindInputByLabel(context.Background(), nil, "公司名称")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("input.company").Key() {
		t.Errorf("got %s, want input.company", res.Path)
	}
	if res.Via != resolver.ViaPlaceholder {
		t.Errorf("via = %s, want placeholder", res.Via)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Data["via"] == resolver.ViaPlaceholder && e.Data["fallback"] == true && e.Level == log.WarnLevel {
			logged = true
		}
	}
	if !logged {
		t.Error("placeholder match should be logged as a fallback")
	}
}

func TestFindInputByLabelNotFound(t *testing.T) {
	page := domtest.MustParse(formPage)
	r, hook := newResolver(t, page)

	_, err := r.FindInputByLabel(context.Background(), nil, "毕业院校")
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if last := hook.LastEntry(); last == nil || last.Level != log.ErrorLevel || last.Data["query"] != "毕业院校" {
		t.Errorf("failure should be logged with the query, last entry: %+v", last)
	}
}

func TestFindOption(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<ul class="dropdown">
  <li class="bachelor" data-box="100,300,100,20">本科</li>
  <li class="master" data-box="100,320,100,20">硕士研究生</li>
  <li class="offscreen" data-box="100,2000,100,20">博士</li>
</ul>
</body></html>`)
	r, _ := newResolver(t, page)
	ctx := context.Background()

	res, err := r.FindOption(ctx, "硕士")
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("li.master").Key() {
		t.Errorf("got %s, want li.master", res.Path)
	}
	if _, err := r.FindOption(ctx, "博士"); !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("option below the viewport should not match, err = %v", err)
	}
}

func TestFindKeyword(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div class="footer" data-box="0,900,1000,100">
  <p class="hint" data-box="0,900,600,20">修改后请点击保存按钮</p>
  <button class="save" data-box="700,950,80,30">保存</button>
  <button class="submit" data-box="800,950,80,30">提交</button>
  <button class="deliver" disabled data-box="900,950,80,30">投递简历</button>
</div>
</body></html>`)
	r, _ := newResolver(t, page)
	ctx := context.Background()

	res, kw, err := r.FindKeyword(ctx, []string{"保存"}, resolver.KeywordOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if kw != "保存" || res.Node.Key() != page.Find("button.save").Key() {
		t.Errorf("got %s (%s), want button.save", res.Path, kw)
	}

	res, kw, err = r.FindKeyword(ctx, []string{"预览并提交", "保存", "提交", "投递简历"}, resolver.KeywordOptions{Exact: true, Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	if kw != "提交" || res.Node.Key() != page.Find("button.submit").Key() {
		t.Errorf("reverse exact got %s (%s), want button.submit", res.Path, kw)
	}

	if _, _, err := r.FindKeyword(ctx, []string{"完成"}, resolver.KeywordOptions{}); !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindFormContainer(t *testing.T) {
	page := domtest.MustParse(`<html><body>
<div id="app"><div class="form-modal" data-box="400,100,800,600"><div><div>
  <div class="item">
    <label data-box="450,150,80,20">项目名称</label>
    <input class="name" data-box="550,150,300,20">
  </div>
</div></div></div></div>
</body></html>`)
	r, _ := newResolver(t, page)

	res, err := r.FindFormContainer(context.Background(), "项目名称", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Node.Key() != page.Find("div.form-modal").Key() {
		t.Errorf("container = %s, want div.form-modal", res.Path)
	}

	_, err = r.FindFormContainer(context.Background(), "公司名称", 2*resolver.DefaultOptions().PollInterval)
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(page.Sleeps) != 3 {
		t.Errorf("polled %d times, want 3", len(page.Sleeps))
	}
}

func TestDescribe(t *testing.T) {
	page := domtest.MustParse(formPage)
	got := resolver.Describe(context.Background(), page, page.Find("input.position"))
	want := `/div[@id="app"]/div.form/div.body/div.group/div.item/input.position`
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}
