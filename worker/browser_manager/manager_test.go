package browser_manager

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"auto_resume_go/model"
	"auto_resume_go/repository"
	"auto_resume_go/resolver"
	"auto_resume_go/resolver/domtest"
	"auto_resume_go/service"
)

type fakeSession struct {
	pages   []*domtest.Page
	failURL string
	jar     []model.BrowserCookie
	closed  bool
}

func (s *fakeSession) NewPage(ctx context.Context, url string) (resolver.Page, error) {
	if url == s.failURL {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	p := domtest.MustParse(`<html><body><div>ok</div></body></html>`)
	p.SetURL(url)
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) Cookies(ctx context.Context) ([]model.BrowserCookie, error) {
	return s.jar, nil
}

func (s *fakeSession) SetCookies(ctx context.Context, cookies []model.BrowserCookie) error {
	s.jar = append(s.jar, cookies...)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func newCookieService(t *testing.T) *service.CookieService {
	t.Helper()
	db, err := repository.Open("sqlite", ":memory:", 0, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return service.NewCookieService(repository.NewCookieRepository(db))
}

func quietLogger() *log.Entry {
	logger, _ := test.NewNullLogger()
	return log.NewEntry(logger)
}

var urls = []string{
	"https://www.zhipin.com/web/geek/job",
	"https://campus.example.com/resume",
}

func TestInitRestoresCookiesAndOpensTabs(t *testing.T) {
	ctx := context.Background()
	cookies := newCookieService(t)
	saved := []model.BrowserCookie{{Name: "wt2", Value: "a", Domain: ".zhipin.com", Path: "/"}}
	if err := cookies.SaveCookies("www.zhipin.com", saved, "登录"); err != nil {
		t.Fatal(err)
	}

	sess := &fakeSession{}
	m, err := NewManager(sess, cookies, urls, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if len(sess.jar) != 1 || sess.jar[0].Name != "wt2" {
		t.Errorf("restored jar = %+v", sess.jar)
	}
	tabs := m.Tabs()
	if len(tabs) != 2 || tabs[0].URL != urls[0] || tabs[1].Host != "campus.example.com" {
		t.Fatalf("tabs = %+v", tabs)
	}

	// 已打开的地址不会重复打开
	opened, err := m.RefreshOrOpenPages(ctx)
	if err != nil || opened != 0 || len(sess.pages) != 2 {
		t.Errorf("second open = %d, %v, pages=%d", opened, err, len(sess.pages))
	}
}

func TestRefreshOrOpenPagesRetriesFailedURL(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{failURL: urls[1]}
	m, err := NewManager(sess, nil, urls, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	opened, err := m.RefreshOrOpenPages(ctx)
	if err == nil || opened != 1 {
		t.Fatalf("opened = %d, err = %v", opened, err)
	}
	sess.failURL = ""
	opened, err = m.RefreshOrOpenPages(ctx)
	if err != nil || opened != 1 || len(m.Tabs()) != 2 {
		t.Errorf("retry opened = %d, err = %v, tabs = %d", opened, err, len(m.Tabs()))
	}
}

func TestReloadAllAndMatchingTabs(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{}
	m, err := NewManager(sess, nil, urls, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.RefreshOrOpenPages(ctx); err != nil {
		t.Fatal(err)
	}
	if n := m.ReloadAll(ctx); n != 2 {
		t.Errorf("reloaded = %d", n)
	}
	for _, p := range sess.pages {
		if p.Reloads != 1 {
			t.Errorf("page reloads = %d", p.Reloads)
		}
	}

	// 第二个标签跳到了其他站点
	sess.pages[1].SetURL("https://login.other.net/")
	matching := m.MatchingTabs(ctx)
	if len(matching) != 1 || matching[0].URL != urls[0] {
		t.Errorf("matching = %+v", matching)
	}
}

func TestGroupByHost(t *testing.T) {
	cookies := []model.BrowserCookie{
		{Name: "a", Domain: ".zhipin.com"},
		{Name: "b", Domain: "www.zhipin.com"},
		{Name: "c", Domain: ".example.com"},
		{Name: "d", Domain: "tracker.net"},
		{Name: "e", Domain: ""},
	}
	got := GroupByHost(cookies, []string{"www.zhipin.com", "campus.example.com"})
	if len(got["www.zhipin.com"]) != 2 {
		t.Errorf("zhipin = %+v", got["www.zhipin.com"])
	}
	if len(got["campus.example.com"]) != 1 || got["campus.example.com"][0].Name != "c" {
		t.Errorf("example = %+v", got["campus.example.com"])
	}
	if len(got) != 2 {
		t.Errorf("groups = %d", len(got))
	}
}

func TestCloseSavesCookies(t *testing.T) {
	ctx := context.Background()
	cookies := newCookieService(t)
	sess := &fakeSession{jar: []model.BrowserCookie{{Name: "wt2", Value: "z", Domain: ".zhipin.com", Path: "/"}}}
	m, err := NewManager(sess, cookies, urls, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
	got, err := cookies.LoadCookies("www.zhipin.com")
	if err != nil || len(got) != 1 || got[0].Value != "z" {
		t.Errorf("saved = %+v, %v", got, err)
	}
	if got, _ := cookies.LoadCookies("campus.example.com"); len(got) != 0 {
		t.Errorf("unexpected cookies for campus: %+v", got)
	}
}

func TestNewManagerRejectsBadURL(t *testing.T) {
	if _, err := NewManager(&fakeSession{}, nil, []string{"not a url"}, nil); err == nil {
		t.Error("expected error for url without host")
	}
}
