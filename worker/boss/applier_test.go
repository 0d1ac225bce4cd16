package boss

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	locators "auto_resume_go/Locators"
	"auto_resume_go/model"
	"auto_resume_go/repository"
	"auto_resume_go/service"
	"auto_resume_go/worker/task"
)

type fakeBoard struct {
	loggedIn   bool
	listMisses int
	cards      []CardInfo
	hidden     map[int]bool
	cardErr    map[int]bool
	visible    map[string]bool
	scrollTop  float64
	scrollMax  float64

	clicked []string
	goBacks int
	reloads int
}

func (b *fakeBoard) ListVisible(ctx context.Context, timeout time.Duration) bool {
	if b.listMisses > 0 {
		b.listMisses--
		return false
	}
	return true
}

func (b *fakeBoard) Cards(ctx context.Context) ([]CardInfo, error) {
	return b.cards, nil
}

func (b *fakeBoard) CardVisible(ctx context.Context, index int, timeout time.Duration) bool {
	return index < len(b.cards) && !b.hidden[index]
}

func (b *fakeBoard) ClickCard(ctx context.Context, index int) error {
	if b.cardErr[index] {
		return errors.New("element is detached from document")
	}
	b.clicked = append(b.clicked, "card")
	return nil
}

func (b *fakeBoard) ClickIfVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if !b.visible[selector] {
		return false, nil
	}
	b.clicked = append(b.clicked, selector)
	return true, nil
}

func (b *fakeBoard) ScrollList(ctx context.Context, fraction float64) (float64, float64, error) {
	before := b.scrollTop
	b.scrollTop += 600 * fraction
	if b.scrollTop > b.scrollMax {
		b.scrollTop = b.scrollMax
	}
	return before, b.scrollTop, nil
}

func (b *fakeBoard) GoBack(ctx context.Context) error {
	b.goBacks++
	return nil
}

func (b *fakeBoard) Reload(ctx context.Context) error {
	b.reloads++
	return nil
}

func (b *fakeBoard) LoggedIn(ctx context.Context) bool {
	return b.loggedIn
}

func newJobs(t *testing.T) (*service.AppliedJobService, repository.AppliedJobRepository) {
	t.Helper()
	db, err := repository.Open("sqlite", ":memory:", 0, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo := repository.NewAppliedJobRepository(db)
	return service.NewAppliedJobService(repo), repo
}

func newApplier(board Board, jobs *service.AppliedJobService) *Applier {
	logger, _ := test.NewNullLogger()
	a := NewApplier(board, jobs, Options{}, log.NewEntry(logger))
	a.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return a
}

func allVisible() map[string]bool {
	return map[string]bool{
		locators.CHAT_BUTTON:  true,
		locators.STAY_BUTTON:  true,
		locators.DETAIL_CLOSE: true,
	}
}

func TestStepAppliesCardsInOrder(t *testing.T) {
	ctx := context.Background()
	jobs, repo := newJobs(t)
	board := &fakeBoard{
		cards: []CardInfo{
			{Href: "/job_detail/aa11.html", Name: "Go开发", Company: "甲公司"},
			{DataJobID: "bb22"},
		},
		visible: allVisible(),
	}
	a := newApplier(board, jobs)

	if out := a.Step(ctx); out != Processed {
		t.Fatalf("step 1 = %v", out)
	}
	if !jobs.IsProcessed("aa11") || jobs.IsProcessed("bb22") {
		t.Fatalf("after step 1 processed aa11=%v bb22=%v", jobs.IsProcessed("aa11"), jobs.IsProcessed("bb22"))
	}
	want := []string{"card", locators.CHAT_BUTTON, locators.STAY_BUTTON, locators.DETAIL_CLOSE}
	if len(board.clicked) != len(want) {
		t.Fatalf("clicked = %v", board.clicked)
	}
	for i := range want {
		if board.clicked[i] != want[i] {
			t.Errorf("click %d = %s, want %s", i, board.clicked[i], want[i])
		}
	}

	if out := a.Step(ctx); out != Processed || !jobs.IsProcessed("bb22") {
		t.Fatalf("step 2 = %v", out)
	}
	if n, _ := repo.CountByStatus(model.ApplyStatusApplied); n != 2 {
		t.Errorf("applied records = %d", n)
	}

	// 没有新卡片且列表滚不动
	if out := a.Step(ctx); out != NoMoreCards {
		t.Errorf("step 3 = %v, want NoMoreCards", out)
	}
}

func TestStepScrollsWhenListMoves(t *testing.T) {
	jobs, _ := newJobs(t)
	if err := jobs.MarkProcessed("aa11", model.ApplyStatusApplied, "", "", true); err != nil {
		t.Fatal(err)
	}
	board := &fakeBoard{
		cards:     []CardInfo{{Href: "/job_detail/aa11.html"}},
		visible:   allVisible(),
		scrollMax: 2000,
	}
	a := newApplier(board, jobs)
	if out := a.Step(context.Background()); out != Processed {
		t.Fatalf("out = %v", out)
	}
	if board.scrollTop != 480 || len(board.clicked) != 0 {
		t.Errorf("scrollTop = %v, clicked = %v", board.scrollTop, board.clicked)
	}
}

func TestStepSkipsWithoutChatButton(t *testing.T) {
	jobs, repo := newJobs(t)
	board := &fakeBoard{
		cards:   []CardInfo{{Href: "/job_detail/cc33.html"}, {Href: "/job_detail/dd44.html"}},
		hidden:  map[int]bool{0: true},
		visible: map[string]bool{locators.DETAIL_CLOSE: true},
	}
	a := newApplier(board, jobs)
	if out := a.Step(context.Background()); out != Processed {
		t.Fatalf("out = %v", out)
	}
	// 第一张卡片定位不到，直接处理第二张
	if jobs.IsProcessed("cc33") || !jobs.IsProcessed("dd44") {
		t.Errorf("processed cc33=%v dd44=%v", jobs.IsProcessed("cc33"), jobs.IsProcessed("dd44"))
	}
	if n, _ := repo.CountByStatus(model.ApplyStatusSkipped); n != 1 {
		t.Errorf("skipped records = %d", n)
	}
}

func TestStepMissingListGoesBack(t *testing.T) {
	board := &fakeBoard{listMisses: 3}
	a := newApplier(board, nil)
	ctx := context.Background()
	if a.Step(ctx) != Processed || a.Step(ctx) != Processed {
		t.Fatal("first misses should retry")
	}
	if out := a.Step(ctx); out != GoBack {
		t.Errorf("third miss = %v", out)
	}
}

func TestStepErrorsTriggerRefresh(t *testing.T) {
	jobs, repo := newJobs(t)
	board := &fakeBoard{
		cards: []CardInfo{
			{Href: "/job_detail/e1.html"}, {Href: "/job_detail/e2.html"}, {Href: "/job_detail/e3.html"},
		},
		cardErr: map[int]bool{0: true, 1: true, 2: true},
		visible: map[string]bool{locators.CHAT_DIALOG_CLOSE: true},
	}
	a := newApplier(board, jobs)
	ctx := context.Background()
	a.Step(ctx)
	a.Step(ctx)
	if out := a.Step(ctx); out != RefreshPage {
		t.Fatalf("third error = %v", out)
	}
	if n, _ := repo.CountByStatus(model.ApplyStatusFailed); n != 3 {
		t.Errorf("failed records = %d", n)
	}
}

func TestRunRequiresLogin(t *testing.T) {
	a := newApplier(&fakeBoard{}, nil)
	if err := a.Run(context.Background(), func(task.JobProgressMessage) {}); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err = %v", err)
	}
	if a.IsRunning() {
		t.Error("runner should be idle after failure")
	}
}

func TestRunStopsAndClearsState(t *testing.T) {
	jobs, repo := newJobs(t)
	board := &fakeBoard{
		loggedIn: true,
		cards:    []CardInfo{{Href: "/job_detail/ff66.html"}},
		visible:  allVisible(),
	}
	a := newApplier(board, jobs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	a.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if d == a.opts.NoMoreWait {
			cancel()
		}
		return ctx.Err()
	}

	var messages []string
	err := a.Run(ctx, func(m task.JobProgressMessage) { messages = append(messages, m.Type) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if jobs.Count() != 0 || a.state.Cards != nil {
		t.Errorf("state not cleared: count=%d cards=%v", jobs.Count(), a.state.Cards)
	}
	if ok, _ := repo.Exists("ff66"); !ok {
		t.Error("processed job not persisted")
	}
	if len(messages) == 0 || messages[len(messages)-1] != "success" {
		t.Errorf("messages = %v", messages)
	}
	// Stop 在未运行时只记录日志
	a.Stop()
}
