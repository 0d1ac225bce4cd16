package scheduler

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newQuiet() (*Scheduler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(log.NewEntry(logger)), hook
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		spec string
		ok   bool
	}{
		{"* * * * *", true},
		{"*/30 * * * *", true},
		{"0 */2 * * *", true},
		{"@every 10m", true},
		{"* * * *", false},
		{"61 * * * *", false},
		{"", false},
	}
	for _, tt := range tests {
		if err := ValidateSpec(tt.spec); (err == nil) != tt.ok {
			t.Errorf("ValidateSpec(%q) = %v", tt.spec, err)
		}
	}
}

func TestAddAndRunNow(t *testing.T) {
	s, hook := newQuiet()
	calls := 0
	if err := s.Add("refresh", "*/30 * * * *", func(ctx context.Context) { calls++ }); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("refresh", "* * * * *", func(ctx context.Context) {}); err == nil {
		t.Error("duplicate name should fail")
	}
	if err := s.Add("bad", "nope", func(ctx context.Context) {}); err == nil {
		t.Error("invalid spec should fail")
	}
	if err := s.RunNow("refresh"); err != nil || calls != 1 {
		t.Fatalf("RunNow = %v, calls = %d", err, calls)
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("unknown job should fail")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Data["job"] != "refresh" {
		t.Errorf("last log = %+v", hook.LastEntry())
	}
}

func TestEntriesAndStop(t *testing.T) {
	s, _ := newQuiet()
	_ = s.Add("edit", "0 */2 * * *", func(ctx context.Context) {})
	_ = s.Add("refresh", "*/30 * * * *", func(ctx context.Context) {})
	s.Start()

	entries := s.Entries()
	if len(entries) != 2 || entries[0].Name != "edit" || entries[1].Spec != "*/30 * * * *" {
		t.Fatalf("entries = %+v", entries)
	}
	for _, e := range entries {
		if e.Next.IsZero() || e.Next.Before(time.Now()) {
			t.Errorf("%s next = %v", e.Name, e.Next)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	// 停止后任务拿到的 ctx 已取消
	var jobErr error
	_ = s.Add("after", "* * * * *", func(ctx context.Context) { jobErr = ctx.Err() })
	_ = s.RunNow("after")
	if jobErr == nil {
		t.Error("job context should be cancelled after Stop")
	}
}
