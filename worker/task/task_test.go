package task

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type collector struct {
	mu   sync.Mutex
	msgs []JobProgressMessage
}

func (c *collector) add(m JobProgressMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Type
	}
	return out
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	r := NewRunner("resume")
	var c collector
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- r.Execute(context.Background(), c.add, func(ctx context.Context, report Reporter) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if !r.IsRunning() {
		t.Fatal("runner should report running")
	}
	var second collector
	if err := r.Execute(context.Background(), second.add, func(context.Context, Reporter) error {
		t.Error("second run must not start")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := second.types(); len(got) != 1 || got[0] != "warning" {
		t.Errorf("second run messages = %v, want [warning]", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if r.IsRunning() {
		t.Error("runner should be idle after the task returns")
	}
}

func TestRunnerStopCancelsContext(t *testing.T) {
	r := NewRunner("boss")
	started := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- r.Execute(context.Background(), func(JobProgressMessage) {}, func(ctx context.Context, report Reporter) error {
			close(started)
			<-ctx.Done()
			if !r.ShouldStop() {
				t.Error("ShouldStop should be set while stopping")
			}
			return nil
		})
	}()
	<-started
	r.Stop()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if r.ShouldStop() {
		t.Error("stop flag should reset after the run")
	}
}

func TestRunnerReportsFailure(t *testing.T) {
	r := NewRunner("edit")
	var c collector
	boom := errors.New("boom")
	err := r.Execute(context.Background(), c.add, func(ctx context.Context, report Reporter) error {
		report("info", "step")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	want := []string{"info", "info", "error"}
	got := c.types()
	if len(got) != len(want) {
		t.Fatalf("messages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("messages = %v, want %v", got, want)
			break
		}
	}
}

func TestGetStatus(t *testing.T) {
	r := NewRunner("boss")
	st := r.GetStatus()
	if st["platform"] != "boss" || st["isRunning"] != false {
		t.Errorf("status = %v", st)
	}
}
