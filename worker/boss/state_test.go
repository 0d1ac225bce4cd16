package boss

import (
	"strings"
	"testing"
	"time"
)

func TestListMissingGoesBackAfterLimit(t *testing.T) {
	s := NewApplyState(3, 3)
	s.Cards = []CardEntry{{ID: "a"}}
	s.Index = 1
	for i := 1; i <= 2; i++ {
		if out := s.ListMissing(); out != Processed {
			t.Fatalf("miss %d = %v", i, out)
		}
	}
	if out := s.ListMissing(); out != GoBack {
		t.Fatalf("third miss = %v, want GoBack", out)
	}
	if s.ListMisses != 0 || s.Cards != nil || s.Index != 0 {
		t.Errorf("state not reset: %+v", s)
	}

	// 中途找到列表会清零计数
	s.ListMissing()
	s.ListMissing()
	s.ListFound()
	if out := s.ListMissing(); out != Processed {
		t.Errorf("after ListFound = %v", out)
	}
}

func TestFailedRefreshesAfterLimit(t *testing.T) {
	s := NewApplyState(3, 3)
	s.Sync([]CardEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, nil)
	if out := s.Failed(0); out != Processed {
		t.Fatalf("first failure = %v", out)
	}
	s.Applied(1)
	if s.ApplyErrors != 0 {
		t.Fatalf("Applied should clear errors, got %d", s.ApplyErrors)
	}
	s.Failed(2)
	s.Failed(3)
	s.Cards = append(s.Cards, CardEntry{ID: "e"})
	if out := s.Failed(4); out != RefreshPage {
		t.Fatalf("third consecutive failure = %v, want RefreshPage", out)
	}
	if s.ApplyErrors != 0 || s.Index != 5 {
		t.Errorf("state = %+v", s)
	}
}

func TestSyncKeepsQueueState(t *testing.T) {
	s := NewApplyState(0, 0)
	if n := s.Sync([]CardEntry{{ID: "a"}, {ID: "b"}}, nil); n != 2 {
		t.Fatalf("discovered = %d", n)
	}
	s.Applied(0)

	done := map[string]bool{"c": true}
	n := s.Sync([]CardEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, func(id string) bool { return done[id] })
	if n != 1 {
		t.Errorf("discovered = %d, want only d", n)
	}
	want := []bool{true, false, true, false}
	for i, c := range s.Cards {
		if c.Processed != want[i] {
			t.Errorf("card %s processed = %v", c.ID, c.Processed)
		}
	}

	i, c, ok := s.Next()
	if !ok || i != 1 || c.ID != "b" {
		t.Fatalf("next = %d %+v %v", i, c, ok)
	}
	s.MarkUnavailable(1)
	i, c, ok = s.Next()
	if !ok || i != 3 || c.ID != "d" {
		t.Fatalf("next after unavailable = %d %+v %v", i, c, ok)
	}
	s.Applied(3)
	if _, _, ok := s.Next(); ok {
		t.Error("queue should be exhausted")
	}
}

func TestScrolled(t *testing.T) {
	s := NewApplyState(0, 0)
	s.Sync([]CardEntry{{ID: "a"}}, nil)
	s.Applied(0)
	if out := s.Scrolled(true); out != Processed || s.Cards != nil || s.Index != 0 {
		t.Errorf("moved: %v %+v", out, s)
	}
	if out := s.Scrolled(false); out != NoMoreCards {
		t.Errorf("unmoved: %v", out)
	}
}

func TestCardID(t *testing.T) {
	tests := []struct {
		href, data string
		want       string
		temp       bool
	}{
		{"/job_detail/8a3f9c2d1e.html?lid=x", "", "8a3f9c2d1e", false},
		{"https://www.zhipin.com/job_detail/AbC123.html", "zz", "AbC123", false},
		{"/job_detail/.html", "d-77", "d-77", false},
		{"", "d-88", "d-88", false},
		{"/gongsi/abc.html", "", "", true},
	}
	for _, tt := range tests {
		got, temp := CardID(tt.href, tt.data)
		if temp != tt.temp {
			t.Errorf("CardID(%q,%q) temp = %v", tt.href, tt.data, temp)
			continue
		}
		if tt.temp {
			if !strings.HasPrefix(got, "temp_id_") {
				t.Errorf("temp id = %q", got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("CardID(%q,%q) = %q, want %q", tt.href, tt.data, got, tt.want)
		}
	}
}

func TestTempIDUnique(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a, b := TempID(now), TempID(now)
	if !strings.HasPrefix(a, "temp_id_1700000000000_") || len(a) != len("temp_id_1700000000000_")+6 {
		t.Errorf("temp id = %q", a)
	}
	if a == b {
		t.Errorf("temp ids collide: %q", a)
	}
}

func TestOutcomeString(t *testing.T) {
	if GoBack.String() != "go_back" || Outcome(9).String() != "Outcome(9)" {
		t.Error("unexpected outcome names")
	}
}
