package resolver

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Score
		want int
	}{
		{"deeper wins", Score{Depth: 4, Distance: 50}, Score{Depth: 3, Distance: 1}, -1},
		{"shallower loses", Score{Depth: 1}, Score{Depth: 4}, 1},
		{"closer wins on equal depth", Score{Depth: 4, Distance: 30}, Score{Depth: 4, Distance: 50}, -1},
		{"farther loses on equal depth", Score{Depth: 4, Distance: 50.5}, Score{Depth: 4, Distance: 50}, 1},
		{"leftmost wins on equal distance", Score{Depth: 3, Distance: 10, X: 100}, Score{Depth: 3, Distance: 10, X: 200}, -1},
		{"distance within epsilon is a tie", Score{Depth: 3, Distance: 10 + 1e-9, X: 5}, Score{Depth: 3, Distance: 10, X: 6}, -1},
		{"identical", Score{Depth: 2, Distance: 3, X: 4}, Score{Depth: 2, Distance: 3, X: 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%+v, %+v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if tt.want != 0 {
				if got := Compare(tt.b, tt.a); got != -tt.want {
					t.Errorf("Compare is not antisymmetric: Compare(b, a) = %d", got)
				}
			}
		})
	}
}

type keyNode string

func (k keyNode) Key() string { return string(k) }

func TestBestIsOrderIndependent(t *testing.T) {
	cands := []scored{
		{node: keyNode("a"), score: Score{Depth: 1, Distance: 10}, order: 0},
		{node: keyNode("b"), score: Score{Depth: 4, Distance: 50}, order: 1},
		{node: keyNode("c"), score: Score{Depth: 4, Distance: 30}, order: 2},
	}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		in := make([]scored, len(perm))
		for i, idx := range perm {
			in[i] = cands[idx]
		}
		got, ok := best(in)
		if !ok {
			t.Fatalf("best(%v) returned no winner", perm)
		}
		if got.node.Key() != "c" {
			t.Errorf("best(%v) = %s, want c", perm, got.node.Key())
		}
	}
}

func TestBestFullTieUsesDocumentOrder(t *testing.T) {
	got, ok := best([]scored{
		{node: keyNode("late"), score: Score{Depth: 3, Distance: 5, X: 1}, order: 7},
		{node: keyNode("early"), score: Score{Depth: 3, Distance: 5, X: 1}, order: 2},
	})
	if !ok || got.node.Key() != "early" {
		t.Fatalf("best() = %v, want early", got.node)
	}
	if _, ok := best(nil); ok {
		t.Error("best(nil) should report no winner")
	}
}
