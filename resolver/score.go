package resolver

import (
	"math"
	"sort"
)

const scoreEpsilon = 1e-6

// Score 候选节点相对锚点的排序依据
type Score struct {
	Depth    int     // 与锚点的最近公共祖先深度，越大越好
	Distance float64 // 中心点距离，越小越好
	X        float64 // 候选左边界，越小越好
}

// Compare 按 深度降序、距离升序、x 升序 比较，a 更好时返回负数
func Compare(a, b Score) int {
	if a.Depth != b.Depth {
		if a.Depth > b.Depth {
			return -1
		}
		return 1
	}
	if math.Abs(a.Distance-b.Distance) > scoreEpsilon {
		if a.Distance < b.Distance {
			return -1
		}
		return 1
	}
	if math.Abs(a.X-b.X) > scoreEpsilon {
		if a.X < b.X {
			return -1
		}
		return 1
	}
	return 0
}

type scored struct {
	node  Node
	box   Box
	score Score
	order int
}

// best 返回排名第一的候选；分数完全相同时取文档顺序靠前的
func best(cands []scored) (scored, bool) {
	if len(cands) == 0 {
		return scored{}, false
	}
	sorted := make([]scored, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := Compare(sorted[i].score, sorted[j].score); c != 0 {
			return c < 0
		}
		return sorted[i].order < sorted[j].order
	})
	return sorted[0], true
}
