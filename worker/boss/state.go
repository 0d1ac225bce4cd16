package boss

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// Outcome 一轮投递的结果，决定主循环下一步做什么
type Outcome int

const (
	Processed Outcome = iota
	NoMoreCards
	GoBack
	RefreshPage
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case NoMoreCards:
		return "no_more_cards"
	case GoBack:
		return "go_back"
	case RefreshPage:
		return "refresh_page"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// CardEntry 队列中的一张卡片，不持有页面元素，元素每轮按序号重新定位
type CardEntry struct {
	ID        string
	Temp      bool
	Name      string
	Company   string
	Processed bool
}

// ApplyState 投递循环的全部可变状态
type ApplyState struct {
	MaxListMisses  int
	MaxApplyErrors int

	ListMisses  int
	ApplyErrors int
	Cards       []CardEntry
	Index       int
}

func NewApplyState(maxListMisses, maxApplyErrors int) *ApplyState {
	if maxListMisses <= 0 {
		maxListMisses = 3
	}
	if maxApplyErrors <= 0 {
		maxApplyErrors = 3
	}
	return &ApplyState{MaxListMisses: maxListMisses, MaxApplyErrors: maxApplyErrors}
}

// ListMissing 列表容器不可见；连续达到上限时返回 GoBack 并清空队列
func (s *ApplyState) ListMissing() Outcome {
	s.ListMisses++
	if s.ListMisses >= s.MaxListMisses {
		s.ListMisses = 0
		s.ResetQueue()
		return GoBack
	}
	return Processed
}

func (s *ApplyState) ListFound() {
	s.ListMisses = 0
}

// Sync 用当前可见卡片重建队列；已处理的直接标记，仍在队列中的保留原状态
func (s *ApplyState) Sync(cards []CardEntry, processed func(id string) bool) (discovered int) {
	prev := make(map[string]CardEntry, len(s.Cards))
	for _, c := range s.Cards {
		prev[c.ID] = c
	}
	next := make([]CardEntry, 0, len(cards))
	for _, c := range cards {
		switch {
		case processed != nil && processed(c.ID):
			c.Processed = true
		case prev[c.ID].ID != "":
			c.Processed = prev[c.ID].Processed
		default:
			c.Processed = false
			discovered++
		}
		next = append(next, c)
	}
	s.Cards = next
	return discovered
}

// Next 从当前序号开始第一张未处理的卡片
func (s *ApplyState) Next() (int, CardEntry, bool) {
	start := s.Index
	if start < 0 {
		start = 0
	}
	for i := start; i < len(s.Cards); i++ {
		if !s.Cards[i].Processed {
			return i, s.Cards[i], true
		}
	}
	return -1, CardEntry{}, false
}

// MarkUnavailable 卡片在页面上已经定位不到，不再尝试
func (s *ApplyState) MarkUnavailable(i int) {
	if i >= 0 && i < len(s.Cards) {
		s.Cards[i].Processed = true
	}
}

// Scrolled 没有可操作卡片时滚动了列表；位置不变说明到底了
func (s *ApplyState) Scrolled(moved bool) Outcome {
	s.ResetQueue()
	if moved {
		return Processed
	}
	return NoMoreCards
}

// Applied 卡片处理完成，连续错误清零
func (s *ApplyState) Applied(i int) {
	s.finish(i)
	s.ApplyErrors = 0
}

// Failed 卡片处理出错，同样视为已处理；连续达到上限时返回 RefreshPage
func (s *ApplyState) Failed(i int) Outcome {
	s.finish(i)
	s.ApplyErrors++
	if s.ApplyErrors >= s.MaxApplyErrors {
		s.ApplyErrors = 0
		return RefreshPage
	}
	return Processed
}

func (s *ApplyState) finish(i int) {
	if i >= 0 && i < len(s.Cards) {
		s.Cards[i].Processed = true
	}
	s.Index = i + 1
}

// ResetQueue 页面变化后从头发现卡片
func (s *ApplyState) ResetQueue() {
	s.Cards = nil
	s.Index = 0
}

// Reset 启动和停止时清空全部状态
func (s *ApplyState) Reset() {
	s.ResetQueue()
	s.ListMisses = 0
	s.ApplyErrors = 0
}

var jobIDPattern = regexp.MustCompile(`/job_detail/([a-zA-Z0-9]+)\.html`)

// JobIDFromHref 从详情页链接中取职位ID
func JobIDFromHref(href string) (string, bool) {
	m := jobIDPattern.FindStringSubmatch(href)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// CardID 链接优先，其次 data-job-id，都没有时生成临时ID
func CardID(href, dataJobID string) (id string, temp bool) {
	if id, ok := JobIDFromHref(href); ok {
		return id, false
	}
	if dataJobID != "" {
		return dataJobID, false
	}
	return TempID(time.Now()), true
}

const tempAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func TempID(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = tempAlphabet[rand.Intn(len(tempAlphabet))]
	}
	return fmt.Sprintf("temp_id_%d_%s", now.UnixMilli(), suffix)
}
