package resolver

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// 匹配途径
const (
	ViaText        = "text"
	ViaForLinkage  = "for"
	ViaProximity   = "proximity"
	ViaPlaceholder = "placeholder"
	ViaKeyword     = "keyword"
)

// MatchResult 一次解析的胜出节点以及它的打分
type MatchResult struct {
	Node  Node
	Box   Box
	Score Score
	Path  string
	Via   string
	// Considered 参与打分的候选数
	Considered int
}

// Fields 解析日志的结构化字段
func (m *MatchResult) Fields(query string) log.Fields {
	return log.Fields{
		"query":      query,
		"path":       m.Path,
		"via":        m.Via,
		"depth":      m.Score.Depth,
		"distance":   m.Score.Distance,
		"x":          m.Score.X,
		"candidates": m.Considered,
	}
}

// Describe 生成节点的近似路径，遇到 id 停止，例如 /html/body/div.resume/form[@id="edit"]/input
func Describe(ctx context.Context, drv Driver, n Node) string {
	if n == nil {
		return "N/A"
	}
	var parts []string
	for cur := n; cur != nil; {
		tag, err := drv.TagName(ctx, cur)
		if err != nil || tag == "" {
			break
		}
		part := strings.ToLower(tag)
		if id, ok, err := drv.Attribute(ctx, cur, "id"); err == nil && ok && id != "" {
			parts = append(parts, part+`[@id="`+id+`"]`)
			break
		}
		if class, ok, err := drv.Attribute(ctx, cur, "class"); err == nil && ok {
			if fields := strings.Fields(class); len(fields) > 0 {
				part += "." + fields[0]
			}
		}
		parts = append(parts, part)
		parent, err := drv.Parent(ctx, cur)
		if err != nil {
			break
		}
		cur = parent
	}
	if len(parts) == 0 {
		return "N/A"
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}
