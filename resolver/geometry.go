package resolver

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Depth 节点与 body/html 之间隔着的祖先层数：body 的直接子节点为 0，游离节点或 nil 也返回 0
func Depth(ctx context.Context, drv Driver, n Node) (int, error) {
	if n == nil {
		return 0, nil
	}
	tag, err := drv.TagName(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("读取节点标签失败: %w", err)
	}
	if isDocumentRoot(tag) {
		return 0, nil
	}
	depth := 0
	for cur := n; ; depth++ {
		parent, err := drv.Parent(ctx, cur)
		if err != nil {
			return 0, fmt.Errorf("读取父节点失败: %w", err)
		}
		if parent == nil {
			// 没有到达 body/html，节点已脱离文档
			return 0, nil
		}
		ptag, err := drv.TagName(ctx, parent)
		if err != nil {
			return 0, fmt.Errorf("读取节点标签失败: %w", err)
		}
		if isDocumentRoot(ptag) {
			return depth, nil
		}
		cur = parent
	}
}

func isDocumentRoot(tag string) bool {
	tag = strings.ToLower(tag)
	return tag == "body" || tag == "html"
}

// pathToRoot 返回从文档根到节点的路径（包含节点本身）
func pathToRoot(ctx context.Context, drv Driver, n Node) ([]Node, error) {
	var path []Node
	for cur := n; cur != nil; {
		path = append(path, cur)
		parent, err := drv.Parent(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("读取父节点失败: %w", err)
		}
		cur = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// LowestCommonAncestor 比较两条根路径，返回最后一个共同节点；不在同一棵树时返回 nil
func LowestCommonAncestor(ctx context.Context, drv Driver, a, b Node) (Node, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	pathA, err := pathToRoot(ctx, drv, a)
	if err != nil {
		return nil, err
	}
	pathB, err := pathToRoot(ctx, drv, b)
	if err != nil {
		return nil, err
	}
	var lca Node
	for i := 0; i < len(pathA) && i < len(pathB); i++ {
		if pathA[i].Key() != pathB[i].Key() {
			break
		}
		lca = pathA[i]
	}
	return lca, nil
}

// Contains 判断 ancestor 是否为 n 本身或其祖先
func Contains(ctx context.Context, drv Driver, ancestor, n Node) (bool, error) {
	if ancestor == nil || n == nil {
		return false, nil
	}
	for cur := n; cur != nil; {
		if cur.Key() == ancestor.Key() {
			return true, nil
		}
		parent, err := drv.Parent(ctx, cur)
		if err != nil {
			return false, fmt.Errorf("读取父节点失败: %w", err)
		}
		cur = parent
	}
	return false, nil
}

// VisibleBox 唯一的可见性判断：宽或高为 0 视为不可见，返回 nil
func VisibleBox(ctx context.Context, drv Driver, n Node) (*Box, error) {
	box, err := drv.BoundingBox(ctx, n)
	if err != nil {
		return nil, err
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return nil, nil
	}
	return box, nil
}

// Distance 两个矩形中心点的欧氏距离
func Distance(a, b Box) float64 {
	ca, cb := a.Center(), b.Center()
	return math.Hypot(ca.X-cb.X, ca.Y-cb.Y)
}
