package pwdriver

import (
	"sync"

	"github.com/playwright-community/playwright-go"
)

// handles 当前文档中已经包装过的元素句柄，同一元素只保留一个
//
// 解析器沿父节点链反复向上查找，不去重的话每次都会新建句柄。
type handles struct {
	mu    sync.Mutex
	doc   string
	nodes map[string]*node
}

// adopt 返回 key 对应的节点；已存在时释放新句柄，文档地址变化时先释放旧文档的全部句柄
func (c *handles) adopt(doc, key string, h playwright.ElementHandle) *node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc != c.doc {
		c.releaseLocked()
		c.doc = doc
	}
	if n, ok := c.nodes[key]; ok {
		_ = h.Dispose()
		return n
	}
	if c.nodes == nil {
		c.nodes = make(map[string]*node)
	}
	n := &node{h: h, key: key}
	c.nodes[key] = n
	return n
}

// release 释放全部句柄，导航或刷新前调用
func (c *handles) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *handles) releaseLocked() {
	for _, n := range c.nodes {
		_ = n.h.Dispose()
	}
	c.nodes = nil
}

func (c *handles) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}
