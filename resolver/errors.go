package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 过滤和打分后没有候选节点
	ErrNotFound = errors.New("未找到匹配元素")
	// ErrNotVisible 找到了节点但没有可见区域
	ErrNotVisible = errors.New("元素不可见")
	// ErrActivationFailed 模拟点击在坐标回退后仍然失败
	ErrActivationFailed = errors.New("元素激活失败")
)

// ResolveError 一次解析或激活失败的上下文
type ResolveError struct {
	Op    string
	Query string
	Err   error
}

func (e *ResolveError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s \"%s\": %v", e.Op, e.Query, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func notFound(op, query string) error {
	return &ResolveError{Op: op, Query: query, Err: ErrNotFound}
}

func notVisible(op, query string) error {
	return &ResolveError{Op: op, Query: query, Err: ErrNotVisible}
}

// ActivationError 包装底层驱动错误，同时可以用 errors.Is 匹配 ErrActivationFailed
func ActivationError(op, query string, cause error) error {
	return &ResolveError{Op: op, Query: query, Err: fmt.Errorf("%w: %v", ErrActivationFailed, cause)}
}
