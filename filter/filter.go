// Package filter 提供推荐结果的后置过滤链：
// 引擎在策略产出之后、返回调用方之前逐个应用过滤器。
package filter

import (
	"context"

	"github.com/scentlab/scentkit/core"
)

// Filter 判断一个推荐结果是否应该被过滤掉。
// 返回 true 表示移除，false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, item *core.Item) (bool, error)
}

// Apply 对列表应用过滤链，保持原有顺序。
// 单个过滤器出错时保守地保留该 item（过滤是锦上添花，不应让请求失败）。
func Apply(ctx context.Context, filters []Filter, items []*core.Item) []*core.Item {
	if len(filters) == 0 {
		return items
	}
	out := items[:0]
	for _, it := range items {
		drop := false
		for _, f := range filters {
			should, err := f.ShouldFilter(ctx, it)
			if err != nil {
				continue
			}
			if should {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, it)
		}
	}
	return out
}
