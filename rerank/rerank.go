package rerank

import (
	"context"

	"github.com/scentlab/scentkit/core"
)

// Reranker 对一批推荐结果做列表级的重排/裁剪。
// 与 filter.Filter 的区别：过滤器逐条判定，重排器看见整个列表
// （多样性、截断这类决策依赖条目之间的关系）。
type Reranker interface {
	Name() string
	Process(ctx context.Context, items []*core.Item) ([]*core.Item, error)
}

// Apply 依次执行重排链。重排是锦上添花：任一环节失败时
// 保留进入该环节前的列表继续往下走，不让请求失败。
func Apply(ctx context.Context, rerankers []Reranker, items []*core.Item) []*core.Item {
	for _, r := range rerankers {
		out, err := r.Process(ctx, items)
		if err != nil {
			continue
		}
		items = out
	}
	return items
}
