package rerank

import (
	"context"

	"github.com/scentlab/scentkit/core"
)

// TopN 截取列表前 N 条。通常放在重排链末尾：
// 多样性等环节可能需要比最终数量更多的候选才有裁剪空间。
// N <= 0 表示不截断。
type TopN struct {
	N int
}

func (t *TopN) Name() string { return "rerank.topn" }

func (t *TopN) Process(_ context.Context, items []*core.Item) ([]*core.Item, error) {
	if t.N <= 0 || len(items) <= t.N {
		return items, nil
	}
	return items[:t.N], nil
}

var _ Reranker = (*TopN)(nil)
