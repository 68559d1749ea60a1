package rerank

import (
	"context"

	"github.com/scentlab/scentkit/core"
)

// Diversity 按某个 label 维度限制同类条目数量，默认按品牌。
// 推荐列表被单一品牌刷屏时，保留每个品牌得分最高的前 MaxPerKey 支，
// 其余让位给其他品牌。没有该 label 的条目不受约束。
type Diversity struct {
	// LabelKey 分组维度，默认 "brand"。
	LabelKey string
	// MaxPerKey 每组保留的条目数，默认 1。
	MaxPerKey int
}

func (d *Diversity) Name() string { return "rerank.diversity" }

func (d *Diversity) Process(_ context.Context, items []*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := d.LabelKey
	if key == "" {
		key = "brand"
	}
	maxPerKey := d.MaxPerKey
	if maxPerKey <= 0 {
		maxPerKey = 1
	}

	seen := make(map[string]int, len(items))
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		lbl, ok := it.GetLabel(key)
		if !ok || lbl.Value == "" {
			out = append(out, it)
			continue
		}
		if seen[lbl.Value] >= maxPerKey {
			continue
		}
		seen[lbl.Value]++
		out = append(out, it)
	}
	return out, nil
}

var _ Reranker = (*Diversity)(nil)
