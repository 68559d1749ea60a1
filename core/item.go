package core

import "github.com/scentlab/scentkit/pkg/utils"

// Item 是推荐结果的统一承载结构：分数、置信度、解释元信息、标签。
// Score 用于排序决策；Confidence 表达预测可信程度（0-1）；
// Labels 用于解释与策略驱动（例如 method / fallback / neighbor_count）。
//
// Item 只在单次请求内存在，不落库、不跨请求复用。
type Item struct {
	ID         int64
	Score      float64
	Confidence float64
	Labels     map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}

// IsFallback 判断该结果是否来自兜底推荐（catalog 热门列表）。
func (it *Item) IsFallback() bool {
	lbl, ok := it.GetLabel("fallback")
	return ok && lbl.Value == "true"
}
