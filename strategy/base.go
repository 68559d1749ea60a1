package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/pkg/utils"
)

// 兜底推荐的固定分数与置信度。
const (
	fallbackScore      = 3.5
	fallbackConfidence = 0.2
)

// base 承载所有策略共享的状态与行为：数据面绑定、兜底列表。
type base struct {
	name string
	dp   DataProvider
}

func (b *base) Name() string { return b.name }

func (b *base) Setup(dp DataProvider) {
	if dp != nil {
		b.dp = dp
	}
}

// ensure 在 CanRecommend 带入 provider 时完成延迟绑定。
func (b *base) ensure(dp DataProvider) bool {
	if b.dp == nil && dp != nil {
		b.dp = dp
	}
	return b.dp != nil
}

// fallback 返回目录前 topN 条的中性推荐：分数 3.5、置信度 0.2、
// 打上 fallback 标签。目录为空或读取失败时返回空列表，不报错。
func (b *base) fallback(ctx context.Context, topN int) []*core.Item {
	items, err := b.dp.AllItems(ctx)
	if err != nil {
		return []*core.Item{}
	}
	if len(items) > topN {
		items = items[:topN]
	}
	out := make([]*core.Item, 0, len(items))
	for _, ci := range items {
		it := core.NewItem(ci.ID)
		it.Score = fallbackScore
		it.Confidence = fallbackConfidence
		it.PutLabel("method", utils.Label{Value: b.name, Source: "strategy"})
		it.PutLabel("fallback", utils.Label{Value: "true", Source: "strategy"})
		it.PutLabel("reason", utils.Label{Value: "catalog head", Source: "strategy"})
		out = append(out, it)
	}
	return out
}

// scored 是策略内部的累加槽：同一候选上多个来源的加权和。
type scored struct {
	id          int64
	weightedSum float64
	simSum      float64
	sources     int
}

// accumulator 按插入序收集候选的加权贡献，保证并列分数的顺序可复现。
type accumulator struct {
	order []int64
	slots map[int64]*scored
}

func newAccumulator() *accumulator {
	return &accumulator{slots: make(map[int64]*scored)}
}

func (a *accumulator) add(id int64, rating, sim float64) {
	s, ok := a.slots[id]
	if !ok {
		s = &scored{id: id}
		a.slots[id] = s
		a.order = append(a.order, id)
	}
	s.weightedSum += rating * sim
	s.simSum += sim
	s.sources++
}

// finalize 把累加槽转成排好序的推荐列表。
// score = 加权和/相似度和，裁剪到 [0,5]；confidence = min(1, 平均相似度×factor)。
func (a *accumulator) finalize(name, sourceLabel string, confFactor float64, topN int) []*core.Item {
	out := make([]*core.Item, 0, len(a.order))
	for _, id := range a.order {
		s := a.slots[id]
		if s.simSum <= 0 {
			continue
		}
		score := s.weightedSum / s.simSum
		score = math.Max(0, math.Min(5, score))
		avgSim := s.simSum / float64(s.sources)

		it := core.NewItem(id)
		it.Score = score
		it.Confidence = math.Min(1, avgSim*confFactor)
		it.PutLabel("method", utils.Label{Value: name, Source: "strategy"})
		it.PutLabel(sourceLabel, utils.Label{Value: fmt.Sprint(s.sources), Source: "strategy"})
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
