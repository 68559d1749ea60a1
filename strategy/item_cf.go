package strategy

import (
	"context"

	"github.com/scentlab/scentkit/core"
)

// ItemBasedCF 是物品协同过滤：
// 对用户评过的每支香水，在香水-香水相似度矩阵里找相似项，
// 以相似度为权重对评分做加权平均得到预测分。
type ItemBasedCF struct {
	base
	minSimilarity float64
	minRatings    int
}

// ItemCFOption 配置物品协同过滤策略。
type ItemCFOption func(*ItemBasedCF)

// WithItemSimilarityThreshold 覆盖相似度阈值（默认 0.1）。
func WithItemSimilarityThreshold(t float64) ItemCFOption {
	return func(s *ItemBasedCF) {
		if t > 0 {
			s.minSimilarity = t
		}
	}
}

// NewItemBasedCF 创建物品协同过滤策略。
func NewItemBasedCF(opts ...ItemCFOption) *ItemBasedCF {
	s := &ItemBasedCF{
		base:          base{name: NameItemBasedCF},
		minSimilarity: 0.1,
		minRatings:    2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ItemBasedCF) CanRecommend(ctx context.Context, userID int64, dp DataProvider) bool {
	if !s.ensure(dp) {
		return false
	}
	ratings, err := s.dp.UserRatings(ctx, userID)
	if err != nil {
		return false
	}
	return len(ratings) >= s.minRatings
}

func (s *ItemBasedCF) Requirements() Requirements {
	return Requirements{
		MinUserRatings:      s.minRatings,
		SupportsNewUsers:    false,
		SupportsNewItems:    false,
		SimilarityThreshold: s.minSimilarity,
	}
}

func (s *ItemBasedCF) Recommend(ctx context.Context, userID int64, opts Options) ([]*core.Item, error) {
	ratings, err := s.dp.UserRatings(ctx, userID)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}
	if len(ratings) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}

	snap, err := s.dp.Snapshot(ctx)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}

	// 只保留映射内的评分；评分迭代顺序决定候选的插入序（并列分数可复现）
	type ratedItem struct {
		idx  int
		rate float64
	}
	var ratedIdx []ratedItem
	ratedIDs := make(map[int64]bool, len(ratings))
	for _, r := range ratings {
		ratedIDs[r.PerfumeID] = true
		if idx, ok := snap.Items().Index(r.PerfumeID); ok {
			ratedIdx = append(ratedIdx, ratedItem{idx: idx, rate: float64(r.Rate)})
		}
	}
	if len(ratedIdx) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}

	sim, err := s.dp.ItemSimilarity(ctx)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}

	acc := newAccumulator()
	for _, src := range ratedIdx {
		row := sim.Row(src.idx)
		for j, v := range row {
			if v < s.minSimilarity || j == src.idx {
				continue
			}
			candidateID, ok := snap.Items().ID(j)
			if !ok {
				continue
			}
			if opts.ExcludeRated && ratedIDs[candidateID] {
				continue
			}
			acc.add(candidateID, src.rate, v)
		}
	}

	out := acc.finalize(s.name, "source_count", 2.0, opts.TopN)
	if len(out) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}
	return out, nil
}

var _ Strategy = (*ItemBasedCF)(nil)
