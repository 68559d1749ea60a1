package strategy

import (
	"context"
	"sort"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/matrix"
)

// UserBasedCF 是用户协同过滤：
// 在用户-用户相似度矩阵里找口味相近的邻居，
// 用邻居的评分按相似度加权预测目标用户对未评香水的评分。
type UserBasedCF struct {
	base
	minSimilarity float64
	kNeighbors    int
}

// UserCFOption 配置用户协同过滤策略。
type UserCFOption func(*UserBasedCF)

// WithKNeighbors 覆盖邻居数上限（默认 30）。
func WithKNeighbors(k int) UserCFOption {
	return func(s *UserBasedCF) {
		if k > 0 {
			s.kNeighbors = k
		}
	}
}

// WithUserSimilarityThreshold 覆盖相似度阈值（默认 0.1）。
func WithUserSimilarityThreshold(t float64) UserCFOption {
	return func(s *UserBasedCF) {
		if t > 0 {
			s.minSimilarity = t
		}
	}
}

// NewUserBasedCF 创建用户协同过滤策略。
func NewUserBasedCF(opts ...UserCFOption) *UserBasedCF {
	s := &UserBasedCF{
		base:          base{name: NameUserBasedCF},
		minSimilarity: 0.1,
		kNeighbors:    30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanRecommend 要求用户已经在矩阵里有一行（非冷启动用户）。
func (s *UserBasedCF) CanRecommend(ctx context.Context, userID int64, dp DataProvider) bool {
	if !s.ensure(dp) {
		return false
	}
	snap, err := s.dp.Snapshot(ctx)
	if err != nil {
		return false
	}
	_, ok := snap.Users().Index(userID)
	return ok
}

func (s *UserBasedCF) Requirements() Requirements {
	return Requirements{
		MinUserRatings:      1,
		SupportsNewUsers:    false,
		SupportsNewItems:    true,
		SimilarityThreshold: s.minSimilarity,
		KNeighbors:          s.kNeighbors,
	}
}

func (s *UserBasedCF) Recommend(ctx context.Context, userID int64, opts Options) ([]*core.Item, error) {
	snap, err := s.dp.Snapshot(ctx)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}

	userIdx, ok := snap.Users().Index(userID)
	if !ok {
		return s.fallback(ctx, opts.TopN), nil
	}

	ratings, err := s.dp.UserRatings(ctx, userID)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}
	ratedIDs := make(map[int64]bool, len(ratings))
	for _, r := range ratings {
		ratedIDs[r.PerfumeID] = true
	}

	sim, err := s.dp.UserSimilarity(ctx)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}

	neighbors := s.findNeighbors(userIdx, sim)
	if len(neighbors) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}

	acc := newAccumulator()
	for _, nb := range neighbors {
		neighborID, ok := snap.Users().ID(nb.idx)
		if !ok {
			continue
		}
		neighborRatings, err := s.dp.UserRatings(ctx, neighborID)
		if err != nil {
			if core.IsUnavailable(err) {
				return nil, err
			}
			continue
		}
		for _, r := range neighborRatings {
			// 映射外的香水（构建之后才出现的）不参与预测
			if _, ok := snap.Items().Index(r.PerfumeID); !ok {
				continue
			}
			if opts.ExcludeRated && ratedIDs[r.PerfumeID] {
				continue
			}
			acc.add(r.PerfumeID, float64(r.Rate), nb.sim)
		}
	}

	out := acc.finalize(s.name, "neighbor_count", 1.5, opts.TopN)
	if len(out) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}
	return out, nil
}

type neighbor struct {
	idx int
	sim float64
}

// findNeighbors 返回相似度达标的前 k 个邻居（排除自身），按相似度降序。
func (s *UserBasedCF) findNeighbors(userIdx int, sim *matrix.Dense) []neighbor {
	row := sim.Row(userIdx)
	var out []neighbor
	for j, v := range row {
		if j == userIdx || v < s.minSimilarity {
			continue
		}
		out = append(out, neighbor{idx: j, sim: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].sim > out[j].sim })
	if len(out) > s.kNeighbors {
		out = out[:s.kNeighbors]
	}
	return out
}

var _ Strategy = (*UserBasedCF)(nil)
