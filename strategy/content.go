package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/pkg/utils"
)

// 内容特征维度及其组合权重。权重是经验默认值，可通过 Option 覆盖。
const (
	dimBrand     = "brand"
	dimIntensity = "intensity"
	dimPrice     = "price_category"
	dimNotes     = "notes"
)

func defaultFeatureWeights() map[string]float64 {
	return map[string]float64{
		dimBrand:     0.30,
		dimIntensity: 0.30,
		dimPrice:     0.10,
		dimNotes:     0.15,
	}
}

// ContentBased 基于香水内容特征做推荐：
// 用用户的评分加权聚合出口味画像，再与候选香水的特征向量逐维比对。
// 冷门新香水没有协同信号也能被推荐（supports_new_items）。
type ContentBased struct {
	base
	weights    map[string]float64
	minRatings int
}

// ContentOption 配置内容策略。
type ContentOption func(*ContentBased)

// WithFeatureWeights 覆盖特征维度权重；未出现的维度保留默认值。
func WithFeatureWeights(w map[string]float64) ContentOption {
	return func(s *ContentBased) {
		for dim, v := range w {
			if v > 0 {
				s.weights[dim] = v
			}
		}
	}
}

// NewContentBased 创建内容推荐策略。
func NewContentBased(opts ...ContentOption) *ContentBased {
	s := &ContentBased{
		base:       base{name: NameContentBased},
		weights:    defaultFeatureWeights(),
		minRatings: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ContentBased) CanRecommend(ctx context.Context, userID int64, dp DataProvider) bool {
	if !s.ensure(dp) {
		return false
	}
	ratings, err := s.dp.UserRatings(ctx, userID)
	if err != nil {
		return false
	}
	return len(ratings) >= s.minRatings
}

func (s *ContentBased) Requirements() Requirements {
	return Requirements{
		MinUserRatings:   s.minRatings,
		SupportsNewUsers: false,
		SupportsNewItems: true,
		FeatureWeights:   s.weights,
	}
}

// profile 是用户的口味画像：每个维度下特征值 -> 归一化偏好权重。
type profile map[string]map[string]float64

// vector 是香水的 one-hot 特征向量：维度 -> 特征值集合（指示值恒为 1）。
type vector map[string]map[string]float64

func (s *ContentBased) Recommend(ctx context.Context, userID int64, opts Options) ([]*core.Item, error) {
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

	rated := make(map[int64]bool, len(ratings))
	for _, r := range ratings {
		rated[r.PerfumeID] = true
	}

	prof, err := s.buildProfile(ctx, ratings)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}
	if len(prof) == 0 {
		// 用户评过的香水都没有特征数据，画像为空
		return s.fallback(ctx, opts.TopN), nil
	}

	catalog, err := s.dp.AllItems(ctx)
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return s.fallback(ctx, opts.TopN), nil
	}

	type cand struct {
		id  int64
		sim float64
	}
	var cands []cand
	for _, ci := range catalog {
		if opts.ExcludeRated && rated[ci.ID] {
			continue
		}
		feats, err := s.dp.ItemFeatures(ctx, ci.ID)
		if err != nil || feats.Empty() {
			continue
		}
		sim := s.similarity(prof, featureVector(feats))
		if sim > 0 {
			cands = append(cands, cand{id: ci.ID, sim: sim})
		}
	}
	if len(cands) == 0 {
		return s.fallback(ctx, opts.TopN), nil
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].sim > cands[j].sim })
	if len(cands) > opts.TopN {
		cands = cands[:opts.TopN]
	}

	out := make([]*core.Item, 0, len(cands))
	for _, c := range cands {
		it := core.NewItem(c.id)
		it.Score = c.sim
		if conf := c.sim * 2; conf < 1 {
			it.Confidence = conf
		} else {
			it.Confidence = 1
		}
		it.PutLabel("method", utils.Label{Value: s.name, Source: "strategy"})
		it.PutLabel("similarity", utils.Label{Value: fmt.Sprintf("%.4f", c.sim), Source: "strategy"})
		out = append(out, it)
	}
	return out, nil
}

// buildProfile 以 rating/5 为权重聚合用户评过的香水特征，
// 再把每个维度按总权重归一化。
func (s *ContentBased) buildProfile(ctx context.Context, ratings []core.RatingRecord) (profile, error) {
	prof := make(profile)
	totalWeight := 0.0

	addPref := func(dim, value string, w float64) {
		if prof[dim] == nil {
			prof[dim] = make(map[string]float64)
		}
		prof[dim][value] += w
	}

	for _, r := range ratings {
		feats, err := s.dp.ItemFeatures(ctx, r.PerfumeID)
		if err != nil {
			return nil, err
		}
		if feats.Empty() {
			continue
		}

		w := float64(r.Rate) / 5.0
		if feats.Brand != "" {
			addPref(dimBrand, feats.Brand, w)
		}
		if feats.Intensity != "" {
			addPref(dimIntensity, feats.Intensity, w)
		}
		if feats.PriceCategory != "" {
			addPref(dimPrice, feats.PriceCategory, w)
		}
		for _, notes := range feats.Notes {
			for _, note := range notes {
				addPref(dimNotes, note, w)
			}
		}
		totalWeight += w
	}

	if totalWeight > 0 {
		for _, prefs := range prof {
			for v := range prefs {
				prefs[v] /= totalWeight
			}
		}
	}
	return prof, nil
}

// featureVector 把特征集展开成 one-hot 向量。
func featureVector(f *core.ItemFeatures) vector {
	vec := make(vector)
	if f.Brand != "" {
		vec[dimBrand] = map[string]float64{f.Brand: 1}
	}
	if f.Intensity != "" {
		vec[dimIntensity] = map[string]float64{f.Intensity: 1}
	}
	if f.PriceCategory != "" {
		vec[dimPrice] = map[string]float64{f.PriceCategory: 1}
	}
	if len(f.Notes) > 0 {
		notes := make(map[string]float64)
		for _, ns := range f.Notes {
			for _, n := range ns {
				notes[n] = 1
			}
		}
		vec[dimNotes] = notes
	}
	return vec
}

// similarity 逐维比对画像与向量：
// 维度相似度 = Σ(偏好权重×指示值) / Σ指示值；
// 各维度按特征权重加权平均，分母只计入画像与向量同时具备的维度。
func (s *ContentBased) similarity(prof profile, vec vector) float64 {
	totalSim := 0.0
	totalWeight := 0.0

	for dim, weight := range s.weights {
		prefs, okP := prof[dim]
		feats, okV := vec[dim]
		if !okP || !okV || len(feats) == 0 {
			continue
		}

		dot := 0.0
		max := 0.0
		for value, ind := range feats {
			dot += prefs[value] * ind
			max += ind
		}
		if max > 0 {
			totalSim += (dot / max) * weight
			totalWeight += weight
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return totalSim / totalWeight
}

var _ Strategy = (*ContentBased)(nil)
