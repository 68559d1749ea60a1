package matrix

// Stats 是矩阵的描述性统计，仅用于观测与展示，任何正确性判断都不依赖它。
type Stats struct {
	Users              int         `json:"n_users"`
	Items              int         `json:"n_perfumes"`
	Ratings            int         `json:"n_ratings"`
	Sparsity           float64     `json:"sparsity"`
	AvgRatingsPerUser  float64     `json:"avg_ratings_per_user"`
	AvgRatingsPerItem  float64     `json:"avg_ratings_per_perfume"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

func computeStats(a *CSR) Stats {
	s := Stats{
		Users:              a.RowCount,
		Items:              a.ColCount,
		Ratings:            a.NNZ(),
		RatingDistribution: make(map[int]int),
	}
	if a.RowCount > 0 && a.ColCount > 0 {
		total := float64(a.RowCount) * float64(a.ColCount)
		s.Sparsity = 1 - float64(a.NNZ())/total
	}
	if a.RowCount > 0 {
		s.AvgRatingsPerUser = float64(a.NNZ()) / float64(a.RowCount)
	}
	if a.ColCount > 0 {
		s.AvgRatingsPerItem = float64(a.NNZ()) / float64(a.ColCount)
	}
	for _, v := range a.Data {
		s.RatingDistribution[int(v)]++
	}
	return s
}
