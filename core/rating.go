package core

import "time"

// RatingRecord 是一条用户对香水的评分记录（1-5 整数分，可带评论）。
// 记录一经创建不再变化；(UserID, PerfumeID) 的唯一性由底层存储保证，
// 核心库不做二次校验。
type RatingRecord struct {
	UserID    int64     `json:"user_id"`
	PerfumeID int64     `json:"perfume_id"`
	Rate      int       `json:"rate"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogItem 是香水目录条目的最小投影。
// 核心库不拥有目录的完整元数据，只保留推荐所需的字段。
type CatalogItem struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Brand string  `json:"brand,omitempty"`
	Price float64 `json:"price,omitempty"`
}

// ItemFeatures 是内容推荐用到的香水特征集。
// Brand / Intensity / PriceCategory 为单值维度；Notes 为多值维度
// （香调类型 -> 香调列表，例如 "top" -> ["bergamot", "lemon"]）。
type ItemFeatures struct {
	Brand         string              `json:"brand,omitempty"`
	Intensity     string              `json:"intensity,omitempty"`
	PriceCategory string              `json:"price_category,omitempty"`
	Notes         map[string][]string `json:"notes,omitempty"`
}

// Empty 判断特征集是否为空（所有维度均无值）。
func (f *ItemFeatures) Empty() bool {
	if f == nil {
		return true
	}
	return f.Brand == "" && f.Intensity == "" && f.PriceCategory == "" && len(f.Notes) == 0
}

// User 是用户的最小投影，仅用于存在性检查与解释信息。
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}
