package core

import (
	"context"
	"time"
)

// RatingStore 是评分数据的只读领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 核心库只读：评分的写入、唯一性约束由外部服务负责
//
// 使用场景：
//   - 矩阵全量重建：ListDistinctUserIDs / ListDistinctItemIDs / FetchRatings
//   - 矩阵增量更新：FetchRatingsSince
//   - 新鲜度判断：RatingStats（条数 + 最大时间戳构成内容哈希）
//   - 内容推荐：FetchItemFeatures / ListItems
//
// 实现：
//   - store.RatingAdapter 实现此接口（基于 core.Store 的 JSON 布局）
//   - 其他存储后端（SQL、HTTP 服务等）也可以实现此接口
type RatingStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ListDistinctUserIDs 返回至少有一条评分的用户 id，升序。
	// 升序保证两次重建产生相同的索引映射。
	ListDistinctUserIDs(ctx context.Context) ([]int64, error)

	// ListDistinctItemIDs 返回至少被评过分的香水 id，升序。
	ListDistinctItemIDs(ctx context.Context) ([]int64, error)

	// FetchRatings 按固定批次拉取评分记录（limit 条、跳过 offset 条）。
	// 返回空切片表示已经读完。
	FetchRatings(ctx context.Context, limit, offset int) ([]RatingRecord, error)

	// FetchRatingsSince 返回创建时间晚于 since 的评分记录。
	FetchRatingsSince(ctx context.Context, since time.Time) ([]RatingRecord, error)

	// RatingStats 返回评分总数与最大创建时间，用于廉价的内容哈希。
	RatingStats(ctx context.Context) (count int64, maxCreatedAt time.Time, err error)

	// FetchItemFeatures 返回香水的内容特征；不存在时返回 (nil, nil)。
	FetchItemFeatures(ctx context.Context, itemID int64) (*ItemFeatures, error)

	// ListItems 返回目录条目（兜底推荐与候选枚举使用）。
	ListItems(ctx context.Context) ([]CatalogItem, error)

	// FetchUser 返回用户的最小投影；不存在时返回 (nil, nil)。
	FetchUser(ctx context.Context, userID int64) (*User, error)

	// FetchUserRatings 返回某个用户的全部评分记录。
	FetchUserRatings(ctx context.Context, userID int64) ([]RatingRecord, error)
}

// ErrRatingsUnavailable 表示评分存储读取失败，重建无法继续。
var ErrRatingsUnavailable = NewDomainError(ModuleRatings, ErrorCodeUnavailable, "ratings: store unavailable")
