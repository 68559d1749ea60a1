// Package strategy 实现可互换的推荐策略族：
// 内容推荐、物品协同过滤、用户协同过滤，以及共享的兜底逻辑。
package strategy

import (
	"context"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/matrix"
)

// DataProvider 是策略消费数据的唯一入口，由 provider.Provider 实现。
// 接口定义在消费方：策略测试只需实现这个最小面。
type DataProvider interface {
	// Snapshot 返回满足新鲜度要求的评分矩阵快照。
	Snapshot(ctx context.Context) (*matrix.Snapshot, error)
	// UserSimilarity 返回用户-用户相似度矩阵。
	UserSimilarity(ctx context.Context) (*matrix.Dense, error)
	// ItemSimilarity 返回香水-香水相似度矩阵。
	ItemSimilarity(ctx context.Context) (*matrix.Dense, error)
	// UserRatings 返回某用户的全部评分记录。
	UserRatings(ctx context.Context, userID int64) ([]core.RatingRecord, error)
	// UserByID 返回用户投影；不存在时 (nil, nil)。
	UserByID(ctx context.Context, userID int64) (*core.User, error)
	// ItemFeatures 返回香水内容特征；不存在时 (nil, nil)。
	ItemFeatures(ctx context.Context, itemID int64) (*core.ItemFeatures, error)
	// AllItems 返回香水目录。
	AllItems(ctx context.Context) ([]core.CatalogItem, error)
}

// Options 控制一次推荐请求。
type Options struct {
	// TopN 返回条数上限。
	TopN int
	// ExcludeRated 为 true 时排除用户已评分的香水。
	ExcludeRated bool
}

// DefaultOptions 返回默认请求参数（top 10、排除已评分）。
func DefaultOptions() Options {
	return Options{TopN: 10, ExcludeRated: true}
}

// Requirements 是策略的静态能力描述，供选择器按用户状态挑选策略。
type Requirements struct {
	MinUserRatings      int                `json:"min_user_ratings"`
	SupportsNewUsers    bool               `json:"supports_new_users"`
	SupportsNewItems    bool               `json:"supports_new_items"`
	SimilarityThreshold float64            `json:"similarity_threshold,omitempty"`
	KNeighbors          int                `json:"neighbors_count,omitempty"`
	FeatureWeights      map[string]float64 `json:"feature_weights,omitempty"`
}

// Strategy 是推荐策略的统一契约。
//
// 契约要点：
//   - Setup 绑定数据面，幂等；CanRecommend 未绑定时可携带 provider 自动完成绑定
//   - Recommend 对结构合法的 userID 永不因内部失败报错：
//     内部错误与空候选集都退化为兜底列表，只有数据不可用（UNAVAILABLE）才向上抛
//   - 返回列表按 Score 非增排序，长度 ≤ opts.TopN
type Strategy interface {
	// Name 返回策略标识（注册与日志使用）。
	Name() string
	// Setup 绑定数据面；幂等。
	Setup(dp DataProvider)
	// CanRecommend 判断用户是否满足该策略的最低数据要求。
	CanRecommend(ctx context.Context, userID int64, dp DataProvider) bool
	// Requirements 返回静态能力描述。
	Requirements() Requirements
	// Recommend 生成推荐列表。
	Recommend(ctx context.Context, userID int64, opts Options) ([]*core.Item, error)
}

// 策略名常量。
const (
	NameContentBased = "content_based"
	NameItemBasedCF  = "item_based_cf"
	NameUserBasedCF  = "user_based"
)
