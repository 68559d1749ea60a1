// Package provider 把矩阵管理器与评分存储收拢成策略层的统一数据入口。
// 策略只和 Provider 打交道，不直接触碰存储或矩阵内部。
package provider

import (
	"context"
	"time"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/matrix"
)

// FeatureSource 是香水内容特征的来源。
// 默认来源是评分存储本身；也可以换成远程特征服务（如 Feast）。
type FeatureSource interface {
	FetchItemFeatures(ctx context.Context, itemID int64) (*core.ItemFeatures, error)
}

// Provider 是推荐策略的数据面。
//
// 使用场景：
//   - 协同过滤：Snapshot / UserSimilarity / ItemSimilarity
//   - 内容推荐：UserRatings / ItemFeatures（带缓存）
//   - 兜底与解释：AllItems / UserByID
type Provider struct {
	mgr      *matrix.Manager
	ratings  core.RatingStore
	features FeatureSource
	cache    *featureCache
}

// Option 配置 Provider。
type Option func(*Provider)

// WithFeatureSource 替换内容特征来源（默认使用评分存储）。
func WithFeatureSource(src FeatureSource) Option {
	return func(p *Provider) {
		if src != nil {
			p.features = src
		}
	}
}

// WithFeatureCache 调整特征缓存参数。
func WithFeatureCache(maxSize int, ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = newFeatureCache(maxSize, ttl)
	}
}

// New 创建 Provider。
func New(mgr *matrix.Manager, ratings core.RatingStore, opts ...Option) *Provider {
	p := &Provider{
		mgr:      mgr,
		ratings:  ratings,
		features: ratings,
		cache:    newFeatureCache(4096, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot 返回满足新鲜度要求的评分矩阵快照。
func (p *Provider) Snapshot(ctx context.Context) (*matrix.Snapshot, error) {
	return p.mgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
}

// Version 返回当前矩阵快照的内容哈希。
// 依赖矩阵数据的下游缓存应以它为作用域。
func (p *Provider) Version(ctx context.Context) (string, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.Version(), nil
}

// Refresh 主动刷新矩阵；force 为 true 时无条件全量重建。
func (p *Provider) Refresh(ctx context.Context, force bool) error {
	return p.mgr.Refresh(ctx, force)
}

// UserSimilarity 返回用户-用户相似度矩阵。
func (p *Provider) UserSimilarity(ctx context.Context) (*matrix.Dense, error) {
	return p.mgr.UserSimilarity(ctx)
}

// ItemSimilarity 返回香水-香水相似度矩阵。
func (p *Provider) ItemSimilarity(ctx context.Context) (*matrix.Dense, error) {
	return p.mgr.ItemSimilarity(ctx)
}

// UserRatings 返回某个用户的全部评分记录（直读存储，不经过矩阵）。
func (p *Provider) UserRatings(ctx context.Context, userID int64) ([]core.RatingRecord, error) {
	return p.ratings.FetchUserRatings(ctx, userID)
}

// UserByID 返回用户投影；不存在时 (nil, nil)。
func (p *Provider) UserByID(ctx context.Context, userID int64) (*core.User, error) {
	return p.ratings.FetchUser(ctx, userID)
}

// ItemFeatures 返回香水的内容特征，带 LRU+TTL 缓存。
// 特征不存在时返回 (nil, nil)；缓存同样记录"无特征"，避免反复回源。
func (p *Provider) ItemFeatures(ctx context.Context, itemID int64) (*core.ItemFeatures, error) {
	if f, ok := p.cache.get(itemID); ok {
		return f, nil
	}
	f, err := p.features.FetchItemFeatures(ctx, itemID)
	if err != nil {
		return nil, err
	}
	p.cache.set(itemID, f)
	return f, nil
}

// AllItems 返回香水目录。
func (p *Provider) AllItems(ctx context.Context) ([]core.CatalogItem, error) {
	return p.ratings.ListItems(ctx)
}

// Close 释放缓存资源。
func (p *Provider) Close() {
	p.cache.close()
}
