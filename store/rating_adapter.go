package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/scentlab/scentkit/core"
)

// RatingAdapter 把 core.Store 适配成 core.RatingStore。
//
// 键布局（prefix 默认 "scent"）：
//   {prefix}:ratings        全部评分记录，按 created_at 升序的 JSON 数组
//   {prefix}:users          有评分的用户 id，升序 JSON 数组
//   {prefix}:items          被评分的香水 id，升序 JSON 数组
//   {prefix}:catalog        香水目录条目 JSON 数组
//   {prefix}:features:{id}  单支香水的内容特征
//   {prefix}:user:{id}      单个用户的评分记录 JSON 数组
//   {prefix}:user_info:{id} 用户最小投影
//
// 写入由 SeedRatingData 或外部服务负责；适配器只读。
type RatingAdapter struct {
	store  core.Store
	prefix string
}

func NewRatingAdapter(store core.Store, prefix string) *RatingAdapter {
	if prefix == "" {
		prefix = "scent"
	}
	return &RatingAdapter{store: store, prefix: prefix}
}

func (a *RatingAdapter) Name() string {
	return fmt.Sprintf("rating-adapter(%s)", a.store.Name())
}

func (a *RatingAdapter) key(parts ...string) string {
	k := a.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (a *RatingAdapter) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := a.store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get "+key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, core.NewDomainError(core.ModuleRatings, core.ErrorCodeInternalError,
			fmt.Sprintf("ratings: decode %s: %v", key, err))
	}
	return true, nil
}

func (a *RatingAdapter) ListDistinctUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if _, err := a.getJSON(ctx, a.key("users"), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *RatingAdapter) ListDistinctItemIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if _, err := a.getJSON(ctx, a.key("items"), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *RatingAdapter) FetchRatings(ctx context.Context, limit, offset int) ([]core.RatingRecord, error) {
	all, err := a.allRatings(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []core.RatingRecord{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (a *RatingAdapter) FetchRatingsSince(ctx context.Context, since time.Time) ([]core.RatingRecord, error) {
	all, err := a.allRatings(ctx)
	if err != nil {
		return nil, err
	}
	// 数组按 created_at 升序，二分找到首条晚于 since 的记录
	i := sort.Search(len(all), func(i int) bool {
		return all[i].CreatedAt.After(since)
	})
	return all[i:], nil
}

func (a *RatingAdapter) RatingStats(ctx context.Context) (int64, time.Time, error) {
	all, err := a.allRatings(ctx)
	if err != nil {
		return 0, time.Time{}, err
	}
	var maxCreatedAt time.Time
	if len(all) > 0 {
		maxCreatedAt = all[len(all)-1].CreatedAt
	}
	return int64(len(all)), maxCreatedAt, nil
}

func (a *RatingAdapter) FetchItemFeatures(ctx context.Context, itemID int64) (*core.ItemFeatures, error) {
	var f core.ItemFeatures
	ok, err := a.getJSON(ctx, a.key("features", fmt.Sprint(itemID)), &f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (a *RatingAdapter) ListItems(ctx context.Context) ([]core.CatalogItem, error) {
	var items []core.CatalogItem
	if _, err := a.getJSON(ctx, a.key("catalog"), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *RatingAdapter) FetchUser(ctx context.Context, userID int64) (*core.User, error) {
	var u core.User
	ok, err := a.getJSON(ctx, a.key("user_info", fmt.Sprint(userID)), &u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (a *RatingAdapter) FetchUserRatings(ctx context.Context, userID int64) ([]core.RatingRecord, error) {
	var recs []core.RatingRecord
	if _, err := a.getJSON(ctx, a.key("user", fmt.Sprint(userID)), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (a *RatingAdapter) allRatings(ctx context.Context) ([]core.RatingRecord, error) {
	var recs []core.RatingRecord
	if _, err := a.getJSON(ctx, a.key("ratings"), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func unavailable(op string, err error) error {
	return core.NewDomainError(core.ModuleRatings, core.ErrorCodeUnavailable,
		fmt.Sprintf("ratings: %s: %v", op, err))
}

var _ core.RatingStore = (*RatingAdapter)(nil)
