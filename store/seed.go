package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/scentlab/scentkit/core"
)

// RatingDataset 是一份完整的评分数据集，供 SeedRatingData 写入。
type RatingDataset struct {
	Ratings  []core.RatingRecord
	Catalog  []core.CatalogItem
	Features map[int64]*core.ItemFeatures
	Users    []core.User
	// Prefix 为键前缀，空值使用默认 "scent"
	Prefix string
}

// SeedRatingData 按 RatingAdapter 约定的键布局写入一份数据集。
// 用于测试、示例和一次性数据导入；会覆盖同名键。
func SeedRatingData(ctx context.Context, s core.Store, ds RatingDataset) error {
	prefix := ds.Prefix
	if prefix == "" {
		prefix = "scent"
	}
	key := func(parts ...string) string {
		k := prefix
		for _, p := range parts {
			k += ":" + p
		}
		return k
	}

	ratings := make([]core.RatingRecord, len(ds.Ratings))
	copy(ratings, ds.Ratings)
	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.Before(ratings[j].CreatedAt)
	})

	userSet := make(map[int64]bool)
	itemSet := make(map[int64]bool)
	byUser := make(map[int64][]core.RatingRecord)
	for _, r := range ratings {
		userSet[r.UserID] = true
		itemSet[r.PerfumeID] = true
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	kvs := make(map[string][]byte)
	put := func(k string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		kvs[k] = data
		return nil
	}

	if err := put(key("ratings"), ratings); err != nil {
		return err
	}
	if err := put(key("users"), sortedIDs(userSet)); err != nil {
		return err
	}
	if err := put(key("items"), sortedIDs(itemSet)); err != nil {
		return err
	}
	if err := put(key("catalog"), ds.Catalog); err != nil {
		return err
	}
	for id, f := range ds.Features {
		if err := put(key("features", fmt.Sprint(id)), f); err != nil {
			return err
		}
	}
	for id, recs := range byUser {
		if err := put(key("user", fmt.Sprint(id)), recs); err != nil {
			return err
		}
	}
	for _, u := range ds.Users {
		if err := put(key("user_info", fmt.Sprint(u.ID)), u); err != nil {
			return err
		}
	}

	return s.BatchSet(ctx, kvs)
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
