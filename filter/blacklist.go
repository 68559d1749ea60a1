package filter

import (
	"context"
	"encoding/json"

	"github.com/scentlab/scentkit/core"
)

// BlacklistFilter 过滤掉黑名单中的香水（下架、违规、人工屏蔽）。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单
	ItemIDs []int64

	// Store 用于从存储中读取黑名单（可选）
	Store core.Store

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// NewBlacklistFilter 创建黑名单过滤器。
func NewBlacklistFilter(itemIDs []int64, store core.Store, key string) *BlacklistFilter {
	return &BlacklistFilter{
		ItemIDs: itemIDs,
		Store:   store,
		Key:     key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ItemIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		data, err := f.Store.Get(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, err
		}
		var ids []int64
		if err := json.Unmarshal(data, &ids); err != nil {
			return false, err
		}
		for _, id := range ids {
			if item.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}

var _ Filter = (*BlacklistFilter)(nil)
