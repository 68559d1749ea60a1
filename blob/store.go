package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/scentlab/scentkit/core"
)

// StoreBlobStore 把快照存进 core.Store（生产上通常是 Redis）。
//
// 键布局（prefix 默认 "snapshots"）：
//   {prefix}:blob:{name}   blob 本体
//   {prefix}:alias:{name}  别名 -> 目标名
//
// 别名重指向是一次 Set，对读者天然原子。
type StoreBlobStore struct {
	store  core.Store
	prefix string
}

func NewStoreBlobStore(store core.Store, prefix string) *StoreBlobStore {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &StoreBlobStore{store: store, prefix: prefix}
}

func (s *StoreBlobStore) Name() string {
	return fmt.Sprintf("store-blob(%s)", s.store.Name())
}

func (s *StoreBlobStore) blobKey(name string) string  { return s.prefix + ":blob:" + name }
func (s *StoreBlobStore) aliasKey(name string) string { return s.prefix + ":alias:" + name }

func (s *StoreBlobStore) Write(ctx context.Context, name string, data []byte) error {
	return s.store.Set(ctx, s.blobKey(name), data)
}

func (s *StoreBlobStore) Read(ctx context.Context, name string) ([]byte, error) {
	// 先查别名，命中则解析到目标 blob
	target, err := s.store.Get(ctx, s.aliasKey(name))
	if err == nil {
		name = string(target)
	} else if !core.IsStoreNotFound(err) {
		return nil, err
	}

	data, err := s.store.Get(ctx, s.blobKey(name))
	if core.IsStoreNotFound(err) {
		return nil, core.ErrBlobNotFound
	}
	return data, err
}

func (s *StoreBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.store.Keys(ctx, s.blobKey(prefix))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, s.blobKey("")))
	}
	sort.Strings(names)
	return names, nil
}

func (s *StoreBlobStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, s.blobKey(name))
}

func (s *StoreBlobStore) Alias(ctx context.Context, name, target string) error {
	return s.store.Set(ctx, s.aliasKey(name), []byte(target))
}

var _ core.BlobStore = (*StoreBlobStore)(nil)
