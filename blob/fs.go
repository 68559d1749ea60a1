package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scentlab/scentkit/core"
)

// FSBlobStore 把快照存在本地目录里，别名用 symlink 表示。
// 重指向通过"先建临时 symlink 再 rename"实现原子切换。
type FSBlobStore struct {
	dir string
}

func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create dir %s: %w", dir, err)
	}
	return &FSBlobStore{dir: dir}, nil
}

func (f *FSBlobStore) Name() string { return "fs" }

func (f *FSBlobStore) path(name string) (string, error) {
	// 名称里不允许路径分隔符，防止逃出目录
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("blob: invalid name %q", name)
	}
	return filepath.Join(f.dir, name), nil
}

func (f *FSBlobStore) Write(ctx context.Context, name string, data []byte) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("blob: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blob: write %s: %w", name, err)
	}
	return nil
}

func (f *FSBlobStore) Read(ctx context.Context, name string) ([]byte, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	// os.ReadFile 跟随 symlink，别名自然解析
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, core.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", name, err)
	}
	return data, nil
}

func (f *FSBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("blob: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		// 别名（symlink）不算 blob
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *FSBlobStore) Delete(ctx context.Context, name string) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: delete %s: %w", name, err)
	}
	return nil
}

func (f *FSBlobStore) Alias(ctx context.Context, name, target string) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if _, err := f.path(target); err != nil {
		return err
	}
	// symlink 不能覆盖已有文件：先建临时链接，再 rename 原子替换
	tmp := p + ".alias.tmp"
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("blob: alias %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blob: alias %s: %w", name, err)
	}
	return nil
}

var _ core.BlobStore = (*FSBlobStore)(nil)
