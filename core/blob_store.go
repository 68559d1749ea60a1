package core

import "context"

// BlobStore 是快照持久化的领域接口。
//
// 矩阵管理器每次全量重建都会写出一对带时间戳的快照
// （矩阵 blob + 元数据 blob），然后把 "latest" 别名原子地指向新快照。
//
// 约定：
//   - Read 传入别名时解析到目标 blob
//   - Alias 的重指向必须原子：读者要么看到旧快照、要么看到新快照
//   - 持久化失败只记日志，不影响内存服务路径
//
// 实现：
//   - blob.FSBlobStore 实现此接口（本地目录 + symlink 别名）
//   - blob.StoreBlobStore 实现此接口（基于 core.Store，生产上是 Redis）
type BlobStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Write 写入一个 blob。
	Write(ctx context.Context, path string, data []byte) error

	// Read 读取 blob；path 为别名时解析到目标。
	Read(ctx context.Context, path string) ([]byte, error)

	// List 按前缀列出 blob 名称（不含别名），升序。
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete 删除一个 blob。
	Delete(ctx context.Context, path string) error

	// Alias 把别名原子地指向 target。
	Alias(ctx context.Context, name, target string) error
}

// ErrBlobNotFound 表示 blob 或别名不存在。
var ErrBlobNotFound = NewDomainError(ModuleBlob, ErrorCodeNotFound, "blob: not found")
