package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/scentlab/scentkit/core"
)

// 快照布局：一对共享时间戳的 blob + 一对稳定别名。
//   rating_matrix_<ts>.json  矩阵本体（CSR 数组）
//   metadata_<ts>.json       映射 + 元信息 + 统计
//   rating_matrix_latest.json / metadata_latest.json  别名，成功重建后原子重指向
const (
	metadataPrefix   = "metadata"
	snapshotTSLayout = "20060102_150405"
)

type matrixBlob struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	RowPtr []int     `json:"row_ptr"`
	ColInd []int     `json:"col_ind"`
	Data   []float64 `json:"data"`
}

type metadataBlob struct {
	UserIDs []int64  `json:"user_ids"`
	ItemIDs []int64  `json:"perfume_ids"`
	Meta    Metadata `json:"metadata"`
	Stats   Stats    `json:"stats"`
}

func (m *Manager) latestMatrixName() string {
	return m.cfg.SnapshotPrefix + "_latest.json"
}

func (m *Manager) latestMetadataName() string {
	return metadataPrefix + "_latest.json"
}

// persist 把快照写入 BlobStore 并重指向 latest 别名。
// 任何失败都只记日志：管理器可以纯内存运行。
func (m *Manager) persist(ctx context.Context, snap *Snapshot) {
	if m.blobs == nil {
		return
	}

	ts := snap.meta.LastUpdated.Format(snapshotTSLayout)
	matrixName := fmt.Sprintf("%s_%s.json", m.cfg.SnapshotPrefix, ts)
	metadataName := fmt.Sprintf("%s_%s.json", metadataPrefix, ts)

	matrixData, err := json.Marshal(matrixBlob{
		Rows:   snap.csr.RowCount,
		Cols:   snap.csr.ColCount,
		RowPtr: snap.csr.RowPtr,
		ColInd: snap.csr.ColInd,
		Data:   snap.csr.Data,
	})
	if err != nil {
		m.logger.Warn("snapshot encode failed", "err", err)
		return
	}
	metaData, err := json.Marshal(metadataBlob{
		UserIDs: snap.users.IDs(),
		ItemIDs: snap.items.IDs(),
		Meta:    snap.meta,
		Stats:   snap.stats,
	})
	if err != nil {
		m.logger.Warn("snapshot metadata encode failed", "err", err)
		return
	}

	if err := m.blobs.Write(ctx, matrixName, matrixData); err != nil {
		m.logger.Warn("snapshot write failed", "blob", matrixName, "err", err)
		return
	}
	if err := m.blobs.Write(ctx, metadataName, metaData); err != nil {
		m.logger.Warn("snapshot metadata write failed", "blob", metadataName, "err", err)
		return
	}

	// 两个 blob 都落盘后才重指向别名：读者要么看到旧对、要么看到新对
	if err := m.blobs.Alias(ctx, m.latestMatrixName(), matrixName); err != nil {
		m.logger.Warn("snapshot alias failed", "err", err)
		return
	}
	if err := m.blobs.Alias(ctx, m.latestMetadataName(), metadataName); err != nil {
		m.logger.Warn("snapshot metadata alias failed", "err", err)
		return
	}

	m.cleanupOldVersions(ctx)
	m.logger.Info("rating matrix snapshot persisted", "blob", matrixName)
}

// cleanupOldVersions 按名字序（= 时间序）只保留最近 MaxVersions 份快照。
// 别名永远指向最新一份，最新的一份不会被回收。
func (m *Manager) cleanupOldVersions(ctx context.Context) {
	// 时间戳以年份开头，前缀带 "_2" 可排除 *_latest 别名
	for _, prefix := range []string{m.cfg.SnapshotPrefix + "_2", metadataPrefix + "_2"} {
		names, err := m.blobs.List(ctx, prefix)
		if err != nil {
			m.logger.Warn("snapshot cleanup list failed", "prefix", prefix, "err", err)
			continue
		}
		sort.Strings(names)
		if len(names) <= m.cfg.MaxVersions {
			continue
		}
		for _, name := range names[:len(names)-m.cfg.MaxVersions] {
			if err := m.blobs.Delete(ctx, name); err != nil {
				m.logger.Warn("snapshot cleanup delete failed", "blob", name, "err", err)
			}
		}
	}
}

// LoadLatest 从 latest 别名恢复最近一次持久化的快照，
// 让管理器在首次重建完成前就能服务。恢复的快照仍受新鲜度策略约束。
func (m *Manager) LoadLatest(ctx context.Context) error {
	if m.blobs == nil {
		return core.NewDomainError(core.ModuleMatrix, core.ErrorCodeNotSupported,
			"matrix: no blob store configured")
	}

	matrixData, err := m.blobs.Read(ctx, m.latestMatrixName())
	if err != nil {
		return err
	}
	metaData, err := m.blobs.Read(ctx, m.latestMetadataName())
	if err != nil {
		return err
	}

	var mb matrixBlob
	if err := json.Unmarshal(matrixData, &mb); err != nil {
		return core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInternalError,
			fmt.Sprintf("matrix: decode snapshot: %v", err))
	}
	var md metadataBlob
	if err := json.Unmarshal(metaData, &md); err != nil {
		return core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInternalError,
			fmt.Sprintf("matrix: decode snapshot metadata: %v", err))
	}
	if md.Meta.SchemaVersion != schemaVersion {
		return core.NewDomainError(core.ModuleMatrix, core.ErrorCodeNotSupported,
			fmt.Sprintf("matrix: unsupported snapshot schema %q", md.Meta.SchemaVersion))
	}

	snap := &Snapshot{
		csr: &CSR{
			RowCount: mb.Rows,
			ColCount: mb.Cols,
			RowPtr:   mb.RowPtr,
			ColInd:   mb.ColInd,
			Data:     mb.Data,
		},
		users: NewIndexMapping(md.UserIDs),
		items: NewIndexMapping(md.ItemIDs),
		meta:  md.Meta,
		stats: md.Stats,
	}
	m.swap(snap)
	m.logger.Info("rating matrix snapshot restored",
		"users", snap.users.Len(), "perfumes", snap.items.Len(), "ratings", snap.csr.NNZ())
	return nil
}
