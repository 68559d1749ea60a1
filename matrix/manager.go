package matrix

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scentlab/scentkit/core"
)

// Layout 标记调用方需要的矩阵布局。
type Layout string

const (
	// LayoutRow 行主序（CSR）：高效访问"某用户的全部评分"。
	LayoutRow Layout = "row"
	// LayoutColumn 列主序（CSC）：高效访问"某香水的全部评分"，由行布局惰性派生。
	LayoutColumn Layout = "column"
)

// schemaVersion 是快照格式版本，持久化布局变化时递增。
const schemaVersion = "1.0"

// 相似度缓存的固定逻辑 key。
const (
	simKeyUser = "user_similarity"
	simKeyItem = "item_similarity"
)

// Metadata 记录矩阵的构建信息，只用于判断是否需要重建/刷新。
type Metadata struct {
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
	DataHash      string    `json:"data_hash"`
	SchemaVersion string    `json:"version"`
}

// Snapshot 是一次构建产出的不可变快照：矩阵、映射、元信息、统计。
// 管理器通过原子替换快照指针来发布新版本，读者永远看不到半成品。
type Snapshot struct {
	csr     *CSR
	cscOnce sync.Once
	csc     *CSC

	users *IndexMapping
	items *IndexMapping
	meta  Metadata
	stats Stats
}

// Rows 返回行主序布局。
func (s *Snapshot) Rows() *CSR { return s.csr }

// Columns 返回列主序布局，首次访问时派生并缓存，直到下一次重建。
func (s *Snapshot) Columns() *CSC {
	s.cscOnce.Do(func() {
		s.csc = s.csr.ToCSC()
	})
	return s.csc
}

// Users 返回用户 id↔索引映射。
func (s *Snapshot) Users() *IndexMapping { return s.users }

// Items 返回香水 id↔索引映射。
func (s *Snapshot) Items() *IndexMapping { return s.items }

// Meta 返回构建元信息。
func (s *Snapshot) Meta() Metadata { return s.meta }

// Stats 返回描述性统计。
func (s *Snapshot) Stats() Stats { return s.stats }

// Version 返回快照版本（内容哈希）。依赖矩阵的缓存都应以它为作用域，
// 这样重建天然使所有下游缓存失效，无需手工簿记。
func (s *Snapshot) Version() string { return s.meta.DataHash }

// Config 是矩阵管理器的可调参数。
type Config struct {
	// FreshnessWindow 超过该时长未更新即视为过期，触发重建。
	FreshnessWindow time.Duration
	// BatchSize 全量重建时每批拉取的评分条数，限制内存峰值。
	BatchSize int
	// MaxVersions 快照保留份数，旧版本按名字序回收。
	MaxVersions int
	// SnapshotPrefix 快照 blob 的名称前缀。
	SnapshotPrefix string
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		FreshnessWindow: 24 * time.Hour,
		BatchSize:       50000,
		MaxVersions:     5,
		SnapshotPrefix:  "rating_matrix",
	}
}

// Manager 拥有稀疏评分矩阵的全部可变状态：当前快照、相似度缓存、重建互斥。
//
// 并发契约：
//   - 全量重建/增量更新由 singleflight 合并，任何时刻至多一个在执行
//   - 新矩阵在旁路构建完成后整体替换快照指针，进行中的请求继续读旧快照
//   - 相似度矩阵按需计算，计算与缓存写入在锁内完成，避免重复计算
//   - 快照持久化失败只记日志：磁盘写不影响内存服务路径
type Manager struct {
	ratings core.RatingStore
	blobs   core.BlobStore
	cfg     Config
	logger  *slog.Logger

	mu  sync.RWMutex
	cur *Snapshot

	flight singleflight.Group

	simMu    sync.Mutex
	simCache map[string]*simEntry

	uncenteredSim bool
}

type simEntry struct {
	version string
	sim     *Dense
}

// Option 配置 Manager。
type Option func(*Manager)

// WithBlobStore 启用快照持久化。
func WithBlobStore(b core.BlobStore) Option {
	return func(m *Manager) { m.blobs = b }
}

// WithLogger 注入日志器，默认 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithUncenteredSimilarity 让相似度计算跳过去均值。
// 适用于用户/香水很少的数据集：二维去均值向量只能共线，
// 相似度会退化为 ±1，过滤阈值因此失效。
func WithUncenteredSimilarity() Option {
	return func(m *Manager) { m.uncenteredSim = true }
}

// WithConfig 覆盖默认参数；零值字段保留默认。
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.FreshnessWindow > 0 {
			m.cfg.FreshnessWindow = cfg.FreshnessWindow
		}
		if cfg.BatchSize > 0 {
			m.cfg.BatchSize = cfg.BatchSize
		}
		if cfg.MaxVersions > 0 {
			m.cfg.MaxVersions = cfg.MaxVersions
		}
		if cfg.SnapshotPrefix != "" {
			m.cfg.SnapshotPrefix = cfg.SnapshotPrefix
		}
	}
}

// NewManager 创建矩阵管理器。ratings 为必需；不配置 BlobStore 时纯内存运行。
func NewManager(ratings core.RatingStore, opts ...Option) *Manager {
	m := &Manager{
		ratings:  ratings,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		simCache: make(map[string]*simEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOptions 控制一次快照获取的行为。
type GetOptions struct {
	// ForceRebuild 无条件全量重建。
	ForceRebuild bool
	// AllowIncremental 允许尝试增量更新；增量失败时自动回退全量重建。
	AllowIncremental bool
}

// GetSnapshot 返回一个满足新鲜度要求的矩阵快照。
//
// 决策顺序：强制重建 / 尚未加载 / 已过期 → 全量重建；
// 内容哈希未变 → 直接返回当前快照；
// 哈希变化且允许增量 → 尝试增量更新，失败（包括发现映射之外的新 id）回退全量；
// 哈希变化但不允许增量 → 全量重建。
func (m *Manager) GetSnapshot(ctx context.Context, opts GetOptions) (*Snapshot, error) {
	cur := m.current()

	if opts.ForceRebuild || cur == nil || m.isStale(cur) {
		return m.rebuild(ctx)
	}

	changed, err := m.dataChanged(ctx, cur)
	if err != nil {
		// 哈希检查失败不致命：继续用最后已知的好矩阵
		m.logger.Warn("content hash check failed, serving cached matrix", "err", err)
		return cur, nil
	}
	if !changed {
		return cur, nil
	}

	if opts.AllowIncremental {
		snap, err := m.incremental(ctx)
		if err == nil {
			return snap, nil
		}
		if core.IsInconsistentMapping(err) {
			m.logger.Info("new user or perfume id detected, falling back to full rebuild")
		} else {
			m.logger.Warn("incremental update failed, falling back to full rebuild", "err", err)
		}
	}
	return m.rebuild(ctx)
}

// Matrix 按指定布局返回评分矩阵（LayoutColumn 惰性派生并缓存）。
func (m *Manager) Matrix(ctx context.Context, layout Layout, opts GetOptions) (interface{}, error) {
	snap, err := m.GetSnapshot(ctx, opts)
	if err != nil {
		return nil, err
	}
	if layout == LayoutColumn {
		return snap.Columns(), nil
	}
	return snap.Rows(), nil
}

// Refresh 主动触发一次刷新；force 为 true 时无条件全量重建。
func (m *Manager) Refresh(ctx context.Context, force bool) error {
	_, err := m.GetSnapshot(ctx, GetOptions{ForceRebuild: force, AllowIncremental: true})
	return err
}

// UserSimilarity 返回用户-用户相似度矩阵（按需计算，按矩阵版本缓存）。
func (m *Manager) UserSimilarity(ctx context.Context) (*Dense, error) {
	return m.similarity(ctx, simKeyUser)
}

// ItemSimilarity 返回香水-香水相似度矩阵（按需计算，按矩阵版本缓存）。
func (m *Manager) ItemSimilarity(ctx context.Context) (*Dense, error) {
	return m.similarity(ctx, simKeyItem)
}

func (m *Manager) similarity(ctx context.Context, key string) (*Dense, error) {
	snap, err := m.GetSnapshot(ctx, GetOptions{AllowIncremental: true})
	if err != nil {
		return nil, err
	}

	// 缓存填充在锁内完成：并发首次访问只计算一次。
	m.simMu.Lock()
	defer m.simMu.Unlock()

	if e, ok := m.simCache[key]; ok && e.version == snap.Version() {
		return e.sim, nil
	}

	var d *Dense
	switch key {
	case simKeyUser:
		if m.uncenteredSim {
			d = UserSimilarityUncentered(snap.Rows())
		} else {
			d = UserSimilarity(snap.Rows())
		}
	case simKeyItem:
		if m.uncenteredSim {
			d = ItemSimilarityUncentered(snap.Columns())
		} else {
			d = ItemSimilarity(snap.Columns())
		}
	default:
		return nil, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInvalidInput,
			fmt.Sprintf("matrix: unknown similarity key %q", key))
	}
	m.simCache[key] = &simEntry{version: snap.Version(), sim: d}
	return d, nil
}

func (m *Manager) current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

func (m *Manager) swap(snap *Snapshot) {
	m.mu.Lock()
	m.cur = snap
	m.mu.Unlock()
}

func (m *Manager) isStale(s *Snapshot) bool {
	if s.meta.LastUpdated.IsZero() {
		return true
	}
	return time.Since(s.meta.LastUpdated) > m.cfg.FreshnessWindow
}

func (m *Manager) dataChanged(ctx context.Context, s *Snapshot) (bool, error) {
	hash, err := m.contentHash(ctx)
	if err != nil {
		return false, err
	}
	return hash != s.meta.DataHash, nil
}

// contentHash 用 (评分总数, 最大创建时间) 构成廉价的内容哈希。
func (m *Manager) contentHash(ctx context.Context) (string, error) {
	count, maxTS, err := m.ratings.RatingStats(ctx)
	if err != nil {
		return "", unavailable("rating stats", err)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%d_%s", count, maxTS.UTC().Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:]), nil
}

// rebuild 执行全量重建；singleflight 保证同一时刻至多一个重建在跑，
// 并发请求共享同一次结果。
func (m *Manager) rebuild(ctx context.Context) (*Snapshot, error) {
	v, err, _ := m.flight.Do("rebuild", func() (interface{}, error) {
		return m.rebuildFull(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (m *Manager) rebuildFull(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	// 只收录出现在至少一条评分中的用户/香水：冷启动实体交给兜底策略，
	// 不通过扩张稠密索引空间解决。
	userIDs, err := m.ratings.ListDistinctUserIDs(ctx)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	itemIDs, err := m.ratings.ListDistinctItemIDs(ctx)
	if err != nil {
		return nil, unavailable("list perfumes", err)
	}
	users := NewIndexMapping(userIDs)
	items := NewIndexMapping(itemIDs)

	// 固定批次流式装载，限制内存峰值
	var triples []Triple
	offset := 0
	for {
		batch, err := m.ratings.FetchRatings(ctx, m.cfg.BatchSize, offset)
		if err != nil {
			return nil, unavailable("fetch ratings", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, r := range batch {
			uidx, uok := users.Index(r.UserID)
			iidx, iok := items.Index(r.PerfumeID)
			if uok && iok {
				triples = append(triples, Triple{Row: uidx, Col: iidx, Val: float64(r.Rate)})
			}
		}
		offset += len(batch)
	}

	hash, err := m.contentHash(ctx)
	if err != nil {
		return nil, err
	}

	csr := NewCSRFromTriples(users.Len(), items.Len(), triples)
	now := time.Now()
	snap := &Snapshot{
		csr:   csr,
		users: users,
		items: items,
		meta: Metadata{
			CreatedAt:     now,
			LastUpdated:   now,
			DataHash:      hash,
			SchemaVersion: schemaVersion,
		},
		stats: computeStats(csr),
	}

	m.persist(ctx, snap)
	m.swap(snap)

	m.logger.Info("rating matrix rebuilt",
		"users", users.Len(), "perfumes", items.Len(),
		"ratings", csr.NNZ(), "took", time.Since(start))
	return snap, nil
}

var errInconsistentMapping = core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInconsistentMapping,
	"matrix: rating references an id outside the current index mapping")

// incremental 尝试把 last_updated 之后的新评分写入矩阵的克隆并整体替换。
// 任一评分引用了映射之外的 id 时返回 INCONSISTENT_MAPPING：克隆被整体丢弃，
// 调用方从最后确认的好状态全量重建，不存在半应用的矩阵。
func (m *Manager) incremental(ctx context.Context) (*Snapshot, error) {
	v, err, _ := m.flight.Do("incremental", func() (interface{}, error) {
		cur := m.current()
		if cur == nil {
			return nil, errInconsistentMapping
		}

		recs, err := m.ratings.FetchRatingsSince(ctx, cur.meta.LastUpdated)
		if err != nil {
			return nil, unavailable("fetch ratings since", err)
		}
		if len(recs) == 0 {
			return cur, nil
		}

		clone := cur.csr.Clone()
		for _, r := range recs {
			uidx, uok := cur.users.Index(r.UserID)
			iidx, iok := cur.items.Index(r.PerfumeID)
			if !uok || !iok {
				return nil, errInconsistentMapping
			}
			// 同一 (user, perfume) 的新值直接覆盖旧值，不做聚合
			clone.Set(uidx, iidx, float64(r.Rate))
		}

		hash, err := m.contentHash(ctx)
		if err != nil {
			return nil, err
		}

		snap := &Snapshot{
			csr:   clone,
			users: cur.users,
			items: cur.items,
			meta: Metadata{
				CreatedAt:     cur.meta.CreatedAt,
				LastUpdated:   time.Now(),
				DataHash:      hash,
				SchemaVersion: cur.meta.SchemaVersion,
			},
			stats: computeStats(clone),
		}
		m.swap(snap)
		m.logger.Info("rating matrix updated incrementally", "new_ratings", len(recs))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func unavailable(op string, err error) error {
	return core.NewDomainError(core.ModuleMatrix, core.ErrorCodeUnavailable,
		fmt.Sprintf("matrix: %s: %v", op, err))
}
