package matrix_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scentlab/scentkit/blob"
	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/matrix"
	"github.com/scentlab/scentkit/store"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// baseRatings：用户 [1,2]，香水 [10,20,30]
//
//	u1: 10→5, 20→3
//	u2: 10→4, 30→5
func baseRatings() []core.RatingRecord {
	return []core.RatingRecord{
		{UserID: 1, PerfumeID: 10, Rate: 5, CreatedAt: baseTime},
		{UserID: 1, PerfumeID: 20, Rate: 3, CreatedAt: baseTime.Add(time.Minute)},
		{UserID: 2, PerfumeID: 10, Rate: 4, CreatedAt: baseTime.Add(2 * time.Minute)},
		{UserID: 2, PerfumeID: 30, Rate: 5, CreatedAt: baseTime.Add(3 * time.Minute)},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedRatings(t *testing.T, ms *store.MemoryStore, ratings []core.RatingRecord) {
	t.Helper()
	if err := store.SeedRatingData(context.Background(), ms, store.RatingDataset{Ratings: ratings}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func newManager(t *testing.T, ratings []core.RatingRecord, opts ...matrix.Option) (*matrix.Manager, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	seedRatings(t, ms, ratings)
	opts = append([]matrix.Option{matrix.WithLogger(quietLogger())}, opts...)
	return matrix.NewManager(store.NewRatingAdapter(ms, ""), opts...), ms
}

func cell(t *testing.T, snap *matrix.Snapshot, userID, perfumeID int64) float64 {
	t.Helper()
	uidx, ok := snap.Users().Index(userID)
	if !ok {
		t.Fatalf("user %d not in mapping", userID)
	}
	iidx, ok := snap.Items().Index(perfumeID)
	if !ok {
		t.Fatalf("perfume %d not in mapping", perfumeID)
	}
	return snap.Rows().At(uidx, iidx)
}

func TestRebuildShapeAndCells(t *testing.T) {
	mgr, _ := newManager(t, baseRatings())

	snap, err := mgr.GetSnapshot(context.Background(), matrix.GetOptions{})
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	if snap.Users().Len() != 2 || snap.Items().Len() != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", snap.Users().Len(), snap.Items().Len())
	}
	wantCells := map[[2]int64]float64{
		{1, 10}: 5, {1, 20}: 3, {1, 30}: 0,
		{2, 10}: 4, {2, 20}: 0, {2, 30}: 5,
	}
	for k, want := range wantCells {
		if got := cell(t, snap, k[0], k[1]); got != want {
			t.Fatalf("cell(u%d, p%d) = %v, want %v", k[0], k[1], got, want)
		}
	}

	stats := snap.Stats()
	if stats.Ratings != 4 || stats.Users != 2 || stats.Items != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.RatingDistribution[5] != 2 || stats.RatingDistribution[3] != 1 || stats.RatingDistribution[4] != 1 {
		t.Fatalf("rating distribution = %v", stats.RatingDistribution)
	}
	if snap.Version() == "" {
		t.Fatal("snapshot version is empty")
	}
}

func TestUnchangedDataReusesSnapshot(t *testing.T) {
	mgr, _ := newManager(t, baseRatings())
	ctx := context.Background()

	first, err := mgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("first GetSnapshot failed: %v", err)
	}
	second, err := mgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("second GetSnapshot failed: %v", err)
	}

	// 数据未变：不重建，直接复用同一快照
	if first != second {
		t.Fatal("unchanged data should reuse the same snapshot")
	}
	if first.Version() != second.Version() {
		t.Fatal("version changed without data change")
	}
}

func TestForceRebuildReplacesSnapshot(t *testing.T) {
	mgr, _ := newManager(t, baseRatings())
	ctx := context.Background()

	first, err := mgr.GetSnapshot(ctx, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	second, err := mgr.GetSnapshot(ctx, matrix.GetOptions{ForceRebuild: true})
	if err != nil {
		t.Fatalf("forced GetSnapshot failed: %v", err)
	}

	if first == second {
		t.Fatal("ForceRebuild should produce a new snapshot")
	}
	// 同一份数据：内容哈希一致
	if first.Version() != second.Version() {
		t.Fatalf("version %q != %q for identical data", first.Version(), second.Version())
	}
}

func TestIncrementalUpdateAppliesNewRatings(t *testing.T) {
	mgr, ms := newManager(t, baseRatings())
	ctx := context.Background()

	first, err := mgr.GetSnapshot(ctx, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	// 已知用户给已知香水打分：映射不变，增量路径可以接住
	extra := append(baseRatings(), core.RatingRecord{
		UserID: 1, PerfumeID: 30, Rate: 4, CreatedAt: time.Now().Add(time.Minute),
	})
	seedRatings(t, ms, extra)

	second, err := mgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("incremental GetSnapshot failed: %v", err)
	}

	if second == first {
		t.Fatal("snapshot not replaced after new rating")
	}
	if second.Version() == first.Version() {
		t.Fatal("version unchanged after new rating")
	}
	// 增量更新复用既有映射
	if second.Users() != first.Users() || second.Items() != first.Items() {
		t.Fatal("incremental update should reuse the existing mappings")
	}
	if got := cell(t, second, 1, 30); got != 4 {
		t.Fatalf("cell(u1, p30) = %v, want 4", got)
	}
	// 旧快照不受影响
	if got := cell(t, first, 1, 30); got != 0 {
		t.Fatalf("old snapshot mutated: cell(u1, p30) = %v", got)
	}
	if second.Stats().Ratings != 5 {
		t.Fatalf("stats.Ratings = %d, want 5", second.Stats().Ratings)
	}
}

func TestIncrementalMatchesFullRebuild(t *testing.T) {
	extra := append(baseRatings(), core.RatingRecord{
		UserID: 2, PerfumeID: 20, Rate: 2, CreatedAt: time.Now().Add(time.Minute),
	})
	ctx := context.Background()

	incMgr, incStore := newManager(t, baseRatings())
	if _, err := incMgr.GetSnapshot(ctx, matrix.GetOptions{}); err != nil {
		t.Fatalf("initial build failed: %v", err)
	}
	seedRatings(t, incStore, extra)
	incSnap, err := incMgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("incremental GetSnapshot failed: %v", err)
	}

	fullMgr, _ := newManager(t, extra)
	fullSnap, err := fullMgr.GetSnapshot(ctx, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("full rebuild failed: %v", err)
	}

	// 逐 cell 对拍：增量结果与全量重建一致
	for _, userID := range []int64{1, 2} {
		for _, perfumeID := range []int64{10, 20, 30} {
			inc := cell(t, incSnap, userID, perfumeID)
			full := cell(t, fullSnap, userID, perfumeID)
			if inc != full {
				t.Fatalf("cell(u%d, p%d): incremental %v != full %v", userID, perfumeID, inc, full)
			}
		}
	}
	if incSnap.Version() != fullSnap.Version() {
		t.Fatal("incremental and full rebuild diverge on content hash")
	}
}

func TestIncrementalNewIDFallsBackToFullRebuild(t *testing.T) {
	mgr, ms := newManager(t, baseRatings())
	ctx := context.Background()

	if _, err := mgr.GetSnapshot(ctx, matrix.GetOptions{}); err != nil {
		t.Fatalf("initial build failed: %v", err)
	}

	// 新用户的评分在映射之外：增量必须放弃，透明回退全量重建
	extra := append(baseRatings(), core.RatingRecord{
		UserID: 3, PerfumeID: 10, Rate: 5, CreatedAt: time.Now().Add(time.Minute),
	})
	seedRatings(t, ms, extra)

	snap, err := mgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap.Users().Len() != 3 {
		t.Fatalf("users = %d, want 3 after full rebuild", snap.Users().Len())
	}
	if got := cell(t, snap, 3, 10); got != 5 {
		t.Fatalf("cell(u3, p10) = %v, want 5", got)
	}
}

func TestSimilarityCachedPerVersion(t *testing.T) {
	mgr, ms := newManager(t, baseRatings(), matrix.WithUncenteredSimilarity())
	ctx := context.Background()

	first, err := mgr.ItemSimilarity(ctx)
	if err != nil {
		t.Fatalf("ItemSimilarity failed: %v", err)
	}
	again, err := mgr.ItemSimilarity(ctx)
	if err != nil {
		t.Fatalf("ItemSimilarity failed: %v", err)
	}
	if first != again {
		t.Fatal("same version should return the cached similarity matrix")
	}

	// 新评分 → 新版本 → 缓存失效
	seedRatings(t, ms, append(baseRatings(), core.RatingRecord{
		UserID: 1, PerfumeID: 30, Rate: 2, CreatedAt: time.Now().Add(time.Minute),
	}))
	after, err := mgr.ItemSimilarity(ctx)
	if err != nil {
		t.Fatalf("ItemSimilarity failed: %v", err)
	}
	if after == first {
		t.Fatal("similarity cache not invalidated by new matrix version")
	}
}

func TestPersistAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blob.NewFSBlobStore(dir)
	if err != nil {
		t.Fatalf("NewFSBlobStore failed: %v", err)
	}
	ctx := context.Background()

	mgr, ms := newManager(t, baseRatings(), matrix.WithBlobStore(blobs))
	built, err := mgr.GetSnapshot(ctx, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	// 第二个管理器共享同一个目录，从 latest 别名恢复
	restoredMgr := matrix.NewManager(store.NewRatingAdapter(ms, ""),
		matrix.WithBlobStore(blobs), matrix.WithLogger(quietLogger()))
	if err := restoredMgr.LoadLatest(ctx); err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}

	restored, err := restoredMgr.GetSnapshot(ctx, matrix.GetOptions{AllowIncremental: true})
	if err != nil {
		t.Fatalf("GetSnapshot after restore failed: %v", err)
	}
	if restored.Version() != built.Version() {
		t.Fatalf("restored version %q != built %q", restored.Version(), built.Version())
	}
	if restored.Users().Len() != built.Users().Len() || restored.Items().Len() != built.Items().Len() {
		t.Fatal("restored mappings differ from built snapshot")
	}
	for _, userID := range []int64{1, 2} {
		for _, perfumeID := range []int64{10, 20, 30} {
			if cell(t, restored, userID, perfumeID) != cell(t, built, userID, perfumeID) {
				t.Fatalf("restored cell(u%d, p%d) differs", userID, perfumeID)
			}
		}
	}
}

func TestLoadLatestWithoutBlobStore(t *testing.T) {
	mgr, _ := newManager(t, baseRatings())
	if err := mgr.LoadLatest(context.Background()); !core.IsNotSupported(err) {
		t.Fatalf("err = %v, want NOT_SUPPORTED", err)
	}
}

func TestSnapshotRetention(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blob.NewFSBlobStore(dir)
	if err != nil {
		t.Fatalf("NewFSBlobStore failed: %v", err)
	}
	ctx := context.Background()

	mgr, _ := newManager(t, baseRatings(),
		matrix.WithBlobStore(blobs),
		matrix.WithConfig(matrix.Config{MaxVersions: 1}))

	// 快照名精确到秒：隔秒重建产生不同名字，回收只保留最近一份
	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(1100 * time.Millisecond)
		}
		if err := mgr.Refresh(ctx, true); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}

	names, err := blobs.List(ctx, "rating_matrix_2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("retained %d snapshots %v, want 1", len(names), names)
	}

	// latest 别名仍然指向存活的那份
	if _, err := blobs.Read(ctx, "rating_matrix_latest.json"); err != nil {
		t.Fatalf("latest alias broken: %v", err)
	}
}

func TestMatrixLayouts(t *testing.T) {
	mgr, _ := newManager(t, baseRatings())
	ctx := context.Background()

	rowsAny, err := mgr.Matrix(ctx, matrix.LayoutRow, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("Matrix(row) failed: %v", err)
	}
	csr, ok := rowsAny.(*matrix.CSR)
	if !ok {
		t.Fatalf("row layout returned %T", rowsAny)
	}

	colsAny, err := mgr.Matrix(ctx, matrix.LayoutColumn, matrix.GetOptions{})
	if err != nil {
		t.Fatalf("Matrix(column) failed: %v", err)
	}
	csc, ok := colsAny.(*matrix.CSC)
	if !ok {
		t.Fatalf("column layout returned %T", colsAny)
	}

	if csr.NNZ() != csc.NNZ() {
		t.Fatalf("layouts disagree: CSR NNZ %d, CSC NNZ %d", csr.NNZ(), csc.NNZ())
	}
}
