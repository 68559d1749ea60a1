package store

import (
	"context"
	"testing"
	"time"

	"github.com/scentlab/scentkit/core"
)

func seedTestDataset(t *testing.T) (*RatingAdapter, []core.RatingRecord) {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ratings := []core.RatingRecord{
		{UserID: 1, PerfumeID: 10, Rate: 5, CreatedAt: base},
		{UserID: 1, PerfumeID: 20, Rate: 3, CreatedAt: base.Add(time.Hour)},
		{UserID: 2, PerfumeID: 10, Rate: 4, CreatedAt: base.Add(2 * time.Hour)},
		{UserID: 2, PerfumeID: 30, Rate: 5, CreatedAt: base.Add(3 * time.Hour)},
	}
	ds := RatingDataset{
		Ratings: ratings,
		Catalog: []core.CatalogItem{
			{ID: 10, Name: "Amber Noir", Brand: "maison-a"},
			{ID: 20, Name: "Citrus Line", Brand: "maison-b"},
			{ID: 30, Name: "Oud Royal", Brand: "maison-a"},
		},
		Features: map[int64]*core.ItemFeatures{
			10: {Brand: "maison-a", Intensity: "strong", Notes: map[string][]string{"base": {"amber"}}},
		},
		Users: []core.User{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}},
	}
	if err := SeedRatingData(ctx, s, ds); err != nil {
		t.Fatalf("SeedRatingData failed: %v", err)
	}
	return NewRatingAdapter(s, ""), ratings
}

func TestRatingAdapterDistinctIDs(t *testing.T) {
	a, _ := seedTestDataset(t)
	ctx := context.Background()

	users, err := a.ListDistinctUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListDistinctUserIDs failed: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Fatalf("users = %v, want [1 2]", users)
	}

	items, err := a.ListDistinctItemIDs(ctx)
	if err != nil {
		t.Fatalf("ListDistinctItemIDs failed: %v", err)
	}
	if len(items) != 3 || items[0] != 10 || items[2] != 30 {
		t.Fatalf("items = %v, want [10 20 30]", items)
	}
}

func TestRatingAdapterFetchRatingsPaging(t *testing.T) {
	a, ratings := seedTestDataset(t)
	ctx := context.Background()

	var all []core.RatingRecord
	offset := 0
	for {
		batch, err := a.FetchRatings(ctx, 3, offset)
		if err != nil {
			t.Fatalf("FetchRatings failed: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		offset += len(batch)
	}
	if len(all) != len(ratings) {
		t.Fatalf("paged through %d records, want %d", len(all), len(ratings))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("records not in ascending created_at order at %d", i)
		}
	}
}

func TestRatingAdapterFetchRatingsSince(t *testing.T) {
	a, ratings := seedTestDataset(t)
	ctx := context.Background()

	since := ratings[1].CreatedAt
	recs, err := a.FetchRatingsSince(ctx, since)
	if err != nil {
		t.Fatalf("FetchRatingsSince failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records after %v, want 2", len(recs), since)
	}
	for _, r := range recs {
		if !r.CreatedAt.After(since) {
			t.Fatalf("record at %v not after %v", r.CreatedAt, since)
		}
	}
}

func TestRatingAdapterRatingStats(t *testing.T) {
	a, ratings := seedTestDataset(t)
	ctx := context.Background()

	count, maxCreatedAt, err := a.RatingStats(ctx)
	if err != nil {
		t.Fatalf("RatingStats failed: %v", err)
	}
	if count != int64(len(ratings)) {
		t.Fatalf("count = %d, want %d", count, len(ratings))
	}
	want := ratings[len(ratings)-1].CreatedAt
	if !maxCreatedAt.Equal(want) {
		t.Fatalf("maxCreatedAt = %v, want %v", maxCreatedAt, want)
	}
}

func TestRatingAdapterFeaturesAndUsers(t *testing.T) {
	a, _ := seedTestDataset(t)
	ctx := context.Background()

	f, err := a.FetchItemFeatures(ctx, 10)
	if err != nil {
		t.Fatalf("FetchItemFeatures failed: %v", err)
	}
	if f == nil || f.Brand != "maison-a" {
		t.Fatalf("features for item 10 = %+v", f)
	}

	// 没有特征的香水返回 (nil, nil) 而不是错误
	f, err = a.FetchItemFeatures(ctx, 20)
	if err != nil || f != nil {
		t.Fatalf("FetchItemFeatures(20) = (%+v, %v), want (nil, nil)", f, err)
	}

	u, err := a.FetchUser(ctx, 1)
	if err != nil || u == nil || u.Name != "alice" {
		t.Fatalf("FetchUser(1) = (%+v, %v)", u, err)
	}
	u, err = a.FetchUser(ctx, 99)
	if err != nil || u != nil {
		t.Fatalf("FetchUser(99) = (%+v, %v), want (nil, nil)", u, err)
	}

	recs, err := a.FetchUserRatings(ctx, 2)
	if err != nil {
		t.Fatalf("FetchUserRatings failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("user 2 has %d ratings, want 2", len(recs))
	}
}
