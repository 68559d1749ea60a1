package feast

import (
	"context"
	"testing"
)

type fakeClient struct {
	values map[string]interface{}
	err    error
	closed bool
}

func (f *fakeClient) GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &GetOnlineFeaturesResponse{
		FeatureVectors: []FeatureVector{{
			Values:    f.values,
			EntityRow: req.EntityRows[0],
		}},
	}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestFeatureSourceFetch(t *testing.T) {
	client := &fakeClient{values: map[string]interface{}{
		"perfume_features:brand":          "maison-a",
		"perfume_features:intensity":      "strong",
		"perfume_features:price_category": "premium",
		"perfume_features:notes_json":     `{"top":["bergamot"],"base":["amber"]}`,
	}}
	src := NewFeatureSource(client)

	f, err := src.FetchItemFeatures(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchItemFeatures failed: %v", err)
	}
	if f == nil || f.Brand != "maison-a" || f.Intensity != "strong" {
		t.Fatalf("features = %+v", f)
	}
	if len(f.Notes["top"]) != 1 || f.Notes["top"][0] != "bergamot" {
		t.Fatalf("notes = %v", f.Notes)
	}
}

func TestFeatureSourceMissingPerfume(t *testing.T) {
	// Feature Store 没有该香水：所有特征为空，返回 (nil, nil)
	src := NewFeatureSource(&fakeClient{values: map[string]interface{}{}})

	f, err := src.FetchItemFeatures(context.Background(), 404)
	if err != nil || f != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil)", f, err)
	}
}

func TestFeatureSourceCustomView(t *testing.T) {
	client := &fakeClient{values: map[string]interface{}{
		"fragrance:brand": "maison-b",
	}}
	src := NewFeatureSource(client, WithFeatureView("fragrance"), WithEntityKey("fragrance_id"))

	f, err := src.FetchItemFeatures(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchItemFeatures failed: %v", err)
	}
	if f == nil || f.Brand != "maison-b" {
		t.Fatalf("features = %+v", f)
	}
}
