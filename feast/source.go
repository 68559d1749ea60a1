package feast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/pkg/conv"
)

// 香水特征在 Feature Store 中的默认布局。
// notes 以 JSON 字符串存放（香调类型 -> 香调列表），其余为单值字符串特征。
const (
	defaultFeatureView = "perfume_features"
	defaultEntityKey   = "perfume_id"

	featBrand     = "brand"
	featIntensity = "intensity"
	featPrice     = "price_category"
	featNotes     = "notes_json"
)

// FeatureSource 把 Feast 在线特征适配成内容推荐的特征来源，
// 实现 provider.FeatureSource。配置后，香水特征从 Feature Store
// 读取而不是评分存储（上游特征管道独立演进）。
type FeatureSource struct {
	client      Client
	featureView string
	entityKey   string
}

// SourceOption 配置 FeatureSource。
type SourceOption func(*FeatureSource)

// WithFeatureView 覆盖特征视图名（默认 "perfume_features"）。
func WithFeatureView(view string) SourceOption {
	return func(s *FeatureSource) {
		if view != "" {
			s.featureView = view
		}
	}
}

// WithEntityKey 覆盖实体键名（默认 "perfume_id"）。
func WithEntityKey(key string) SourceOption {
	return func(s *FeatureSource) {
		if key != "" {
			s.entityKey = key
		}
	}
}

// NewFeatureSource 创建 Feast 特征来源。
func NewFeatureSource(client Client, opts ...SourceOption) *FeatureSource {
	s := &FeatureSource{
		client:      client,
		featureView: defaultFeatureView,
		entityKey:   defaultEntityKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FeatureSource) ref(name string) string {
	return s.featureView + ":" + name
}

// FetchItemFeatures 按香水 id 拉取在线特征；
// Feature Store 中没有该香水时返回 (nil, nil)。
func (s *FeatureSource) FetchItemFeatures(ctx context.Context, itemID int64) (*core.ItemFeatures, error) {
	resp, err := s.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features: []string{
			s.ref(featBrand),
			s.ref(featIntensity),
			s.ref(featPrice),
			s.ref(featNotes),
		},
		EntityRows: []map[string]interface{}{{s.entityKey: itemID}},
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleRatings, core.ErrorCodeUnavailable,
			fmt.Sprintf("feast: fetch features for perfume %d: %v", itemID, err))
	}
	if len(resp.FeatureVectors) == 0 {
		return nil, nil
	}

	values := resp.FeatureVectors[0].Values
	f := &core.ItemFeatures{}
	if v, ok := conv.ToString(values[s.ref(featBrand)]); ok {
		f.Brand = v
	}
	if v, ok := conv.ToString(values[s.ref(featIntensity)]); ok {
		f.Intensity = v
	}
	if v, ok := conv.ToString(values[s.ref(featPrice)]); ok {
		f.PriceCategory = v
	}
	if v, ok := conv.ToString(values[s.ref(featNotes)]); ok && v != "" {
		var notes map[string][]string
		if err := json.Unmarshal([]byte(v), &notes); err == nil {
			f.Notes = notes
		}
	}

	if f.Empty() {
		return nil, nil
	}
	return f, nil
}

// Close 关闭底层客户端。
func (s *FeatureSource) Close() error {
	return s.client.Close()
}
