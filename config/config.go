// Package config 提供配置驱动的引擎装配（支持 YAML/JSON）。
//
// 示例配置：
//
//	matrix:
//	  freshness_window: 24h
//	  batch_size: 50000
//	  max_versions: 5
//	  uncentered_similarity: false
//	strategies:
//	  order: [item_based_cf, user_based, content_based]
//	  content_based:
//	    feature_weights: {brand: 0.3, intensity: 0.3, price_category: 0.1, notes: 0.15}
//	  item_based_cf:
//	    similarity_threshold: 0.1
//	  user_based:
//	    similarity_threshold: 0.1
//	    k_neighbors: 30
//	filters:
//	  - rule: 'label.fallback != "true"'
//	rerank:
//	  - diversity: {label: brand, max_per_key: 1}
//	  - top_n: 10
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scentlab/scentkit/engine"
	"github.com/scentlab/scentkit/filter"
	"github.com/scentlab/scentkit/matrix"
	"github.com/scentlab/scentkit/provider"
	"github.com/scentlab/scentkit/rerank"
	"github.com/scentlab/scentkit/strategy"
)

// Duration 是支持 "24h"/"30m" 写法的 time.Duration。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config 是引擎的完整配置。所有字段可选，零值回落到内置默认。
type Config struct {
	Matrix     MatrixConfig     `yaml:"matrix" json:"matrix"`
	Strategies StrategiesConfig `yaml:"strategies" json:"strategies"`
	Filters    []FilterConfig   `yaml:"filters" json:"filters"`
	Rerank     []RerankConfig   `yaml:"rerank" json:"rerank"`
}

// MatrixConfig 对应矩阵管理器参数。
type MatrixConfig struct {
	FreshnessWindow      Duration `yaml:"freshness_window" json:"freshness_window"`
	BatchSize            int      `yaml:"batch_size" json:"batch_size"`
	MaxVersions          int      `yaml:"max_versions" json:"max_versions"`
	SnapshotPrefix       string   `yaml:"snapshot_prefix" json:"snapshot_prefix"`
	UncenteredSimilarity bool     `yaml:"uncentered_similarity" json:"uncentered_similarity"`
}

// StrategiesConfig 对应策略装配与各策略的可调参数。
type StrategiesConfig struct {
	// Order 为策略名列表，兼作自动选择的优先级；空值使用引擎默认。
	Order        []string           `yaml:"order" json:"order"`
	ContentBased ContentBasedConfig `yaml:"content_based" json:"content_based"`
	ItemBasedCF  CFConfig           `yaml:"item_based_cf" json:"item_based_cf"`
	UserBasedCF  CFConfig           `yaml:"user_based" json:"user_based"`
}

// ContentBasedConfig 对应内容策略参数。
type ContentBasedConfig struct {
	FeatureWeights map[string]float64 `yaml:"feature_weights" json:"feature_weights"`
}

// CFConfig 对应协同过滤策略参数。
type CFConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	KNeighbors          int     `yaml:"k_neighbors" json:"k_neighbors"`
}

// FilterConfig 对应一个后置过滤器。
type FilterConfig struct {
	// Rule 为 CEL 保留条件表达式。
	Rule string `yaml:"rule" json:"rule"`
	// Blacklist 为内存黑名单香水 id。
	Blacklist []int64 `yaml:"blacklist" json:"blacklist"`
}

// RerankConfig 对应一个列表级重排环节。
type RerankConfig struct {
	Diversity *DiversityConfig `yaml:"diversity" json:"diversity"`
	TopN      int              `yaml:"top_n" json:"top_n"`
}

// DiversityConfig 对应多样性重排参数。
type DiversityConfig struct {
	Label     string `yaml:"label" json:"label"`
	MaxPerKey int    `yaml:"max_per_key" json:"max_per_key"`
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// MatrixOptions 把矩阵配置转换为 matrix.Manager 的 Option。
func (c *Config) MatrixOptions() []matrix.Option {
	opts := []matrix.Option{
		matrix.WithConfig(matrix.Config{
			FreshnessWindow: time.Duration(c.Matrix.FreshnessWindow),
			BatchSize:       c.Matrix.BatchSize,
			MaxVersions:     c.Matrix.MaxVersions,
			SnapshotPrefix:  c.Matrix.SnapshotPrefix,
		}),
	}
	if c.Matrix.UncenteredSimilarity {
		opts = append(opts, matrix.WithUncenteredSimilarity())
	}
	return opts
}

// BuildEngine 按配置装配引擎：构建策略实例、过滤链并绑定数据面。
func (c *Config) BuildEngine(p *provider.Provider) (*engine.Engine, error) {
	sts, err := c.buildStrategies()
	if err != nil {
		return nil, err
	}

	filters := make([]filter.Filter, 0, len(c.Filters))
	for _, fc := range c.Filters {
		switch {
		case fc.Rule != "":
			filters = append(filters, filter.NewRuleFilter(fc.Rule))
		case len(fc.Blacklist) > 0:
			filters = append(filters, filter.NewBlacklistFilter(fc.Blacklist, nil, ""))
		}
	}

	rerankers := make([]rerank.Reranker, 0, len(c.Rerank))
	for _, rc := range c.Rerank {
		switch {
		case rc.Diversity != nil:
			rerankers = append(rerankers, &rerank.Diversity{
				LabelKey:  rc.Diversity.Label,
				MaxPerKey: rc.Diversity.MaxPerKey,
			})
		case rc.TopN > 0:
			rerankers = append(rerankers, &rerank.TopN{N: rc.TopN})
		}
	}

	opts := []engine.Option{engine.WithFilters(filters...)}
	if len(rerankers) > 0 {
		opts = append(opts, engine.WithRerankers(rerankers...))
	}
	if len(sts) > 0 {
		opts = append(opts, engine.WithStrategies(sts...))
	}
	return engine.New(p, opts...)
}

func (c *Config) buildStrategies() ([]strategy.Strategy, error) {
	if len(c.Strategies.Order) == 0 {
		return nil, nil
	}
	sts := make([]strategy.Strategy, 0, len(c.Strategies.Order))
	for _, name := range c.Strategies.Order {
		switch name {
		case strategy.NameContentBased:
			var opts []strategy.ContentOption
			if len(c.Strategies.ContentBased.FeatureWeights) > 0 {
				opts = append(opts, strategy.WithFeatureWeights(c.Strategies.ContentBased.FeatureWeights))
			}
			sts = append(sts, strategy.NewContentBased(opts...))
		case strategy.NameItemBasedCF:
			var opts []strategy.ItemCFOption
			if t := c.Strategies.ItemBasedCF.SimilarityThreshold; t > 0 {
				opts = append(opts, strategy.WithItemSimilarityThreshold(t))
			}
			sts = append(sts, strategy.NewItemBasedCF(opts...))
		case strategy.NameUserBasedCF:
			var opts []strategy.UserCFOption
			if t := c.Strategies.UserBasedCF.SimilarityThreshold; t > 0 {
				opts = append(opts, strategy.WithUserSimilarityThreshold(t))
			}
			if k := c.Strategies.UserBasedCF.KNeighbors; k > 0 {
				opts = append(opts, strategy.WithKNeighbors(k))
			}
			sts = append(sts, strategy.NewUserBasedCF(opts...))
		default:
			// 未知名字交给注册表，第三方策略也能配置化装配
			st, err := strategy.New(name)
			if err != nil {
				return nil, err
			}
			sts = append(sts, st)
		}
	}
	return sts, nil
}
