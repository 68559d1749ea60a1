// Package engine 是 scentkit 的调用方入口：
// 按名字或自动选择策略生成推荐，应用后置过滤链，并提供矩阵刷新入口。
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/filter"
	"github.com/scentlab/scentkit/pkg/utils"
	"github.com/scentlab/scentkit/provider"
	"github.com/scentlab/scentkit/rerank"
	"github.com/scentlab/scentkit/strategy"
)

// StrategyAuto 让引擎按能力描述与资格检查自动挑选策略。
const StrategyAuto = "auto"

// 自动选择的优先级：信号强度从高到低。
// 物品协同过滤只要 2 条评分就有较强信号；用户协同过滤要求矩阵内有行；
// 内容推荐门槛最高（3 条）但对新香水友好，兜底交给策略内部。
var defaultOrder = []string{
	strategy.NameItemBasedCF,
	strategy.NameUserBasedCF,
	strategy.NameContentBased,
}

// Engine 组合数据面、策略注册表与过滤链。
type Engine struct {
	provider   *provider.Provider
	strategies map[string]strategy.Strategy
	order      []string
	injected   []strategy.Strategy
	filters    []filter.Filter
	rerankers  []rerank.Reranker
	logger     *slog.Logger
}

// Option 配置 Engine。
type Option func(*Engine)

// WithStrategyNames 限定引擎装配的策略集合（默认全部注册策略，按内置优先级）。
func WithStrategyNames(names ...string) Option {
	return func(e *Engine) {
		if len(names) > 0 {
			e.order = names
		}
	}
}

// WithStrategies 直接注入已构建的策略实例（配置驱动场景使用），
// 自动选择优先级按参数顺序；设置后 WithStrategyNames 失效。
func WithStrategies(sts ...strategy.Strategy) Option {
	return func(e *Engine) { e.injected = sts }
}

// WithFilters 设置后置过滤链，按给定顺序应用。
func WithFilters(filters ...filter.Filter) Option {
	return func(e *Engine) { e.filters = filters }
}

// WithRerankers 设置列表级重排链（多样性、截断等），在过滤链之后应用。
// 配置后，引擎会先尽力给结果补上品牌 label，供按品牌分组的重排器使用。
func WithRerankers(rerankers ...rerank.Reranker) Option {
	return func(e *Engine) { e.rerankers = rerankers }
}

// WithLogger 注入日志器，默认 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New 创建引擎并完成所有策略的数据面绑定。
func New(p *provider.Provider, opts ...Option) (*Engine, error) {
	e := &Engine{
		provider:   p,
		strategies: make(map[string]strategy.Strategy),
		order:      defaultOrder,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.injected) > 0 {
		e.order = make([]string, 0, len(e.injected))
		for _, st := range e.injected {
			st.Setup(p)
			e.strategies[st.Name()] = st
			e.order = append(e.order, st.Name())
		}
		return e, nil
	}

	for _, name := range e.order {
		st, err := strategy.New(name)
		if err != nil {
			return nil, err
		}
		st.Setup(p)
		e.strategies[name] = st
	}
	return e, nil
}

// Recommend 生成推荐列表。
//
// strategyName 为具体策略名或 StrategyAuto（空串等同 auto）。
// 对结构合法的 userID 永不因内部失败报错；只有数据不可用才返回错误。
func (e *Engine) Recommend(ctx context.Context, strategyName string, userID int64, opts strategy.Options) ([]*core.Item, error) {
	if opts.TopN <= 0 {
		opts.TopN = strategy.DefaultOptions().TopN
	}

	st, err := e.resolve(ctx, strategyName, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, err := st.Recommend(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	items = filter.Apply(ctx, e.filters, items)
	if len(e.rerankers) > 0 {
		e.annotateBrands(ctx, items)
		items = rerank.Apply(ctx, e.rerankers, items)
	}

	e.logger.Debug("recommendation served",
		"strategy", st.Name(), "user", userID,
		"items", len(items), "took", time.Since(start))
	return items, nil
}

// Refresh 主动刷新评分矩阵；force 为 true 时无条件全量重建。
func (e *Engine) Refresh(ctx context.Context, force bool) error {
	return e.provider.Refresh(ctx, force)
}

// Requirements 返回某个已装配策略的能力描述。
func (e *Engine) Requirements(strategyName string) (strategy.Requirements, error) {
	st, ok := e.strategies[strategyName]
	if !ok {
		return strategy.Requirements{}, core.NewDomainError(core.ModuleStrategy, core.ErrorCodeNotSupported,
			fmt.Sprintf("engine: strategy %q not configured", strategyName))
	}
	return st.Requirements(), nil
}

// Strategies 返回引擎装配的策略名，按自动选择优先级排列。
func (e *Engine) Strategies() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// annotateBrands 从特征来源给结果补品牌 label。尽力而为：
// 特征缺失或读取失败的条目保持原样，不影响请求。
func (e *Engine) annotateBrands(ctx context.Context, items []*core.Item) {
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := it.GetLabel("brand"); ok {
			continue
		}
		f, err := e.provider.ItemFeatures(ctx, it.ID)
		if err != nil || f == nil || f.Brand == "" {
			continue
		}
		it.PutLabel("brand", utils.Label{Value: f.Brand, Source: "features"})
	}
}

// resolve 把策略名解析成实例：具体名直接查表；
// auto 按优先级返回第一个资格检查通过的策略，全部不合格时
// 返回优先级最高的策略（其内部会退化为兜底列表）。
func (e *Engine) resolve(ctx context.Context, name string, userID int64) (strategy.Strategy, error) {
	if name != "" && name != StrategyAuto {
		st, ok := e.strategies[name]
		if !ok {
			return nil, core.NewDomainError(core.ModuleStrategy, core.ErrorCodeNotSupported,
				fmt.Sprintf("engine: strategy %q not configured (available: %v)", name, e.order))
		}
		return st, nil
	}

	for _, n := range e.order {
		st := e.strategies[n]
		if st.CanRecommend(ctx, userID, e.provider) {
			e.logger.Debug("strategy selected", "strategy", n, "user", userID)
			return st, nil
		}
	}
	return e.strategies[e.order[0]], nil
}
