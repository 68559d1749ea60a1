package filter

import (
	"context"

	"github.com/scentlab/scentkit/core"
	"github.com/scentlab/scentkit/pkg/dsl"
)

// RuleFilter 按 CEL 规则表达式过滤推荐结果。
// 表达式描述"保留条件"：求值为 false 的 item 被移除。
//
// 示例：
//   - `item.score >= 3.0`
//   - `label.fallback != "true"`
//   - `label.method == "item_based_cf" && item.confidence > 0.5`
type RuleFilter struct {
	// Expr 是 CEL 保留条件；空表达式保留一切。
	Expr string
}

// NewRuleFilter 创建规则过滤器。
func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(ctx context.Context, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	keep, err := dsl.NewEval(item).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}

var _ Filter = (*RuleFilter)(nil)
