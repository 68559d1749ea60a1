package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/scentlab/scentkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
	)
	return env, err
}

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是推荐结果的规则解释器，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.method == "content_based" / label.fallback != "true"
//   - 数值：item.score > 3.0 / item.confidence >= 0.5
//   - 逻辑：label.method == "item_based_cf" && item.score > 4.0
//   - 存在性：label.fallback != null
//
// 示例：
//   - `item.score >= 3.5` → 只保留分数达标的推荐
//   - `label.fallback != "true"` → 剔除兜底结果
type Eval struct {
	item *core.Item
	env  *cel.Env
}

// NewEval 创建一个新的规则解释器。
func NewEval(item *core.Item) *Eval {
	env, _ := getCELEnv()
	return &Eval{item: item, env: env}
}

// Evaluate 解析并执行规则表达式，返回布尔结果。
// 空表达式恒为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("dsl: cel environment not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("dsl: compile error: %v", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("dsl: program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 访问不存在的 key 会报错，存在性检查请用 label.key != null
		return false, fmt.Errorf("dsl: eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	for k, v := range e.item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.method 直接返回 value，简化常见写法
		labelAccessor[k] = v.Value
	}

	item := map[string]interface{}{
		"id":         e.item.ID,
		"score":      e.item.Score,
		"confidence": e.item.Confidence,
		"labels":     labels,
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
	}
}
