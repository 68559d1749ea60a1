package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/scentlab/scentkit/core"
)

// Builder 根据名字构建一个策略实例。
// 各策略在 init 中调用 Register(name, builder) 即可被引擎按名选用。
type Builder func() Strategy

var (
	defaultBuilders   = make(map[string]Builder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种策略的构建逻辑。
func Register(name string, builder Builder) {
	if name == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[name] = builder
}

// SupportedNames 返回当前已注册的策略名列表（排序），用于错误提示与校验。
func SupportedNames() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	names := make([]string, 0, len(defaultBuilders))
	for n := range defaultBuilders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New 按名字构建策略实例；未注册的名字返回 NOT_SUPPORTED。
func New(name string) (Strategy, error) {
	defaultBuildersMu.RLock()
	builder, ok := defaultBuilders[name]
	defaultBuildersMu.RUnlock()
	if !ok {
		return nil, core.NewDomainError(core.ModuleStrategy, core.ErrorCodeNotSupported,
			fmt.Sprintf("strategy: unknown strategy %q (supported: %v)", name, SupportedNames()))
	}
	return builder(), nil
}

func init() {
	Register(NameContentBased, func() Strategy { return NewContentBased() })
	Register(NameItemBasedCF, func() Strategy { return NewItemBasedCF() })
	Register(NameUserBasedCF, func() Strategy { return NewUserBasedCF() })
}
