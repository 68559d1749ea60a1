package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误语义与推荐链路的对应关系：
//   - UNAVAILABLE：必需的存储/磁盘读取失败，向调用方透出
//   - INCONSISTENT_MAPPING：评分引用了当前索引映射之外的 id，
//     触发强制全量重建，从不透出给调用方
//   - INTERNAL_ERROR：打分过程中的意外失败，在策略边界转为兜底结果
//
// "数据不足"（用户不满足某策略的门槛）不是错误：
// 通过 Strategy.CanRecommend 返回 false 表达。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "matrix", "strategy"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound            = "NOT_FOUND"            // 资源不存在
	ErrorCodeNotSupported        = "NOT_SUPPORTED"        // 操作不支持
	ErrorCodeUnavailable         = "UNAVAILABLE"          // 存储/磁盘不可用
	ErrorCodeInconsistentMapping = "INCONSISTENT_MAPPING" // id 不在当前索引映射中
	ErrorCodeInvalidInput        = "INVALID_INPUT"        // 输入无效
	ErrorCodeInternalError       = "INTERNAL_ERROR"       // 内部错误
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 通用 KV 存储
	ModuleRatings  = "ratings"  // 评分存储
	ModuleMatrix   = "matrix"   // 评分矩阵
	ModuleBlob     = "blob"     // 快照持久化
	ModuleStrategy = "strategy" // 推荐策略
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsInconsistentMapping 检查错误是否为 INCONSISTENT_MAPPING。
// 该错误只在矩阵增量更新内部流转，调用方看到它意味着需要全量重建。
func IsInconsistentMapping(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInconsistentMapping
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}
