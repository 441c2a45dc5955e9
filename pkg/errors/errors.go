// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 排课引擎相关
	CodeInstanceFormat        Code = "INSTANCE_FORMAT"
	CodeInfeasibleInstance    Code = "INFEASIBLE_INSTANCE"
	CodeConstructionExhausted Code = "CONSTRUCTION_EXHAUSTED"
	CodeVerificationFailed    Code = "VERIFICATION_FAILED"
	CodeNoFeasibleSolution    Code = "NO_FEASIBLE_SOLUTION"

	// 数据相关
	CodeDatabaseError Code = "DATABASE_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// 预定义错误
var (
	ErrNotFound           = New(CodeNotFound, "资源不存在")
	ErrInvalidInput       = New(CodeInvalidInput, "输入参数无效")
	ErrInternal           = New(CodeInternal, "内部错误")
	ErrTimeout            = New(CodeTimeout, "操作超时")
	ErrNoFeasibleSolution = New(CodeNoFeasibleSolution, "无可行解")
)

// InstanceFormat 创建实例格式错误
// line 为出错行号（从1开始），0表示与具体行无关
func InstanceFormat(line int, reason string) *AppError {
	if line > 0 {
		return New(CodeInstanceFormat, fmt.Sprintf("第 %d 行格式错误: %s", line, reason))
	}
	return New(CodeInstanceFormat, fmt.Sprintf("实例格式错误: %s", reason))
}

// InfeasibleInstance 创建实例不可行错误
func InfeasibleInstance(courseID, reason string) *AppError {
	return New(CodeInfeasibleInstance, fmt.Sprintf("课程 '%s' 不可行: %s", courseID, reason))
}

// ConstructionExhausted 创建构造失败错误
func ConstructionExhausted(builder, reason string) *AppError {
	return New(CodeConstructionExhausted, fmt.Sprintf("构造器 %s 失败: %s", builder, reason))
}

// VerificationFailed 创建终验失败错误
// 该错误意味着状态不变式被破坏，属于编程错误信号
func VerificationFailed(reason string) *AppError {
	return New(CodeVerificationFailed, fmt.Sprintf("最终硬约束校验失败: %s", reason))
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}
