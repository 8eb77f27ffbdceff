// Package apperr 定义了分析流水线中各阶段的错误类型。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 标识错误发生在哪个阶段。
type Kind string

const (
	KindExtraction    Kind = "extraction"
	KindConfiguration Kind = "configuration"
	KindAnalysis      Kind = "analysis"
	KindStorage       Kind = "storage"
)

// Error 携带阶段、描述以及底层原因。
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Extraction 表示文件无法打开或解析。
func Extraction(cause error, format string, args ...interface{}) error {
	return newError(KindExtraction, cause, format, args...)
}

// Configuration 表示内部参数非法，通常不会由用户输入触发。
func Configuration(cause error, format string, args ...interface{}) error {
	return newError(KindConfiguration, cause, format, args...)
}

// Analysis 表示 LLM 调用失败。
func Analysis(cause error, format string, args ...interface{}) error {
	return newError(KindAnalysis, cause, format, args...)
}

// Storage 表示持久化失败。
func Storage(cause error, format string, args ...interface{}) error {
	return newError(KindStorage, cause, format, args...)
}

// IsKind 判断错误链中是否存在指定阶段的 *Error。
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}
