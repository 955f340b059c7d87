package retry

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/playwright-community/playwright-go"
)

// RetryableError 明确标记为可重试的错误
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// PermanentError 不可重试的错误
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Retryable 包装为可重试错误
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Permanent 包装为不可重试错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent 是否为不可重试错误
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// IsRetryable 错误分类：显式不可重试、上下文取消为否；显式可重试、网络错误、超时为是；其余为否
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) || errors.Is(err, context.Canceled) {
		return false
	}

	var r *RetryableError
	if errors.As(err, &r) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
