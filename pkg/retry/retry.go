package retry

import (
	"context"
	"errors"
	"time"
)

// Policy 统一的重试策略：最多 Attempts 次，失败后固定等待 Delay 再试
// 不做指数退避，也不加抖动，外部服务客户端各自注入自己的策略
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// PermanentError 包裹不应重试的错误，Do 遇到后立即返回内部错误
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent 将错误标记为永久失败
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do 执行 op，失败则按策略重试；永久错误和 ctx 取消会提前结束
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
