package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config 重试配置
type Config struct {
	MaxAttempts         int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval     time.Duration `json:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval" mapstructure:"max_interval"`
	BackoffFactor       float64       `json:"backoff_factor" mapstructure:"backoff_factor"`
	RandomizationFactor float64       `json:"randomization_factor" mapstructure:"randomization_factor"`
}

// NetworkConfig 节点 RPC 调用的重试配置
var NetworkConfig = Config{
	MaxAttempts:         3,
	InitialInterval:     300 * time.Millisecond,
	MaxInterval:         5 * time.Second,
	BackoffFactor:       2.0,
	RandomizationFactor: 0.2,
}

// NoRetry 只执行一次
var NoRetry = Config{MaxAttempts: 1}

// Retryable 能自行判断是否可重试的错误
type Retryable interface {
	error
	IsRetryable() bool
}

// 未分类错误中常见的瞬时故障
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"i/o timeout",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"broken pipe",
	"eof",
}

// IsRetryable 判断错误是否值得重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Retrier 带指数退避的重试器，可并发使用
type Retrier struct {
	config Config
	logger *logrus.Logger
}

// NewRetrier 创建重试器
func NewRetrier(config Config, logger *logrus.Logger) *Retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Retrier{config: config, logger: logger}
}

// Config 返回当前配置
func (r *Retrier) Config() Config {
	return r.config
}

// Execute 执行 fn，遇到可重试错误时退避重试
func (r *Retrier) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Debugf("操作 '%s' 在第 %d 次尝试后成功", operation, attempt)
			}
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt == r.config.MaxAttempts {
			if attempt > 1 {
				r.logger.Warnf("操作 '%s' 在 %d 次尝试后失败: %v", operation, attempt, err)
				return fmt.Errorf("重试 %d 次后失败: %w", attempt, err)
			}
			return err
		}

		delay := r.delay(attempt)
		r.logger.Debugf("操作 '%s' 第 %d 次失败: %v，%v 后重试", operation, attempt, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}

// Do 带返回值的重试
func Do[T any](ctx context.Context, r *Retrier, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Execute(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// delay 第 attempt 次失败后的等待时间
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.InitialInterval) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if ceiling := float64(r.config.MaxInterval); ceiling > 0 && d > ceiling {
		d = ceiling
	}

	if f := r.config.RandomizationFactor; f > 0 {
		jitter := d * f
		d = d - jitter + rand.Float64()*jitter*2
	}

	if d < 0 {
		d = float64(r.config.InitialInterval)
	}
	return time.Duration(d)
}
