package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// GracefulShutdown 收到信号后按顺序关闭各组件
type GracefulShutdown struct {
	logger   *logrus.Logger
	timeout  time.Duration
	handlers []handler
	mu       sync.Mutex
	signals  chan os.Signal
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
	done     chan struct{}
	err      error
}

type handler struct {
	name  string
	fn    func(ctx context.Context) error
	order int // 数字越小越早执行
}

// NewGracefulShutdown 创建停机管理器并开始监听 SIGINT/SIGTERM
func NewGracefulShutdown(timeout time.Duration, logger *logrus.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	gs := &GracefulShutdown{
		logger:  logger,
		timeout: timeout,
		signals: make(chan os.Signal, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	signal.Notify(gs.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-gs.signals:
			gs.logger.Infof("收到停机信号: %v", sig)
			gs.Shutdown()
		case <-gs.done:
		}
	}()

	return gs
}

// Register 注册停机处理函数
func (gs *GracefulShutdown) Register(name string, fn func(ctx context.Context) error, order int) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.handlers = append(gs.handlers, handler{name: name, fn: fn, order: order})
	gs.logger.Debugf("注册停机处理函数: %s (order: %d)", name, order)
}

// Context 停机开始时取消
func (gs *GracefulShutdown) Context() context.Context {
	return gs.ctx
}

// Shutdown 触发停机，可重复调用
func (gs *GracefulShutdown) Shutdown() {
	gs.once.Do(func() {
		signal.Stop(gs.signals)
		gs.cancel()
		gs.err = gs.run()
		close(gs.done)
	})
}

// Wait 阻塞到停机完成，返回各处理函数的错误
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}

func (gs *GracefulShutdown) run() error {
	gs.logger.Info("开始优雅停机流程...")

	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	gs.mu.Lock()
	handlers := append([]handler(nil), gs.handlers...)
	gs.mu.Unlock()
	sort.SliceStable(handlers, func(i, j int) bool { return handlers[i].order < handlers[j].order })

	var errs []error
	for _, h := range handlers {
		if ctx.Err() != nil {
			gs.logger.Warnf("停机超时，跳过: %s", h.name)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, ctx.Err()))
			continue
		}

		start := time.Now()
		if err := h.fn(ctx); err != nil {
			gs.logger.Errorf("停机处理 '%s' 失败 (耗时: %v): %v", h.name, time.Since(start), err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		gs.logger.Debugf("停机处理 '%s' 完成 (耗时: %v)", h.name, time.Since(start))
	}

	gs.logger.Info("优雅停机流程完成")
	return errors.Join(errs...)
}
