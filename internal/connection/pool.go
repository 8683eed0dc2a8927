package connection

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"txdecoder/internal/chains"
	decodeerrors "txdecoder/internal/errors"
)

// DialFunc 建立到指定链的 RPC 连接
type DialFunc func(ctx context.Context, chain chains.ChainConfig) (*rpc.Client, error)

// Pool 按链惰性创建并复用客户端
type Pool struct {
	registry *chains.Registry
	opts     Options
	logger   *logrus.Logger
	dial     DialFunc

	mu      sync.Mutex
	clients map[chains.SupportedChain]*Client
}

// NewPool 创建客户端池
func NewPool(registry *chains.Registry, opts Options, logger *logrus.Logger) *Pool {
	return NewPoolWithDialer(registry, opts, logger, func(ctx context.Context, chain chains.ChainConfig) (*rpc.Client, error) {
		return rpc.DialContext(ctx, chain.RPCURL)
	})
}

// NewPoolWithDialer 使用自定义拨号函数创建客户端池
func NewPoolWithDialer(registry *chains.Registry, opts Options, logger *logrus.Logger, dial DialFunc) *Pool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pool{
		registry: registry,
		opts:     opts,
		logger:   logger,
		dial:     dial,
		clients:  make(map[chains.SupportedChain]*Client),
	}
}

// ClientFor 返回指定链的客户端，首次使用时建立连接
func (p *Pool) ClientFor(ctx context.Context, chain string) (ChainDataClient, error) {
	cfg, ok := p.registry.ConfigFor(chain)
	if !ok {
		return nil, decodeerrors.ErrUnsupportedChain.WithContext("chain", chain)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[cfg.Key]; exists {
		return client, nil
	}

	rpcClient, err := p.dial(ctx, cfg)
	if err != nil {
		return nil, decodeerrors.NewTransportError("dial "+string(cfg.Key), err)
	}

	client := NewClient(rpcClient, cfg, p.opts, p.logger)
	p.clients[cfg.Key] = client
	p.logger.WithField("chain", cfg.Key).Info("已建立节点连接")

	return client, nil
}

// Size 已建立连接的链数量
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close 关闭所有连接
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, client := range p.clients {
		client.Close()
		delete(p.clients, key)
	}
	p.logger.Debug("节点连接已全部关闭")
}
