package txdecoder

import (
	"github.com/sirupsen/logrus"

	"txdecoder/internal/config"
	"txdecoder/internal/connection"
	"txdecoder/internal/pricing"
)

// Build 按配置组装解码器，调用方负责关闭返回的连接池
func Build(cfg *config.Config, logger *logrus.Logger) (*Decoder, *connection.Pool, error) {
	registry := cfg.Registry()

	oracle, err := pricing.NewFromConfig(cfg.PriceOracle, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := connection.DefaultOptions()
	if timeout := cfg.Decoder.RPCTimeoutDuration(); timeout > 0 {
		opts.Timeout = timeout
	}
	opts.Retry = cfg.Decoder.RetryConfig()

	pool := connection.NewPool(registry, opts, logger)
	decoder := New(registry, pool, oracle, logger, Options{
		TransferWorkers: cfg.Decoder.TransferWorkers,
	})
	return decoder, pool, nil
}
