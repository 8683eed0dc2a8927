package pricing

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"txdecoder/internal/config"
)

// NewFromConfig 按配置选择价格服务
func NewFromConfig(cfg *config.PriceOracleConfig, logger *logrus.Logger) (Oracle, error) {
	if cfg == nil {
		return Disabled{}, nil
	}

	switch cfg.Provider {
	case "coingecko":
		return NewCoinGecko(CoinGeckoConfig{
			BaseURL:  cfg.BaseURL,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.TimeoutDuration(),
			CacheTTL: cfg.CacheTTLDuration(),
		}, nil, logger), nil
	case "static":
		return NewStaticOracle(cfg.StaticPrices, cfg.StaticTokens), nil
	case "disabled", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("不支持的价格服务: %s", cfg.Provider)
	}
}
