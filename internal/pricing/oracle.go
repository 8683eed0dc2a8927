// Package pricing 美元价格查询，任何失败都返回 0
package pricing

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"txdecoder/internal/chains"
)

// Oracle 价格查询，0 表示没有可用价格
type Oracle interface {
	NativePriceUSD(ctx context.Context, chain chains.ChainConfig) float64
	TokenPriceUSD(ctx context.Context, chain chains.ChainConfig, token common.Address) float64
	SymbolPriceUSD(ctx context.Context, coinID string) float64
}

// StaticOracle 固定价格表，用于离线运行
type StaticOracle struct {
	coins  map[string]float64
	tokens map[string]float64
}

// NewStaticOracle coins 以 CoinGecko ID 为键，tokens 以合约地址为键
func NewStaticOracle(coins, tokens map[string]float64) *StaticOracle {
	s := &StaticOracle{
		coins:  make(map[string]float64, len(coins)),
		tokens: make(map[string]float64, len(tokens)),
	}
	for id, price := range coins {
		s.coins[strings.ToLower(id)] = price
	}
	for addr, price := range tokens {
		s.tokens[strings.ToLower(addr)] = price
	}
	return s
}

// NativePriceUSD 按链的原生币 ID 查表
func (s *StaticOracle) NativePriceUSD(ctx context.Context, chain chains.ChainConfig) float64 {
	return s.SymbolPriceUSD(ctx, chain.NativeCoinID)
}

// TokenPriceUSD 按合约地址查表，未配置时为 0
func (s *StaticOracle) TokenPriceUSD(_ context.Context, _ chains.ChainConfig, token common.Address) float64 {
	return s.tokens[strings.ToLower(token.Hex())]
}

// SymbolPriceUSD 按币种 ID 查表
func (s *StaticOracle) SymbolPriceUSD(_ context.Context, coinID string) float64 {
	return s.coins[strings.ToLower(coinID)]
}

// Disabled 不查询任何价格
type Disabled struct{}

// NativePriceUSD 恒为 0
func (Disabled) NativePriceUSD(context.Context, chains.ChainConfig) float64 { return 0 }

// TokenPriceUSD 恒为 0
func (Disabled) TokenPriceUSD(context.Context, chains.ChainConfig, common.Address) float64 {
	return 0
}

// SymbolPriceUSD 恒为 0
func (Disabled) SymbolPriceUSD(context.Context, string) float64 { return 0 }
