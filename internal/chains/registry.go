package chains

import (
	"fmt"
	"strings"
)

// SupportedChain 支持的链标识
type SupportedChain string

const (
	Ethereum SupportedChain = "ethereum"
	Base     SupportedChain = "base"
	Arbitrum SupportedChain = "arbitrum"
	Polygon  SupportedChain = "polygon"
)

// ChainConfig 链的连接与展示配置
type ChainConfig struct {
	Key            SupportedChain `json:"key"`
	Name           string         `json:"name"`
	ChainID        uint64         `json:"chain_id"`
	RPCURL         string         `json:"-"`
	ExplorerURL    string         `json:"explorer_url"`
	NativeCurrency string         `json:"native_currency"`
	NativeCoinID   string         `json:"-"` // CoinGecko 原生币ID
	PricePlatform  string         `json:"-"` // CoinGecko 资产平台ID
}

// TxURL 交易在浏览器中的地址
func (c ChainConfig) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", c.ExplorerURL, hash)
}

// AddressURL 地址在浏览器中的地址
func (c ChainConfig) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", c.ExplorerURL, address)
}

// BlockURL 区块在浏览器中的地址
func (c ChainConfig) BlockURL(number uint64) string {
	return fmt.Sprintf("%s/block/%d", c.ExplorerURL, number)
}

var defaultChains = []ChainConfig{
	{
		Key:            Ethereum,
		Name:           "Ethereum",
		ChainID:        1,
		RPCURL:         "https://ethereum-rpc.publicnode.com",
		ExplorerURL:    "https://etherscan.io",
		NativeCurrency: "ETH",
		NativeCoinID:   "ethereum",
		PricePlatform:  "ethereum",
	},
	{
		Key:            Base,
		Name:           "Base",
		ChainID:        8453,
		RPCURL:         "https://mainnet.base.org",
		ExplorerURL:    "https://basescan.org",
		NativeCurrency: "ETH",
		NativeCoinID:   "ethereum",
		PricePlatform:  "base",
	},
	{
		Key:            Arbitrum,
		Name:           "Arbitrum",
		ChainID:        42161,
		RPCURL:         "https://arb1.arbitrum.io/rpc",
		ExplorerURL:    "https://arbiscan.io",
		NativeCurrency: "ETH",
		NativeCoinID:   "ethereum",
		PricePlatform:  "arbitrum-one",
	},
	{
		Key:            Polygon,
		Name:           "Polygon",
		ChainID:        137,
		RPCURL:         "https://polygon-rpc.com",
		ExplorerURL:    "https://polygonscan.com",
		NativeCurrency: "MATIC",
		NativeCoinID:   "matic-network",
		PricePlatform:  "polygon-pos",
	},
}

// Registry 只读的链配置表
type Registry struct {
	order   []SupportedChain
	configs map[SupportedChain]ChainConfig
}

// DefaultRegistry 内置的链配置
func DefaultRegistry() *Registry {
	r := &Registry{
		order:   make([]SupportedChain, 0, len(defaultChains)),
		configs: make(map[SupportedChain]ChainConfig, len(defaultChains)),
	}
	for _, cfg := range defaultChains {
		r.order = append(r.order, cfg.Key)
		r.configs[cfg.Key] = cfg
	}
	return r
}

// WithRPCOverrides 返回替换了RPC地址的新配置表，原表不变
func (r *Registry) WithRPCOverrides(overrides map[string]string) *Registry {
	next := &Registry{
		order:   append([]SupportedChain(nil), r.order...),
		configs: make(map[SupportedChain]ChainConfig, len(r.configs)),
	}
	for key, cfg := range r.configs {
		if url, ok := overrides[string(key)]; ok && url != "" {
			cfg.RPCURL = url
		}
		next.configs[key] = cfg
	}
	return next
}

// ConfigFor 按链标识查找配置（不区分大小写）
func (r *Registry) ConfigFor(key string) (ChainConfig, bool) {
	cfg, ok := r.configs[SupportedChain(strings.ToLower(strings.TrimSpace(key)))]
	return cfg, ok
}

// ByChainID 按数字链ID查找配置
func (r *Registry) ByChainID(chainID uint64) (ChainConfig, bool) {
	for _, key := range r.order {
		if cfg := r.configs[key]; cfg.ChainID == chainID {
			return cfg, true
		}
	}
	return ChainConfig{}, false
}

// Keys 按注册顺序返回所有链标识
func (r *Registry) Keys() []SupportedChain {
	return append([]SupportedChain(nil), r.order...)
}

// All 按注册顺序返回所有配置
func (r *Registry) All() []ChainConfig {
	out := make([]ChainConfig, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.configs[key])
	}
	return out
}
