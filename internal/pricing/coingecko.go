package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"txdecoder/internal/chains"
)

const (
	PublicBaseURL = "https://api.coingecko.com/api/v3"
	ProBaseURL    = "https://pro-api.coingecko.com/api/v3"
)

// CoinGeckoConfig CoinGecko 客户端配置
type CoinGeckoConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration // 0 表示不缓存
}

type cachedPrice struct {
	price     float64
	expiresAt time.Time
}

// CoinGecko 通过 CoinGecko 简单价格接口查询
type CoinGecko struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *logrus.Entry

	mu    sync.Mutex
	cache map[string]cachedPrice
	now   func() time.Time
}

// NewCoinGecko 创建客户端，httpClient 为空时使用默认客户端
func NewCoinGecko(cfg CoinGeckoConfig, httpClient *http.Client, logger *logrus.Logger) *CoinGecko {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		// Pro 密钥只能用于 Pro 域名
		baseURL = PublicBaseURL
		if cfg.APIKey != "" {
			baseURL = ProBaseURL
		}
	}

	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		cacheTTL:   cfg.CacheTTL,
		httpClient: httpClient,
		logger:     logger.WithField("component", "coingecko"),
		cache:      make(map[string]cachedPrice),
		now:        time.Now,
	}
}

// NativePriceUSD 链原生币价格
func (c *CoinGecko) NativePriceUSD(ctx context.Context, chain chains.ChainConfig) float64 {
	return c.SymbolPriceUSD(ctx, chain.NativeCoinID)
}

// SymbolPriceUSD 按 CoinGecko 币种 ID 查询价格
func (c *CoinGecko) SymbolPriceUSD(ctx context.Context, coinID string) float64 {
	if coinID == "" {
		return 0
	}
	id := strings.ToLower(coinID)

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")

	return c.lookup(ctx, "coin:"+id, "/simple/price", params, id)
}

// TokenPriceUSD 按合约地址查询代币价格
func (c *CoinGecko) TokenPriceUSD(ctx context.Context, chain chains.ChainConfig, token common.Address) float64 {
	if chain.PricePlatform == "" {
		return 0
	}
	addr := strings.ToLower(token.Hex())

	params := url.Values{}
	params.Set("contract_addresses", addr)
	params.Set("vs_currencies", "usd")

	return c.lookup(ctx, "token:"+chain.PricePlatform+":"+addr, "/simple/token_price/"+chain.PricePlatform, params, addr)
}

func (c *CoinGecko) lookup(ctx context.Context, cacheKey, path string, params url.Values, responseKey string) float64 {
	if price, ok := c.cached(cacheKey); ok {
		return price
	}

	price, err := c.fetch(ctx, path, params, responseKey)
	if err != nil {
		c.logger.WithError(err).WithField("key", responseKey).Debug("价格查询失败")
		return 0
	}

	c.store(cacheKey, price)
	return price
}

// fetch 响应格式为 {"<key>": {"usd": <price>}}
func (c *CoinGecko) fetch(ctx context.Context, path string, params url.Values, responseKey string) (float64, error) {
	if c.apiKey != "" {
		params.Set("x_cg_pro_api_key", c.apiKey)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("状态码异常: %d", resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("解析响应失败: %w", err)
	}

	price, ok := body[responseKey]["usd"]
	if !ok {
		return 0, fmt.Errorf("响应中没有 %s 的价格", responseKey)
	}
	return price, nil
}

func (c *CoinGecko) cached(key string) (float64, bool) {
	if c.cacheTTL <= 0 {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || c.now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.price, true
}

func (c *CoinGecko) store(key string, price float64) {
	if c.cacheTTL <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cachedPrice{price: price, expiresAt: c.now().Add(c.cacheTTL)}
}
