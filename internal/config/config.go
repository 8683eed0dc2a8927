package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"txdecoder/internal/chains"
	"txdecoder/internal/errors"
	"txdecoder/internal/logging"
	"txdecoder/internal/retry"
)

const (
	EnvPrefix         = "TXDECODER"
	DefaultConfigPath = "configs/config.yaml"
)

// Config 主配置
type Config struct {
	Chains      map[string]*ChainConfig `mapstructure:"chains"`
	PriceOracle *PriceOracleConfig      `mapstructure:"price_oracle"`
	Decoder     *DecoderConfig          `mapstructure:"decoder"`
	Output      *OutputConfig           `mapstructure:"output"`
	Logging     *logging.LogConfig      `mapstructure:"logging"`
	API         *APIConfig              `mapstructure:"api"`
}

// ChainConfig 单条链的覆盖项，空值使用内置默认
type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// PriceOracleConfig 价格服务配置
type PriceOracleConfig struct {
	Provider     string             `mapstructure:"provider"` // coingecko, static, disabled
	BaseURL      string             `mapstructure:"base_url"`
	APIKey       string             `mapstructure:"api_key"`
	Timeout      string             `mapstructure:"timeout"`
	CacheTTL     string             `mapstructure:"cache_ttl"`
	StaticPrices map[string]float64 `mapstructure:"static_prices"`       // CoinGecko ID -> USD
	StaticTokens map[string]float64 `mapstructure:"static_token_prices"` // 合约地址 -> USD
}

// DecoderConfig 解码器配置
type DecoderConfig struct {
	TransferWorkers int    `mapstructure:"transfer_workers"`
	RPCTimeout      string `mapstructure:"rpc_timeout"`
	RetryAttempts   int    `mapstructure:"retry_attempts"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format string       `mapstructure:"format"` // json, text, kafka
	Path   string       `mapstructure:"path"`   // 空表示标准输出
	Kafka  *KafkaConfig `mapstructure:"kafka"`
}

// APIConfig HTTP 服务配置
type APIConfig struct {
	Port          int `mapstructure:"port"`
	LogBufferSize int `mapstructure:"log_buffer_size"`
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	chainOverrides := make(map[string]*ChainConfig)
	for _, key := range chains.DefaultRegistry().Keys() {
		chainOverrides[string(key)] = &ChainConfig{}
	}

	return &Config{
		Chains: chainOverrides,
		PriceOracle: &PriceOracleConfig{
			Provider: "coingecko",
			Timeout:  "5s",
			CacheTTL: "60s",
		},
		Decoder: &DecoderConfig{
			TransferWorkers: 4,
			RPCTimeout:      "15s",
			RetryAttempts:   3,
		},
		Output: &OutputConfig{
			Format: "text",
			Kafka: &KafkaConfig{
				Brokers:  []string{"localhost:9092"},
				Topic:    "decoded_transactions",
				ClientID: "txdecoder",
			},
		},
		Logging: logging.DefaultLogConfig(),
		API: &APIConfig{
			Port:          8080,
			LogBufferSize: 1000,
		},
	}
}

// LoadConfig 加载配置：默认值 < YAML 文件 < TXDECODER_ 环境变量，文件不存在时只用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, GetDefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, errors.WrapError(err, errors.ErrorTypeConfig, errors.SeverityCritical,
				"CONFIG_READ_FAILED", "读取配置文件失败")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfig, errors.SeverityCritical,
			"CONFIG_PARSE_FAILED", "解析配置文件失败")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

// setDefaults 注册默认值，环境变量只对已知键生效
func setDefaults(v *viper.Viper, d *Config) {
	for key, chain := range d.Chains {
		v.SetDefault("chains."+key+".rpc_url", chain.RPCURL)
	}

	v.SetDefault("price_oracle.provider", d.PriceOracle.Provider)
	v.SetDefault("price_oracle.base_url", d.PriceOracle.BaseURL)
	v.SetDefault("price_oracle.api_key", d.PriceOracle.APIKey)
	v.SetDefault("price_oracle.timeout", d.PriceOracle.Timeout)
	v.SetDefault("price_oracle.cache_ttl", d.PriceOracle.CacheTTL)

	v.SetDefault("decoder.transfer_workers", d.Decoder.TransferWorkers)
	v.SetDefault("decoder.rpc_timeout", d.Decoder.RPCTimeout)
	v.SetDefault("decoder.retry_attempts", d.Decoder.RetryAttempts)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.kafka.brokers", d.Output.Kafka.Brokers)
	v.SetDefault("output.kafka.topic", d.Output.Kafka.Topic)
	v.SetDefault("output.kafka.client_id", d.Output.Kafka.ClientID)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.log_buffer_size", d.API.LogBufferSize)
}

// Validate 校验配置
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.NewDecodeError(errors.ErrorTypeConfig, errors.SeverityCritical,
			"INVALID_CONFIG", fmt.Sprintf(format, args...))
	}

	registry := chains.DefaultRegistry()
	for key := range c.Chains {
		if _, ok := registry.ConfigFor(key); !ok {
			return invalid("不支持的链: %s", key)
		}
	}

	if c.PriceOracle == nil || c.Decoder == nil || c.Output == nil || c.Logging == nil || c.API == nil {
		return invalid("配置缺少必要的段")
	}

	switch c.PriceOracle.Provider {
	case "coingecko", "static", "disabled":
	default:
		return invalid("不支持的价格服务: %s", c.PriceOracle.Provider)
	}

	for name, value := range map[string]string{
		"price_oracle.timeout":   c.PriceOracle.Timeout,
		"price_oracle.cache_ttl": c.PriceOracle.CacheTTL,
		"decoder.rpc_timeout":    c.Decoder.RPCTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return invalid("%s 格式错误: %v", name, err)
		}
	}

	if c.Decoder.TransferWorkers < 1 {
		return invalid("decoder.transfer_workers 必须大于 0")
	}
	if c.Decoder.RetryAttempts < 1 {
		return invalid("decoder.retry_attempts 必须大于 0")
	}

	switch c.Output.Format {
	case "json", "text":
	case "kafka":
		if c.Output.Kafka == nil || len(c.Output.Kafka.Brokers) == 0 || c.Output.Kafka.Topic == "" {
			return invalid("kafka 输出需要 brokers 与 topic")
		}
	default:
		return invalid("不支持的输出格式: %s", c.Output.Format)
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return invalid("api.port 超出范围: %d", c.API.Port)
	}

	return nil
}

// RPCOverrides 配置中非空的 RPC 地址
func (c *Config) RPCOverrides() map[string]string {
	overrides := make(map[string]string)
	for key, chain := range c.Chains {
		if chain != nil && chain.RPCURL != "" {
			overrides[strings.ToLower(key)] = chain.RPCURL
		}
	}
	return overrides
}

// Registry 应用 RPC 覆盖后的链配置表
func (c *Config) Registry() *chains.Registry {
	return chains.DefaultRegistry().WithRPCOverrides(c.RPCOverrides())
}

// RPCTimeoutDuration 单次节点请求超时
func (d *DecoderConfig) RPCTimeoutDuration() time.Duration {
	timeout, _ := parseDuration(d.RPCTimeout)
	return timeout
}

// TimeoutDuration 价格请求超时
func (p *PriceOracleConfig) TimeoutDuration() time.Duration {
	timeout, _ := parseDuration(p.Timeout)
	return timeout
}

// CacheTTLDuration 价格缓存时长
func (p *PriceOracleConfig) CacheTTLDuration() time.Duration {
	ttl, _ := parseDuration(p.CacheTTL)
	return ttl
}

// RetryConfig 节点请求的重试策略
func (d *DecoderConfig) RetryConfig() retry.Config {
	cfg := retry.NetworkConfig
	cfg.MaxAttempts = d.RetryAttempts
	return cfg
}

// parseDuration 空字符串视为 0
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
