package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	require.NotNil(t, config)
	assert.Len(t, config.Chains, 4)
	assert.Contains(t, config.Chains, "ethereum")
	assert.Equal(t, "coingecko", config.PriceOracle.Provider)
	assert.Equal(t, 4, config.Decoder.TransferWorkers)
	assert.Equal(t, "15s", config.Decoder.RPCTimeout)
	assert.Equal(t, "text", config.Output.Format)
	assert.Equal(t, []string{"localhost:9092"}, config.Output.Kafka.Brokers)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 8080, config.API.Port)

	assert.NoError(t, config.Validate())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig().Decoder, config.Decoder)
	assert.Empty(t, config.RPCOverrides())
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
chains:
  base:
    rpc_url: https://base.example.org
price_oracle:
  provider: static
  static_prices:
    ethereum: 3000
  static_token_prices:
    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": 1
decoder:
  transfer_workers: 8
  rpc_timeout: 30s
output:
  format: kafka
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: txs
logging:
  level: debug
  format: json
api:
  port: 9090
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "static", config.PriceOracle.Provider)
	assert.Equal(t, 3000.0, config.PriceOracle.StaticPrices["ethereum"])
	assert.Len(t, config.PriceOracle.StaticTokens, 1)
	assert.Equal(t, 8, config.Decoder.TransferWorkers)
	assert.Equal(t, 30*time.Second, config.Decoder.RPCTimeoutDuration())
	assert.Equal(t, 3, config.Decoder.RetryAttempts)
	assert.Equal(t, "kafka", config.Output.Format)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Output.Kafka.Brokers)
	assert.Equal(t, "txs", config.Output.Kafka.Topic)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 9090, config.API.Port)

	assert.Equal(t, map[string]string{"base": "https://base.example.org"}, config.RPCOverrides())

	chain, ok := config.Registry().ConfigFor("base")
	require.True(t, ok)
	assert.Equal(t, "https://base.example.org", chain.RPCURL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TXDECODER_DECODER_TRANSFER_WORKERS", "2")
	t.Setenv("TXDECODER_CHAINS_POLYGON_RPC_URL", "https://polygon.example.org")
	t.Setenv("TXDECODER_PRICE_ORACLE_PROVIDER", "disabled")

	path := writeConfig(t, `
decoder:
  transfer_workers: 6
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, config.Decoder.TransferWorkers)
	assert.Equal(t, "disabled", config.PriceOracle.Provider)
	assert.Equal(t, "https://polygon.example.org", config.RPCOverrides()["polygon"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown chain", content: "chains:\n  solana:\n    rpc_url: https://x\n"},
		{name: "unknown provider", content: "price_oracle:\n  provider: chainlink\n"},
		{name: "bad timeout", content: "decoder:\n  rpc_timeout: soon\n"},
		{name: "malformed yaml", content: "decoder: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, valid: true},
		{name: "zero workers", mutate: func(c *Config) { c.Decoder.TransferWorkers = 0 }, valid: false},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Decoder.RetryAttempts = 0 }, valid: false},
		{name: "unknown format", mutate: func(c *Config) { c.Output.Format = "xml" }, valid: false},
		{name: "kafka without brokers", mutate: func(c *Config) {
			c.Output.Format = "kafka"
			c.Output.Kafka.Brokers = nil
		}, valid: false},
		{name: "kafka with brokers", mutate: func(c *Config) { c.Output.Format = "kafka" }, valid: true},
		{name: "port out of range", mutate: func(c *Config) { c.API.Port = 70000 }, valid: false},
		{name: "bad cache ttl", mutate: func(c *Config) { c.PriceOracle.CacheTTL = "1 minute" }, valid: false},
		{name: "missing section", mutate: func(c *Config) { c.Output = nil }, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRetryConfig(t *testing.T) {
	config := GetDefaultConfig()
	config.Decoder.RetryAttempts = 5

	retryConfig := config.Decoder.RetryConfig()
	assert.Equal(t, 5, retryConfig.MaxAttempts)
	assert.Greater(t, retryConfig.InitialInterval, time.Duration(0))
}
