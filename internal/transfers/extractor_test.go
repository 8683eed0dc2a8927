package transfers

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdecoder/internal/abicodec"
	"txdecoder/internal/catalog"
	"txdecoder/internal/chains"
	"txdecoder/internal/pricing"
	"txdecoder/pkg/models"
)

var (
	usdc  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	weird = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")

	symbolSelector   = "0x95d89b41"
	decimalsSelector = "0x313ce567"
)

type tokenMeta struct {
	symbol   string
	decimals uint8
}

// fakeChain 只实现只读调用
type fakeChain struct {
	mu     sync.Mutex
	tokens map[common.Address]tokenMeta
	calls  int

	// 只让 decimals() 失败的代币
	brokenDecimals map[common.Address]bool
	symbolServed   map[common.Address]int
}

func (f *fakeChain) GetTransaction(context.Context, common.Hash) (*models.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) GetReceipt(context.Context, common.Hash) (*models.Receipt, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) GetBlock(context.Context, uint64) (*models.Block, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) CallView(_ context.Context, to common.Address, calldata []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	meta, ok := f.tokens[to]
	if !ok {
		return nil, errors.New("execution reverted")
	}

	c := catalog.Default()
	switch hexutil.Encode(calldata) {
	case symbolSelector:
		f.mu.Lock()
		if f.symbolServed == nil {
			f.symbolServed = make(map[common.Address]int)
		}
		f.symbolServed[to]++
		f.mu.Unlock()
		m, _ := c.Function("symbol")
		return m.Outputs.Pack(meta.symbol)
	case decimalsSelector:
		if f.brokenDecimals[to] {
			return nil, errors.New("execution reverted")
		}
		m, _ := c.Function("decimals")
		return m.Outputs.Pack(meta.decimals)
	}
	return nil, errors.New("unexpected call")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func transferLog(token common.Address, value int64, index uint) models.DecodedLog {
	return models.DecodedLog{
		Address:   token,
		EventName: "Transfer",
		Args:      map[string]interface{}{"from": alice, "to": bob, "value": big.NewInt(value)},
		LogIndex:  index,
	}
}

func ethereumConfig() chains.ChainConfig {
	cfg, _ := chains.DefaultRegistry().ConfigFor("ethereum")
	return cfg
}

func TestExtract_OrderAndEnrichment(t *testing.T) {
	chain := &fakeChain{tokens: map[common.Address]tokenMeta{
		usdc: {"USDC", 6},
		weth: {"WETH", 18},
	}}
	oracle := pricing.NewStaticOracle(nil, map[string]float64{usdc.Hex(): 1})
	extractor := NewExtractor(abicodec.Default(), 2, quietLogger())

	logs := []models.DecodedLog{
		transferLog(usdc, 2_500_000, 1),
		{Address: usdc, EventName: "Approval", Args: map[string]interface{}{}, LogIndex: 2},
		transferLog(weth, 1_000, 3),
		transferLog(usdc, 1_000_000, 4),
	}

	result := extractor.Extract(context.Background(), logs, chain, oracle, ethereumConfig())

	require.Len(t, result.Transfers, 3)
	assert.Equal(t, []uint{1, 3, 4}, []uint{result.Transfers[0].LogIndex, result.Transfers[1].LogIndex, result.Transfers[2].LogIndex})

	first := result.Transfers[0]
	assert.Equal(t, "USDC", first.Token.Symbol)
	assert.Equal(t, uint8(6), first.Token.Decimals)
	assert.Equal(t, usdc, first.Token.Address)
	assert.Equal(t, alice, first.From)
	assert.Equal(t, bob, first.To)
	assert.Equal(t, models.TransferERC20, first.Type)
	require.NotNil(t, first.ValueUSD)
	assert.InDelta(t, 2.5, *first.ValueUSD, 1e-9)

	// 没有价格时为空
	assert.Equal(t, "WETH", result.Transfers[1].Token.Symbol)
	assert.Nil(t, result.Transfers[1].ValueUSD)
	assert.Equal(t, []string{"token_price_unavailable:3"}, result.Warnings)

	// 每个代币只查询一次
	assert.Equal(t, 4, chain.calls)
}

func TestExtract_MetadataFailureDropsOnlyThatToken(t *testing.T) {
	chain := &fakeChain{tokens: map[common.Address]tokenMeta{usdc: {"USDC", 6}}}
	extractor := NewExtractor(abicodec.Default(), 4, quietLogger())

	logs := []models.DecodedLog{
		transferLog(weird, 10, 0),
		transferLog(usdc, 10, 1),
	}

	result := extractor.Extract(context.Background(), logs, chain, pricing.Disabled{}, ethereumConfig())

	require.Len(t, result.Transfers, 1)
	assert.Equal(t, "USDC", result.Transfers[0].Token.Symbol)
	assert.Contains(t, result.Warnings, "transfer_dropped:0")
}

func TestExtract_DecimalsFailureDropsFirstTokenOnly(t *testing.T) {
	chain := &fakeChain{
		tokens: map[common.Address]tokenMeta{
			usdc: {"USDC", 6},
			weth: {"WETH", 18},
		},
		brokenDecimals: map[common.Address]bool{usdc: true},
	}
	extractor := NewExtractor(abicodec.Default(), 2, quietLogger())

	logs := []models.DecodedLog{
		transferLog(usdc, 2_500_000, 0),
		transferLog(weth, 1_000, 2),
	}

	result := extractor.Extract(context.Background(), logs, chain, pricing.Disabled{}, ethereumConfig())

	require.Len(t, result.Transfers, 1)
	assert.Equal(t, "WETH", result.Transfers[0].Token.Symbol)
	assert.Equal(t, uint(2), result.Transfers[0].LogIndex)
	assert.Equal(t, []string{"transfer_dropped:0", "token_price_unavailable:2"}, result.Warnings)

	// symbol() 成功也不保留半份元数据
	assert.Equal(t, 1, chain.symbolServed[usdc])
}

func TestExtract_NonFungibleExcluded(t *testing.T) {
	chain := &fakeChain{}
	extractor := NewExtractor(abicodec.Default(), 0, quietLogger())

	logs := []models.DecodedLog{{
		Address:   weird,
		EventName: "Transfer",
		Args:      map[string]interface{}{"from": alice, "to": bob, "tokenId": big.NewInt(42)},
		LogIndex:  9,
	}}

	result := extractor.Extract(context.Background(), logs, chain, pricing.Disabled{}, ethereumConfig())

	assert.Empty(t, result.Transfers)
	assert.Equal(t, []uint{9}, result.NonFungible)
	assert.Equal(t, 0, chain.calls)
}

func TestExtract_MalformedArgs(t *testing.T) {
	extractor := NewExtractor(abicodec.Default(), 1, quietLogger())

	logs := []models.DecodedLog{{
		Address:   usdc,
		EventName: "Transfer",
		Args:      map[string]interface{}{"from": "not-an-address"},
		LogIndex:  2,
	}}

	result := extractor.Extract(context.Background(), logs, &fakeChain{}, pricing.Disabled{}, ethereumConfig())
	assert.Empty(t, result.Transfers)
	assert.Equal(t, []string{"transfer_dropped:2"}, result.Warnings)
}

func TestExtract_Empty(t *testing.T) {
	result := NewExtractor(abicodec.Default(), 1, quietLogger()).
		Extract(context.Background(), nil, &fakeChain{}, pricing.Disabled{}, ethereumConfig())
	assert.Empty(t, result.Transfers)
	assert.Empty(t, result.Warnings)
}
