package summary

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"txdecoder/internal/catalog"
	"txdecoder/pkg/models"
)

var (
	router  = common.HexToAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")
	unknown = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func transfer(symbol string) models.TokenTransfer {
	return models.TokenTransfer{
		Value: big.NewInt(1),
		Token: models.TokenInfo{Symbol: symbol, Decimals: 18},
		Type:  models.TransferERC20,
	}
}

func TestSummarize(t *testing.T) {
	contracts := catalog.Default()
	oneAndHalfEth, _ := new(big.Int).SetString("1500000000000000000", 10)

	tests := []struct {
		name     string
		in       Input
		expected string
	}{
		{
			name: "two transfers with swap",
			in: Input{
				To:           &router,
				Value:        oneAndHalfEth,
				FunctionName: "swapExactTokensForTokens",
				Transfers:    []models.TokenTransfer{transfer("USDC"), transfer("WETH")},
				Contracts:    contracts,
			},
			expected: "Swapped USDC for WETH",
		},
		{
			name:     "single transfer",
			in:       Input{FunctionName: "transfer", Transfers: []models.TokenTransfer{transfer("DAI")}},
			expected: "Transferred DAI",
		},
		{
			name:     "swap verb is case insensitive",
			in:       Input{FunctionName: "SWAP", Transfers: []models.TokenTransfer{transfer("DAI")}},
			expected: "Swapped DAI",
		},
		{
			name: "three or more transfers",
			in: Input{Transfers: []models.TokenTransfer{
				transfer("A"), transfer("B"), transfer("C"),
			}},
			expected: "Transferred 3 tokens",
		},
		{
			name:     "native value",
			in:       Input{To: &unknown, Value: oneAndHalfEth, NativeSymbol: "ETH", FunctionName: "deposit"},
			expected: "Sent 1.5 ETH",
		},
		{
			name:     "native value uses chain symbol",
			in:       Input{Value: big.NewInt(1), NativeSymbol: "MATIC"},
			expected: "Sent 0.000000000000000001 MATIC",
		},
		{
			name:     "function on known contract",
			in:       Input{To: &router, Value: big.NewInt(0), FunctionName: "approve", Contracts: contracts},
			expected: "Called approve on Uniswap V2 Router",
		},
		{
			name:     "function on unknown contract",
			in:       Input{To: &unknown, FunctionName: "approve", Contracts: contracts},
			expected: "Called approve",
		},
		{
			name:     "known contract without function",
			in:       Input{To: &router, Value: big.NewInt(0), Contracts: contracts},
			expected: "Interacted with Uniswap V2 Router",
		},
		{
			name:     "fallback",
			in:       Input{To: &unknown, Value: big.NewInt(0), Contracts: contracts},
			expected: "Contract interaction",
		},
		{
			name:     "contract creation",
			in:       Input{Contracts: contracts},
			expected: "Contract interaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.in))
		})
	}
}
