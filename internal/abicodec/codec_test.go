package abicodec

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdecoder/internal/catalog"
	"txdecoder/pkg/models"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	transferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	approvalTopic = common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")
)

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func uintWord(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestDecodeFunctionCall_Transfer(t *testing.T) {
	codec := Default()

	payload, err := codec.EncodeFunctionCall("transfer", bob, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(payload[:4]))

	call, err := codec.DecodeFunctionCall(payload)
	require.NoError(t, err)

	assert.Equal(t, "transfer", call.Name)
	assert.Equal(t, "transfer(address,uint256)", call.Signature)
	assert.Equal(t, "0xa9059cbb", call.Selector)
	assert.Equal(t, bob, call.Args["to"])
	assert.Equal(t, 0, big.NewInt(1000).Cmp(call.Args["amount"].(*big.Int)))
	require.Len(t, call.Values, 2)
	assert.Equal(t, bob, call.Values[0])
}

func TestEncodeDecode_RoundTripUint256(t *testing.T) {
	codec := Default()
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	payload, err := codec.EncodeFunctionCall("transferFrom", alice, bob, maxUint256)
	require.NoError(t, err)

	call, err := codec.DecodeFunctionCall(payload)
	require.NoError(t, err)
	assert.Equal(t, "transferFrom", call.Name)
	assert.Equal(t, alice, call.Args["from"])
	assert.Equal(t, bob, call.Args["to"])
	assert.Equal(t, 0, maxUint256.Cmp(call.Args["amount"].(*big.Int)))

	// 超过 uint64 的事件金额
	value, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	event, err := codec.DecodeEventLog(models.Log{
		Address: token,
		Topics:  []common.Hash{transferTopic, addressTopic(alice), addressTopic(bob)},
		Data:    common.LeftPadBytes(value.Bytes(), 32),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, value.Cmp(event.Args["value"].(*big.Int)))
	assert.Equal(t, value.String(), event.Args["value"].(*big.Int).String())
}

func TestDecodeFunctionCall_ZeroArgument(t *testing.T) {
	call, err := Default().DecodeFunctionCall(hexutil.MustDecode("0x95d89b41"))
	require.NoError(t, err)
	assert.Equal(t, "symbol", call.Name)
	assert.Empty(t, call.Args)
}

func TestDecodeFunctionCall_NoMatch(t *testing.T) {
	codec := Default()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"nil", nil},
		{"short", []byte{0xa9, 0x05, 0x9c}},
		{"unknown selector", hexutil.MustDecode("0x38ed1739" + "00000000000000000000000000000000000000000000000000000000000000ff")},
		// 选择器匹配但参数被截断
		{"truncated args", hexutil.MustDecode("0xa9059cbb0000000000000000000000002222222222222222222222222222222222222222")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := codec.DecodeFunctionCall(tt.payload)
			assert.Nil(t, call)
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestDecodeFunctionCallHex(t *testing.T) {
	codec := Default()

	for _, input := range []string{"", "0x", "0xzz"} {
		_, err := codec.DecodeFunctionCallHex(input)
		assert.ErrorIs(t, err, ErrNoMatch, "input=%q", input)
	}

	payload, err := codec.EncodeFunctionCall("approve", bob, big.NewInt(7))
	require.NoError(t, err)

	call, err := codec.DecodeFunctionCallHex(hexutil.Encode(payload))
	require.NoError(t, err)
	assert.Equal(t, "approve", call.Name)
	assert.Equal(t, bob, call.Args["spender"])
}

func TestDecodeEventLog_FungibleTransfer(t *testing.T) {
	log := models.Log{
		Address:  token,
		Topics:   []common.Hash{transferTopic, addressTopic(alice), addressTopic(bob)},
		Data:     uintWord(1_500_000),
		LogIndex: 4,
	}

	event, err := Default().DecodeEventLog(log)
	require.NoError(t, err)

	assert.Equal(t, "Transfer", event.Name)
	assert.Equal(t, token, event.Address)
	assert.Equal(t, uint(4), event.LogIndex)
	assert.Equal(t, alice, event.Args["from"])
	assert.Equal(t, bob, event.Args["to"])
	assert.Equal(t, 0, big.NewInt(1_500_000).Cmp(event.Args["value"].(*big.Int)))
	assert.NotContains(t, event.Args, "tokenId")

	decoded := event.ToDecodedLog()
	assert.Equal(t, "Transfer", decoded.EventName)
	assert.Equal(t, uint(4), decoded.LogIndex)
}

func TestDecodeEventLog_NonFungibleTransfer(t *testing.T) {
	log := models.Log{
		Address: token,
		Topics:  []common.Hash{transferTopic, addressTopic(alice), addressTopic(bob), common.BigToHash(big.NewInt(42))},
	}

	event, err := Default().DecodeEventLog(log)
	require.NoError(t, err)

	assert.Equal(t, "Transfer", event.Name)
	assert.Equal(t, 0, big.NewInt(42).Cmp(event.Args["tokenId"].(*big.Int)))
	assert.NotContains(t, event.Args, "value")
}

func TestDecodeEventLog_Approval(t *testing.T) {
	log := models.Log{
		Address: token,
		Topics:  []common.Hash{approvalTopic, addressTopic(alice), addressTopic(bob)},
		Data:    uintWord(99),
	}

	event, err := Default().DecodeEventLog(log)
	require.NoError(t, err)
	assert.Equal(t, "Approval", event.Name)
	assert.Equal(t, alice, event.Args["owner"])
	assert.Equal(t, bob, event.Args["spender"])
}

func TestDecodeEventLog_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		log  models.Log
	}{
		{"no topics", models.Log{Address: token, Data: uintWord(1)}},
		{"unknown topic0", models.Log{Topics: []common.Hash{common.HexToHash("0x01")}}},
		// topic 数量与任何变体都对不上
		{"too few topics", models.Log{Topics: []common.Hash{transferTopic, addressTopic(alice)}, Data: uintWord(1)}},
		{"too many topics", models.Log{Topics: []common.Hash{transferTopic, {}, {}, {}, {}}}},
		{"missing data", models.Log{Topics: []common.Hash{transferTopic, addressTopic(alice), addressTopic(bob)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := Default().DecodeEventLog(tt.log)
			assert.Nil(t, event)
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestDecodeFunctionResult(t *testing.T) {
	codec := Default()

	symbol, ok := catalog.Default().Function("symbol")
	require.True(t, ok)
	encoded, err := symbol.Outputs.Pack("USDC")
	require.NoError(t, err)

	values, err := codec.DecodeFunctionResult("symbol", encoded)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"USDC"}, values)

	values, err = codec.DecodeFunctionResult("decimals", uintWord(6))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), values[0])

	_, err = codec.DecodeFunctionResult("decimals", nil)
	assert.Error(t, err)

	_, err = codec.DecodeFunctionResult("swap", nil)
	assert.Error(t, err)
}

func TestEncodeFunctionCall_Errors(t *testing.T) {
	_, err := Default().EncodeFunctionCall("unknown")
	assert.Error(t, err)

	_, err = Default().EncodeFunctionCall("transfer", "not-an-address", big.NewInt(1))
	assert.Error(t, err)
}
