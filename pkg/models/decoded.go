package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferKind 代币转账类型
type TransferKind string

const (
	TransferERC20  TransferKind = "ERC20"
	TransferERC721 TransferKind = "ERC721"
	TransferNative TransferKind = "native"
)

// DecodedLog 解码后的事件日志
type DecodedLog struct {
	Address   common.Address         `json:"address"`
	EventName string                 `json:"event_name"`
	Args      map[string]interface{} `json:"args"`
	LogIndex  uint                   `json:"log_index"`
}

// TokenInfo 代币描述
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Name     string         `json:"name,omitempty"`
}

// TokenTransfer 代币转账
type TokenTransfer struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value"`
	ValueUSD *float64       `json:"value_usd,omitempty"` // 无价格时为空，不用 0 代替
	Token    TokenInfo      `json:"token"`
	Type     TransferKind   `json:"type"`
	LogIndex uint           `json:"log_index"` // 对应的原始日志位置
}

// DecodedTransaction 解码结果
type DecodedTransaction struct {
	Hash         common.Hash            `json:"hash"`
	Chain        string                 `json:"chain"`
	From         common.Address         `json:"from"`
	To           *common.Address        `json:"to"`
	Value        *big.Int               `json:"value"`
	ValueUSD     float64                `json:"value_usd"`
	GasUsed      *big.Int               `json:"gas_used"`
	GasPrice     *big.Int               `json:"gas_price"`
	GasCostUSD   float64                `json:"gas_cost_usd"`
	BlockNumber  uint64                 `json:"block_number"`
	Timestamp    *uint64                `json:"timestamp,omitempty"`
	Status       TxStatus               `json:"status"`
	FunctionName string                 `json:"function_name,omitempty"`
	FunctionArgs map[string]interface{} `json:"function_args,omitempty"`
	DecodedLogs  []DecodedLog           `json:"decoded_logs"`
	Transfers    []TokenTransfer        `json:"token_transfers"`
	Summary      string                 `json:"summary"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// TransactionError 对外暴露的错误信息
type TransactionError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *TransactionError) Error() string {
	return e.Message
}
