package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxStatus 交易执行状态
type TxStatus string

const (
	StatusSuccess TxStatus = "success"
	StatusFailed  TxStatus = "failed"
)

// Transaction 从节点获取的原始交易
type Transaction struct {
	Hash        common.Hash     `json:"hash"`
	ChainID     uint64          `json:"chain_id"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"` // nil 表示合约创建
	Value       *big.Int        `json:"value"`
	Input       []byte          `json:"input"`
	BlockNumber uint64          `json:"block_number"`
}

// IsContractCreation 是否为合约创建交易
func (t *Transaction) IsContractCreation() bool {
	return t.To == nil
}

// FromEthereumTransaction 从以太坊交易转换为内部模型
func (t *Transaction) FromEthereumTransaction(tx *types.Transaction, from common.Address, blockNumber uint64) {
	if tx == nil {
		return
	}

	t.Hash = tx.Hash()
	if tx.ChainId() != nil {
		t.ChainID = tx.ChainId().Uint64()
	}
	t.From = from
	if tx.To() != nil {
		to := *tx.To()
		t.To = &to
	}
	t.Value = new(big.Int).Set(tx.Value())
	t.Input = common.CopyBytes(tx.Data())
	t.BlockNumber = blockNumber
}

// Receipt 交易收据
type Receipt struct {
	TransactionHash   common.Hash `json:"transaction_hash"`
	BlockHash         common.Hash `json:"block_hash"`
	BlockNumber       uint64      `json:"block_number"`
	TransactionIndex  uint        `json:"transaction_index"`
	GasUsed           *big.Int    `json:"gas_used"`
	EffectiveGasPrice *big.Int    `json:"effective_gas_price"`
	Status            TxStatus    `json:"status"`
	Logs              []Log       `json:"logs"`
}

// FromEthereumReceipt 从以太坊收据转换为内部模型
func (r *Receipt) FromEthereumReceipt(receipt *types.Receipt) {
	if receipt == nil {
		return
	}

	r.TransactionHash = receipt.TxHash
	r.BlockHash = receipt.BlockHash
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
	r.TransactionIndex = receipt.TransactionIndex
	r.GasUsed = new(big.Int).SetUint64(receipt.GasUsed)
	r.EffectiveGasPrice = new(big.Int)
	if receipt.EffectiveGasPrice != nil {
		r.EffectiveGasPrice.Set(receipt.EffectiveGasPrice)
	}
	r.Status = StatusFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		r.Status = StatusSuccess
	}

	r.Logs = make([]Log, 0, len(receipt.Logs))
	for _, lg := range receipt.Logs {
		var l Log
		l.FromEthereumLog(lg)
		r.Logs = append(r.Logs, l)
	}
}

// GasCost 计算实际花费的 gas 费用（wei）
func (r *Receipt) GasCost() *big.Int {
	if r.GasUsed == nil || r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(r.GasUsed, r.EffectiveGasPrice)
}

// Log 收据中的事件日志
type Log struct {
	Address  common.Address `json:"address"`
	Topics   []common.Hash  `json:"topics"`
	Data     []byte         `json:"data"`
	LogIndex uint           `json:"log_index"`
}

// FromEthereumLog 从以太坊日志转换为内部模型
func (l *Log) FromEthereumLog(log *types.Log) {
	if log == nil {
		return
	}

	l.Address = log.Address
	l.Topics = make([]common.Hash, len(log.Topics))
	copy(l.Topics, log.Topics)
	l.Data = common.CopyBytes(log.Data)
	l.LogIndex = log.Index
}

// Block 区块信息（只保留解码所需的字段）
type Block struct {
	Number    uint64      `json:"number"`
	Hash      common.Hash `json:"hash"`
	Timestamp uint64      `json:"timestamp"`
}

// FromEthereumHeader 从区块头转换为内部模型
func (b *Block) FromEthereumHeader(header *types.Header) {
	if header == nil {
		return
	}

	if header.Number != nil {
		b.Number = header.Number.Uint64()
	}
	b.Hash = header.Hash()
	b.Timestamp = header.Time
}
