// Package summary 由解码结果生成一句话描述
package summary

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"txdecoder/internal/format"
	"txdecoder/pkg/models"
)

// ContractNames 已知合约名称查询
type ContractNames interface {
	KnownContract(addr common.Address) (string, bool)
}

// Input 生成摘要所需的全部信息
type Input struct {
	To           *common.Address
	Value        *big.Int
	NativeSymbol string
	FunctionName string
	Transfers    []models.TokenTransfer
	Contracts    ContractNames
}

const fallback = "Contract interaction"

// Summarize 按优先级返回第一条命中的描述，总是有结果
func Summarize(in Input) string {
	if len(in.Transfers) > 0 {
		return describeTransfers(in.FunctionName, in.Transfers)
	}

	if in.Value != nil && in.Value.Sign() > 0 {
		return fmt.Sprintf("Sent %s %s", format.FormatNative(in.Value), in.NativeSymbol)
	}

	contractName, known := lookup(in)

	if in.FunctionName != "" {
		if known {
			return fmt.Sprintf("Called %s on %s", in.FunctionName, contractName)
		}
		return "Called " + in.FunctionName
	}

	if known {
		return "Interacted with " + contractName
	}

	return fallback
}

func describeTransfers(functionName string, transfers []models.TokenTransfer) string {
	verb := "Transferred"
	if strings.Contains(strings.ToLower(functionName), "swap") {
		verb = "Swapped"
	}

	switch len(transfers) {
	case 1:
		return fmt.Sprintf("%s %s", verb, transfers[0].Token.Symbol)
	case 2:
		return fmt.Sprintf("%s %s for %s", verb, transfers[0].Token.Symbol, transfers[1].Token.Symbol)
	default:
		return fmt.Sprintf("%s %d tokens", verb, len(transfers))
	}
}

func lookup(in Input) (string, bool) {
	if in.To == nil || in.Contracts == nil {
		return "", false
	}
	return in.Contracts.KnownContract(*in.To)
}
