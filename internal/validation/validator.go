package validation

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"txdecoder/internal/chains"
	"txdecoder/internal/errors"
)

var (
	hashRegex    = regexp.MustCompile("^0x[0-9a-fA-F]{64}$")
	addressRegex = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")
)

// Request 校验通过的解码请求
type Request struct {
	Hash  common.Hash
	Chain chains.ChainConfig
}

// Validator 请求参数校验
type Validator struct {
	registry *chains.Registry
}

// NewValidator 创建校验器
func NewValidator(registry *chains.Registry) *Validator {
	return &Validator{registry: registry}
}

// ValidateRequest 校验交易哈希与链标识，任何节点请求之前调用
func (v *Validator) ValidateRequest(hash, chain string) (*Request, error) {
	txHash, err := ParseTxHash(hash)
	if err != nil {
		return nil, err
	}

	cfg, err := v.ResolveChain(chain)
	if err != nil {
		return nil, err
	}

	return &Request{Hash: txHash, Chain: cfg}, nil
}

// ResolveChain 查找支持的链
func (v *Validator) ResolveChain(chain string) (chains.ChainConfig, error) {
	cfg, ok := v.registry.ConfigFor(chain)
	if !ok {
		return chains.ChainConfig{}, errors.ErrUnsupportedChain.WithContext("chain", chain)
	}
	return cfg, nil
}

// ParseTxHash 解析 0x 开头的 32 字节哈希
func ParseTxHash(hash string) (common.Hash, error) {
	hash = strings.TrimSpace(hash)
	if !isValidHash(hash) {
		return common.Hash{}, errors.ErrInvalidHash.WithContext("hash", hash)
	}
	return common.HexToHash(hash), nil
}

// ParseAddress 解析 0x 开头的 20 字节地址，大小写不敏感
func ParseAddress(addr string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if !isValidAddress(addr) {
		return common.Address{}, errors.NewDecodeError(errors.ErrorTypeValidation, errors.SeverityLow,
			"INVALID_ADDRESS", "Invalid address").WithContext("address", addr)
	}
	return common.HexToAddress(addr), nil
}

func isValidHash(hash string) bool {
	return hashRegex.MatchString(hash)
}

func isValidAddress(addr string) bool {
	return addressRegex.MatchString(addr) && common.IsHexAddress(addr)
}
