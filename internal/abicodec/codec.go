// Package abicodec 按签名表解码函数调用与事件日志
package abicodec

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txdecoder/internal/catalog"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/pkg/models"
)

// ErrNoMatch 负载与签名表中任何条目都不匹配
var ErrNoMatch = decodeerrors.ErrNoMatch

const selectorLength = 4

// FunctionCall 解码后的函数调用
type FunctionCall struct {
	Name      string                 `json:"name"`
	Signature string                 `json:"signature"`
	Selector  string                 `json:"selector"`
	Args      map[string]interface{} `json:"args"`
	Values    []interface{}          `json:"-"` // 按参数声明顺序
}

// Event 解码后的事件
type Event struct {
	Name      string                 `json:"name"`
	Signature string                 `json:"signature"`
	Address   common.Address         `json:"address"`
	LogIndex  uint                   `json:"log_index"`
	Args      map[string]interface{} `json:"args"`
	Values    []interface{}          `json:"-"`
}

// ToDecodedLog 转换为输出模型
func (e *Event) ToDecodedLog() models.DecodedLog {
	return models.DecodedLog{
		Address:   e.Address,
		EventName: e.Name,
		Args:      e.Args,
		LogIndex:  e.LogIndex,
	}
}

// Codec 签名表之上的编解码器，无状态，可并发使用
type Codec struct {
	catalog *catalog.Catalog
}

// New 使用指定签名表创建编解码器
func New(c *catalog.Catalog) *Codec {
	return &Codec{catalog: c}
}

// Default 使用内置签名表
func Default() *Codec {
	return New(catalog.Default())
}

// DecodeFunctionCall 按选择器匹配并解码调用数据
func (c *Codec) DecodeFunctionCall(payload []byte) (*FunctionCall, error) {
	if len(payload) < selectorLength {
		return nil, ErrNoMatch
	}

	selector := payload[:selectorLength]
	for _, method := range c.catalog.Functions() {
		if !bytes.Equal(method.ID, selector) {
			continue
		}

		values, err := method.Inputs.Unpack(payload[selectorLength:])
		if err != nil {
			continue
		}

		args := make(map[string]interface{}, len(values))
		for i, input := range method.Inputs {
			args[input.Name] = values[i]
		}

		return &FunctionCall{
			Name:      method.Name,
			Signature: method.Sig,
			Selector:  hexutil.Encode(method.ID),
			Args:      args,
			Values:    values,
		}, nil
	}

	return nil, ErrNoMatch
}

// DecodeFunctionCallHex 解码十六进制调用数据，"" 与 "0x" 视为无调用
func (c *Codec) DecodeFunctionCallHex(input string) (*FunctionCall, error) {
	if input == "" || input == "0x" {
		return nil, ErrNoMatch
	}

	payload, err := hexutil.Decode(input)
	if err != nil {
		return nil, ErrNoMatch
	}

	return c.DecodeFunctionCall(payload)
}

// DecodeEventLog 按 topic0 匹配事件并解码参数
func (c *Codec) DecodeEventLog(log models.Log) (*Event, error) {
	if len(log.Topics) == 0 {
		return nil, ErrNoMatch
	}

	for _, event := range c.catalog.Events() {
		if event.ID != log.Topics[0] {
			continue
		}

		args, ok := unpackEvent(event, log)
		if !ok {
			continue
		}

		values := make([]interface{}, 0, len(event.Inputs))
		for _, input := range event.Inputs {
			values = append(values, args[input.Name])
		}

		return &Event{
			Name:      event.Name,
			Signature: event.Sig,
			Address:   log.Address,
			LogIndex:  log.LogIndex,
			Args:      args,
			Values:    values,
		}, nil
	}

	return nil, ErrNoMatch
}

// unpackEvent 索引参数来自 topics[1:]，其余来自 data
func unpackEvent(event abi.Event, log models.Log) (map[string]interface{}, bool) {
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}

	// 同一 topic0 的事件靠索引参数个数区分
	if len(log.Topics) != len(indexed)+1 {
		return nil, false
	}

	args := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return nil, false
	}
	if err := event.Inputs.UnpackIntoMap(args, log.Data); err != nil {
		return nil, false
	}

	return args, true
}

// EncodeFunctionCall 编码调用数据（选择器 + 参数）
func (c *Codec) EncodeFunctionCall(name string, args ...interface{}) ([]byte, error) {
	method, ok := c.catalog.Function(name)
	if !ok {
		return nil, fmt.Errorf("未知函数: %s", name)
	}

	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("编码 %s 参数失败: %w", method.Sig, err)
	}

	return append(append([]byte{}, method.ID...), packed...), nil
}

// DecodeFunctionResult 解码只读调用的返回值
func (c *Codec) DecodeFunctionResult(name string, data []byte) ([]interface{}, error) {
	method, ok := c.catalog.Function(name)
	if !ok {
		return nil, fmt.Errorf("未知函数: %s", name)
	}

	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("解码 %s 返回值失败: %w", method.Sig, err)
	}

	return values, nil
}
