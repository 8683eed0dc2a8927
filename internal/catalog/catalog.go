// Package catalog 固定的函数/事件签名表与常见合约名称表
package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// 同质化代币接口
const fungibleABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// 非同质化代币的同名事件，topic0 与上面相同，只是 tokenId 也被索引
const nonFungibleABI = `[
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"approved","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

// 匹配顺序即声明顺序
var (
	functionOrder = []string{"transfer", "approve", "transferFrom", "balanceOf", "symbol", "decimals", "name", "totalSupply", "allowance"}
	eventOrder    = []string{"Transfer", "Approval"}
)

// knownContracts 常见合约（小写地址）到展示名称
var knownContracts = map[string]string{
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d": "Uniswap V2 Router",
	"0xe592427a0aece92de3edee1f18e0157c05861564": "Uniswap V3 Router",
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": "Uniswap V3 Router 2",
	"0xef1c6e67703c7bd7107eed8303fbe6ec2554bf6b": "Uniswap Universal Router",
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": "Uniswap Universal Router",
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f": "SushiSwap Router",
	"0x1111111254eeb25477b68fb85ed929f73a960582": "1inch V5 Router",
	"0x111111125421ca6dc452d289314280a0f8842a65": "1inch V6 Router",
	"0xdef1c0ded9bec7f1a1670819833240f027b25eff": "0x Exchange Proxy",
	"0xdac17f958d2ee523a2206206994597c13d831ec7": "Tether USD",
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": "USD Coin",
	"0x6b175474e89094c44da98b954eedeac495271d0f": "Dai Stablecoin",
	"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": "Wrapped Ether",
	"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599": "Wrapped BTC",
}

// Catalog 签名表，初始化后只读
type Catalog struct {
	functions      []abi.Method
	events         []abi.Event
	knownContracts map[string]string
}

var (
	defaultCatalog *Catalog
	defaultOnce    sync.Once
)

// Default 返回内置签名表
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(knownContracts)
		if err != nil {
			// 内置ABI是常量，解析失败属于编程错误
			panic(fmt.Sprintf("解析内置ABI失败: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// New 解析内置ABI并使用给定的合约名称表构建签名表
func New(contracts map[string]string) (*Catalog, error) {
	fungible, err := abi.JSON(strings.NewReader(fungibleABI))
	if err != nil {
		return nil, fmt.Errorf("解析同质化代币ABI失败: %w", err)
	}
	nonFungible, err := abi.JSON(strings.NewReader(nonFungibleABI))
	if err != nil {
		return nil, fmt.Errorf("解析非同质化代币ABI失败: %w", err)
	}

	c := &Catalog{
		functions:      make([]abi.Method, 0, len(functionOrder)),
		events:         make([]abi.Event, 0, len(eventOrder)*2),
		knownContracts: make(map[string]string, len(contracts)),
	}

	for _, name := range functionOrder {
		method, ok := fungible.Methods[name]
		if !ok {
			return nil, fmt.Errorf("ABI中缺少函数 %s", name)
		}
		c.functions = append(c.functions, method)
	}

	for _, parsed := range []abi.ABI{fungible, nonFungible} {
		for _, name := range eventOrder {
			if event, ok := parsed.Events[name]; ok {
				c.events = append(c.events, event)
			}
		}
	}

	for addr, name := range contracts {
		c.knownContracts[strings.ToLower(addr)] = name
	}

	return c, nil
}

// Functions 按匹配顺序返回函数签名
func (c *Catalog) Functions() []abi.Method {
	return c.functions
}

// Events 按匹配顺序返回事件签名
func (c *Catalog) Events() []abi.Event {
	return c.events
}

// Function 按名称查找函数
func (c *Catalog) Function(name string) (abi.Method, bool) {
	for _, m := range c.functions {
		if m.Name == name {
			return m, true
		}
	}
	return abi.Method{}, false
}

// KnownContract 查找常见合约名称（不区分大小写）
func (c *Catalog) KnownContract(addr common.Address) (string, bool) {
	name, ok := c.knownContracts[strings.ToLower(addr.Hex())]
	return name, ok
}
