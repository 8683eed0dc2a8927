// Package format 金额、美元、Gas 与地址的展示格式
package format

import (
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const nativeDecimals = 18

var (
	thousand     = decimal.NewFromInt(1_000)
	million      = decimal.NewFromInt(1_000_000)
	minTokenUnit = decimal.RequireFromString("0.0001")
	minUSD       = decimal.RequireFromString("0.01")
)

// ScaleAmount 按 10^decimals 缩放原始数量
func ScaleAmount(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// FormatTokenAmount 代币数量的简写形式，如 "1.50M"、"< 0.0001"
func FormatTokenAmount(amount *big.Int, decimals uint8) string {
	num := ScaleAmount(amount, decimals)

	switch {
	case num.IsZero():
		return "0"
	case num.LessThan(minTokenUnit):
		return "< 0.0001"
	case num.LessThan(decimal.NewFromInt(1)):
		return num.StringFixed(4)
	case num.LessThan(thousand):
		return num.StringFixed(2)
	case num.LessThan(million):
		return num.Div(thousand).StringFixed(2) + "K"
	default:
		return num.Div(million).StringFixed(2) + "M"
	}
}

// FormatUSD 美元金额的简写形式，如 "$1.50K"、"< $0.01"
func FormatUSD(amount float64) string {
	num := decimal.NewFromFloat(amount)

	switch {
	case num.LessThan(minUSD):
		return "< $0.01"
	case num.LessThan(thousand):
		return "$" + num.StringFixed(2)
	case num.LessThan(million):
		return "$" + num.Div(thousand).StringFixed(2) + "K"
	default:
		return "$" + num.Div(million).StringFixed(2) + "M"
	}
}

// FormatNative wei 转为原生币的精确十进制表示，不做截断
func FormatNative(wei *big.Int) string {
	return ScaleAmount(wei, nativeDecimals).String()
}

// FormatGas 带千分位的 Gas 数量
func FormatGas(gas *big.Int) string {
	if gas == nil {
		return "0"
	}
	return humanize.BigComma(gas)
}

// ShortenAddress 保留前后 chars 个字符，如 0x1234...abcd
func ShortenAddress(address string, chars int) string {
	if chars <= 0 || len(address) <= 2+chars*2 {
		return address
	}
	return address[:chars+2] + "..." + address[len(address)-chars:]
}

// USDValue 数量乘以单价，价格不可用时返回 nil
func USDValue(amount *big.Int, decimals uint8, price float64) *float64 {
	if price <= 0 {
		return nil
	}
	value, _ := ScaleAmount(amount, decimals).Mul(decimal.NewFromFloat(price)).Float64()
	return &value
}

// NativeUSD wei 数量按原生币单价折算，价格为 0 时结果为 0
func NativeUSD(wei *big.Int, price float64) float64 {
	if price <= 0 {
		return 0
	}
	value, _ := ScaleAmount(wei, nativeDecimals).Mul(decimal.NewFromFloat(price)).Float64()
	return value
}
