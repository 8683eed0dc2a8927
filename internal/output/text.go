package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"txdecoder/internal/chains"
	"txdecoder/internal/format"
	"txdecoder/internal/metrics"
	"txdecoder/pkg/models"
)

// TextOutput 面向终端的可读输出
type TextOutput struct {
	mu       sync.Mutex
	w        io.Writer
	registry *chains.Registry
	closer   io.Closer
}

// NewTextOutput 创建文本输出器
func NewTextOutput(w io.Writer, registry *chains.Registry) *TextOutput {
	if registry == nil {
		registry = chains.DefaultRegistry()
	}
	return &TextOutput{w: w, registry: registry}
}

// WriteTransaction 写入解码结果
func (o *TextOutput) WriteTransaction(tx *models.DecodedTransaction) error {
	if tx == nil {
		return nil
	}

	chain, ok := o.registry.ConfigFor(tx.Chain)
	if !ok {
		chain = chains.ChainConfig{Key: chains.SupportedChain(tx.Chain), Name: tx.Chain}
	}

	text := RenderText(tx, chain)

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := io.WriteString(o.w, text); err != nil {
		metrics.PublishedResults.WithLabelValues("text", "error").Inc()
		return fmt.Errorf("写入解码结果失败: %w", err)
	}

	metrics.PublishedResults.WithLabelValues("text", "success").Inc()
	return nil
}

// Close 关闭底层文件
func (o *TextOutput) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}

// RenderText 把解码结果排版为文本
func RenderText(tx *models.DecodedTransaction, chain chains.ChainConfig) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %-12s %s\n", label+":", value)
	}

	fmt.Fprintf(&b, "%s\n", tx.Summary)
	status := "✓ Success"
	if tx.Status != models.StatusSuccess {
		status = "✗ Failed"
	}
	row("Status", status)
	row("Chain", chain.Name)

	b.WriteString("\nTransaction Info\n")
	hash := tx.Hash.Hex()
	row("Hash", withLink(hash, chain.TxURL(hash), chain))
	from := tx.From.Hex()
	row("From", withLink(from, chain.AddressURL(from), chain))
	if tx.To != nil {
		to := tx.To.Hex()
		row("To", withLink(to, chain.AddressURL(to), chain))
	} else {
		row("To", "Contract Creation")
	}
	value := fmt.Sprintf("%s %s", format.FormatNative(tx.Value), chain.NativeCurrency)
	if tx.ValueUSD > 0 {
		value += fmt.Sprintf(" (%s)", format.FormatUSD(tx.ValueUSD))
	}
	row("Value", value)
	row("Block", withLink(fmt.Sprintf("%d", tx.BlockNumber), chain.BlockURL(tx.BlockNumber), chain))
	if tx.Timestamp != nil {
		row("Timestamp", time.Unix(int64(*tx.Timestamp), 0).UTC().Format(time.RFC3339))
	}

	b.WriteString("\nGas Details\n")
	row("Gas Used", format.FormatGas(tx.GasUsed))
	row("Gas Price", fmt.Sprintf("%s %s", format.FormatNative(tx.GasPrice), chain.NativeCurrency))
	row("Fee", format.FormatUSD(tx.GasCostUSD))

	if len(tx.Transfers) > 0 {
		b.WriteString("\nToken Transfers\n")
		for _, t := range tx.Transfers {
			line := fmt.Sprintf("%s %s", format.FormatTokenAmount(t.Value, t.Token.Decimals), t.Token.Symbol)
			if t.ValueUSD != nil && *t.ValueUSD > 0 {
				line += fmt.Sprintf(" (%s)", format.FormatUSD(*t.ValueUSD))
			}
			fmt.Fprintf(&b, "  %s  %s -> %s\n", line,
				format.ShortenAddress(t.From.Hex(), 4), format.ShortenAddress(t.To.Hex(), 4))
		}
	}

	if tx.FunctionName != "" {
		b.WriteString("\nFunction Call\n")
		row("Function", tx.FunctionName)
		if len(tx.FunctionArgs) > 0 {
			if args, err := json.MarshalIndent(tx.FunctionArgs, "  ", "  "); err == nil {
				fmt.Fprintf(&b, "  %s\n", args)
			}
		}
	}

	if len(tx.DecodedLogs) > 0 {
		fmt.Fprintf(&b, "\nEvents (%d)\n", len(tx.DecodedLogs))
		for _, lg := range tx.DecodedLogs {
			fmt.Fprintf(&b, "  #%d %s  %s\n", lg.LogIndex, lg.EventName, format.ShortenAddress(lg.Address.Hex(), 4))
		}
	}

	if len(tx.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range tx.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func withLink(value, url string, chain chains.ChainConfig) string {
	if chain.ExplorerURL == "" {
		return value
	}
	return fmt.Sprintf("%s  %s", value, url)
}
