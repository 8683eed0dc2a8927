// Package txdecoder 解码流程编排：拉取、解码、提取转账、定价、生成摘要
package txdecoder

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"txdecoder/internal/abicodec"
	"txdecoder/internal/catalog"
	"txdecoder/internal/chains"
	"txdecoder/internal/connection"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/internal/format"
	"txdecoder/internal/logging"
	"txdecoder/internal/metrics"
	"txdecoder/internal/pricing"
	"txdecoder/internal/summary"
	"txdecoder/internal/transfers"
	"txdecoder/internal/validation"
	"txdecoder/pkg/models"
)

// 降级字段的告警标识
const (
	WarnBlockTimestamp = "block_timestamp_unavailable"
	WarnNativePrice    = "native_price_unavailable"
)

// ClientProvider 按链提供节点客户端
type ClientProvider interface {
	ClientFor(ctx context.Context, chain string) (connection.ChainDataClient, error)
}

// Options 解码器选项
type Options struct {
	TransferWorkers int
	Catalog         *catalog.Catalog
	// OnTransition 每次状态变化时回调
	OnTransition func(hash common.Hash, from, to State)
}

// Decoder 解码入口，无状态，可并发使用
type Decoder struct {
	validator    *validation.Validator
	clients      ClientProvider
	oracle       pricing.Oracle
	catalog      *catalog.Catalog
	codec        *abicodec.Codec
	extractor    *transfers.Extractor
	logger       *logrus.Logger
	onTransition func(hash common.Hash, from, to State)
}

// New 创建解码器
func New(registry *chains.Registry, clients ClientProvider, oracle pricing.Oracle, logger *logrus.Logger, opts Options) *Decoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if oracle == nil {
		oracle = pricing.Disabled{}
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	codec := abicodec.New(cat)

	return &Decoder{
		validator:    validation.NewValidator(registry),
		clients:      clients,
		oracle:       oracle,
		catalog:      cat,
		codec:        codec,
		extractor:    transfers.NewExtractor(codec, opts.TransferWorkers, logger),
		logger:       logger,
		onTransition: opts.OnTransition,
	}
}

// run 单次解码的过程状态
type run struct {
	hash     common.Hash
	chain    chains.ChainConfig
	state    State
	log      *logrus.Entry
	warnings []string
}

func (d *Decoder) transition(r *run, next State) {
	if d.onTransition != nil {
		d.onTransition(r.hash, r.state, next)
	}
	r.log.Debugf("%s -> %s", r.state, next)
	r.state = next
}

func (r *run) warn(w string) {
	r.warnings = append(r.warnings, w)
}

// Decode 解码一笔交易，只有参数错误与交易/收据获取失败会返回错误
func (d *Decoder) Decode(ctx context.Context, hash, chain string) (*models.DecodedTransaction, error) {
	start := time.Now()

	req, err := d.validator.ValidateRequest(hash, chain)
	if err != nil {
		metrics.DecodesTotal.WithLabelValues("-", "invalid").Inc()
		return nil, err
	}

	r := &run{
		hash:  req.Hash,
		chain: req.Chain,
		state: StateFetching,
		log:   d.logger.WithFields(logging.TransactionFields(string(req.Chain.Key), req.Hash.Hex())),
	}

	result, err := d.decode(ctx, r)

	label := string(req.Chain.Key)
	metrics.DecodeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		d.transition(r, StateFailed)
		outcome := "error"
		if decodeerrors.IsNotFound(err) {
			outcome = "not_found"
		}
		metrics.DecodesTotal.WithLabelValues(label, outcome).Inc()
		r.log.WithError(err).Warn("解码失败")
		return nil, err
	}

	metrics.DecodesTotal.WithLabelValues(label, "success").Inc()
	metrics.RecordWarnings(label, result.Warnings)
	metrics.TransfersExtracted.WithLabelValues(label).Add(float64(len(result.Transfers)))
	r.log.WithFields(logrus.Fields{
		"transfers": len(result.Transfers),
		"logs":      len(result.DecodedLogs),
		"warnings":  len(result.Warnings),
	}).Info("解码完成")

	return result, nil
}

func (d *Decoder) decode(ctx context.Context, r *run) (*models.DecodedTransaction, error) {
	client, err := d.clients.ClientFor(ctx, string(r.chain.Key))
	if err != nil {
		return nil, err
	}

	// Fetching
	tx, receipt, err := d.fetch(ctx, client, r.hash)
	if err != nil {
		return nil, err
	}

	result := &models.DecodedTransaction{
		Hash:        r.hash,
		Chain:       string(r.chain.Key),
		From:        tx.From,
		To:          tx.To,
		Value:       tx.Value,
		GasUsed:     receipt.GasUsed,
		GasPrice:    receipt.EffectiveGasPrice,
		BlockNumber: receipt.BlockNumber,
		Status:      receipt.Status,
		DecodedLogs: make([]models.DecodedLog, 0, len(receipt.Logs)),
		Transfers:   make([]models.TokenTransfer, 0),
	}

	if block, err := client.GetBlock(ctx, receipt.BlockNumber); err != nil {
		decodeerrors.Absorb(r.log, err)
		r.warn(WarnBlockTimestamp)
	} else {
		ts := block.Timestamp
		result.Timestamp = &ts
	}

	d.transition(r, StateDecodingCall)
	if tx.To != nil && len(tx.Input) > 0 {
		call, err := d.codec.DecodeFunctionCall(tx.Input)
		if err != nil {
			r.log.WithField("selector", selectorOf(tx.Input)).Debug("调用数据不在签名表中")
		} else {
			result.FunctionName = call.Name
			result.FunctionArgs = call.Args
		}
	}

	d.transition(r, StateDecodingLogs)
	for _, lg := range receipt.Logs {
		event, err := d.codec.DecodeEventLog(lg)
		if err != nil {
			r.log.WithField("log_index", lg.LogIndex).Debug("日志不在签名表中")
			continue
		}
		result.DecodedLogs = append(result.DecodedLogs, event.ToDecodedLog())
	}

	d.transition(r, StateExtractingTransfers)
	extracted := d.extractor.Extract(ctx, result.DecodedLogs, client, d.oracle, r.chain)
	if len(extracted.Transfers) > 0 {
		result.Transfers = extracted.Transfers
	}
	for _, w := range extracted.Warnings {
		r.warn(w)
	}
	if n := len(extracted.NonFungible); n > 0 {
		metrics.NonFungibleSkipped.WithLabelValues(string(r.chain.Key)).Add(float64(n))
		r.log.WithField("log_indexes", extracted.NonFungible).Debug("跳过非同质化代币转账")
	}

	// 调用方已放弃，不再查价
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.transition(r, StatePricing)
	nativePrice := d.oracle.NativePriceUSD(ctx, r.chain)
	if nativePrice <= 0 {
		r.warn(WarnNativePrice)
	}
	result.ValueUSD = format.NativeUSD(tx.Value, nativePrice)
	result.GasCostUSD = format.NativeUSD(receipt.GasCost(), nativePrice)

	d.transition(r, StateSummarizing)
	result.Summary = summary.Summarize(summary.Input{
		To:           tx.To,
		Value:        tx.Value,
		NativeSymbol: r.chain.NativeCurrency,
		FunctionName: result.FunctionName,
		Transfers:    result.Transfers,
		Contracts:    d.catalog,
	})

	result.Warnings = r.warnings
	d.transition(r, StateDone)
	return result, nil
}

// fetch 并发获取交易与收据，未找到优先于其它错误
func (d *Decoder) fetch(ctx context.Context, client connection.ChainDataClient, hash common.Hash) (*models.Transaction, *models.Receipt, error) {
	var (
		tx                *models.Transaction
		receipt           *models.Receipt
		txErr, receiptErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		tx, txErr = client.GetTransaction(ctx, hash)
		return nil
	})
	g.Go(func() error {
		receipt, receiptErr = client.GetReceipt(ctx, hash)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{txErr, receiptErr} {
		if decodeerrors.IsNotFound(err) {
			return nil, nil, err
		}
	}
	for _, err := range []error{txErr, receiptErr} {
		if err != nil {
			return nil, nil, err
		}
	}
	return tx, receipt, nil
}

func selectorOf(input []byte) string {
	if len(input) > 4 {
		input = input[:4]
	}
	return "0x" + common.Bytes2Hex(input)
}
