// Package transfers 从解码后的日志中提取同质化代币转账
package transfers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"txdecoder/internal/abicodec"
	"txdecoder/internal/chains"
	"txdecoder/internal/connection"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/internal/format"
	"txdecoder/internal/pricing"
	"txdecoder/pkg/models"
)

// DefaultWorkers 并发查询代币元数据的默认协程数
const DefaultWorkers = 4

// Result 提取结果
type Result struct {
	Transfers   []models.TokenTransfer
	Warnings    []string
	NonFungible []uint // 识别到但未展示的 NFT 转账所在日志
}

// Extractor 转账提取器
type Extractor struct {
	codec   *abicodec.Codec
	workers int
	logger  *logrus.Logger
}

// NewExtractor 创建提取器，workers 限制同时处理的代币数
func NewExtractor(codec *abicodec.Codec, workers int, logger *logrus.Logger) *Extractor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Extractor{codec: codec, workers: workers, logger: logger}
}

type candidate struct {
	log   models.DecodedLog
	from  common.Address
	to    common.Address
	value *big.Int
}

type tokenQuote struct {
	info  models.TokenInfo
	price float64
	err   error
}

// Extract 输出顺序与输入日志顺序一致，单个代币失败只影响其自身的转账
func (e *Extractor) Extract(ctx context.Context, logs []models.DecodedLog, client connection.ChainDataClient,
	oracle pricing.Oracle, chain chains.ChainConfig) Result {

	var result Result
	candidates := make([]candidate, 0, len(logs))

	for _, lg := range logs {
		if lg.EventName != "Transfer" {
			continue
		}
		if _, nft := lg.Args["tokenId"]; nft {
			result.NonFungible = append(result.NonFungible, lg.LogIndex)
			continue
		}

		c, ok := toCandidate(lg)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("transfer_dropped:%d", lg.LogIndex))
			continue
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return result
	}

	quotes := e.quoteTokens(ctx, candidates, client, oracle, chain)

	for _, c := range candidates {
		quote := quotes[c.log.Address]
		if quote.err != nil {
			decodeerrors.Absorb(e.logger.WithFields(logrus.Fields{
				"chain":     chain.Key,
				"token":     c.log.Address.Hex(),
				"log_index": c.log.LogIndex,
			}), quote.err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("transfer_dropped:%d", c.log.LogIndex))
			continue
		}

		transfer := models.TokenTransfer{
			From:     c.from,
			To:       c.to,
			Value:    c.value,
			ValueUSD: format.USDValue(c.value, quote.info.Decimals, quote.price),
			Token:    quote.info,
			Type:     models.TransferERC20,
			LogIndex: c.log.LogIndex,
		}
		if transfer.ValueUSD == nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("token_price_unavailable:%d", c.log.LogIndex))
		}
		result.Transfers = append(result.Transfers, transfer)
	}

	return result
}

func toCandidate(lg models.DecodedLog) (candidate, bool) {
	from, ok1 := lg.Args["from"].(common.Address)
	to, ok2 := lg.Args["to"].(common.Address)
	value, ok3 := lg.Args["value"].(*big.Int)
	if !ok1 || !ok2 || !ok3 || value == nil {
		return candidate{}, false
	}
	return candidate{log: lg, from: from, to: to, value: value}, true
}

// quoteTokens 每个代币只查询一次元数据和价格
func (e *Extractor) quoteTokens(ctx context.Context, candidates []candidate, client connection.ChainDataClient,
	oracle pricing.Oracle, chain chains.ChainConfig) map[common.Address]tokenQuote {

	tokens := make([]common.Address, 0, len(candidates))
	seen := make(map[common.Address]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.log.Address]; !ok {
			seen[c.log.Address] = struct{}{}
			tokens = append(tokens, c.log.Address)
		}
	}

	slots := make([]tokenQuote, len(tokens))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, token := range tokens {
		g.Go(func() error {
			info, err := e.metadata(ctx, client, token)
			if err != nil {
				slots[i] = tokenQuote{err: err}
				return nil
			}
			slots[i] = tokenQuote{info: info, price: oracle.TokenPriceUSD(ctx, chain, token)}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make(map[common.Address]tokenQuote, len(tokens))
	for i, token := range tokens {
		quotes[token] = slots[i]
	}
	return quotes
}

// metadata 并发读取 symbol() 与 decimals()，任一失败即失败
func (e *Extractor) metadata(ctx context.Context, client connection.ChainDataClient, token common.Address) (models.TokenInfo, error) {
	info := models.TokenInfo{Address: token}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := e.view(gctx, client, token, "symbol")
		if err != nil {
			return err
		}
		symbol, ok := values[0].(string)
		if !ok {
			return fmt.Errorf("symbol() 返回类型异常: %T", values[0])
		}
		info.Symbol = symbol
		return nil
	})
	g.Go(func() error {
		values, err := e.view(gctx, client, token, "decimals")
		if err != nil {
			return err
		}
		decimals, ok := values[0].(uint8)
		if !ok {
			return fmt.Errorf("decimals() 返回类型异常: %T", values[0])
		}
		info.Decimals = decimals
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.TokenInfo{}, decodeerrors.WrapError(err, decodeerrors.ErrorTypeMetadataUnavailable,
			decodeerrors.SeverityMedium, "TOKEN_METADATA_UNAVAILABLE", "token metadata unavailable")
	}
	return info, nil
}

func (e *Extractor) view(ctx context.Context, client connection.ChainDataClient, token common.Address, name string) ([]interface{}, error) {
	calldata, err := e.codec.EncodeFunctionCall(name)
	if err != nil {
		return nil, err
	}

	out, err := client.CallView(ctx, token, calldata)
	if err != nil {
		return nil, err
	}

	values, err := e.codec.DecodeFunctionResult(name, out)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s() 没有返回值", name)
	}
	return values, nil
}
