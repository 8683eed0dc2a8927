package connection

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"txdecoder/internal/chains"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/internal/retry"
	"txdecoder/pkg/models"
)

// ChainDataClient 解码所需的节点查询
type ChainDataClient interface {
	GetTransaction(ctx context.Context, hash common.Hash) (*models.Transaction, error)
	GetReceipt(ctx context.Context, hash common.Hash) (*models.Receipt, error)
	GetBlock(ctx context.Context, number uint64) (*models.Block, error)
	CallView(ctx context.Context, to common.Address, calldata []byte) ([]byte, error)
}

// Options 客户端选项
type Options struct {
	Timeout time.Duration // 单次请求超时
	Retry   retry.Config
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		Timeout: 15 * time.Second,
		Retry:   retry.NetworkConfig,
	}
}

// Client 基于 go-ethereum 的单链客户端
type Client struct {
	chain   chains.ChainConfig
	rpc     *rpc.Client
	eth     *ethclient.Client
	retrier *retry.Retrier
	timeout time.Duration
	logger  *logrus.Entry
}

// Dial 连接链的 RPC 节点
func Dial(ctx context.Context, chain chains.ChainConfig, opts Options, logger *logrus.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, decodeerrors.NewTransportError("dial "+string(chain.Key), err)
	}
	return NewClient(rpcClient, chain, opts, logger), nil
}

// NewClient 使用已建立的 RPC 连接创建客户端
func NewClient(rpcClient *rpc.Client, chain chains.ChainConfig, opts Options, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		chain:   chain,
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
		retrier: retry.NewRetrier(opts.Retry, logger),
		timeout: opts.Timeout,
		logger:  logger.WithField("chain", chain.Key),
	}
}

// Chain 客户端对应的链
func (c *Client) Chain() chains.ChainConfig {
	return c.chain
}

// Close 关闭底层连接
func (c *Client) Close() {
	c.rpc.Close()
}

// rpcTransaction 节点返回的交易，附带区块与发送方信息
type rpcTransaction struct {
	tx *types.Transaction
	rpcTransactionExtra
}

type rpcTransactionExtra struct {
	BlockNumber *hexutil.Big    `json:"blockNumber,omitempty"`
	BlockHash   *common.Hash    `json:"blockHash,omitempty"`
	From        *common.Address `json:"from,omitempty"`
}

func (t *rpcTransaction) UnmarshalJSON(msg []byte) error {
	if err := json.Unmarshal(msg, &t.tx); err != nil {
		return err
	}
	return json.Unmarshal(msg, &t.rpcTransactionExtra)
}

// GetTransaction 查询交易
func (c *Client) GetTransaction(ctx context.Context, hash common.Hash) (*models.Transaction, error) {
	return retry.Do(ctx, c.retrier, "eth_getTransactionByHash", func(ctx context.Context) (*models.Transaction, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		var raw json.RawMessage
		if err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionByHash", hash); err != nil {
			return nil, decodeerrors.NewTransportError("get transaction", err)
		}
		if len(raw) == 0 || string(raw) == "null" {
			return nil, decodeerrors.ErrTransactionNotFound.WithTxHash(hash.Hex())
		}

		var rt rpcTransaction
		if err := json.Unmarshal(raw, &rt); err != nil {
			return nil, decodeerrors.NewTransportError("get transaction", err)
		}

		from, err := c.sender(rt)
		if err != nil {
			return nil, decodeerrors.NewTransportError("recover sender", err)
		}

		var blockNumber uint64
		if rt.BlockNumber != nil {
			blockNumber = rt.BlockNumber.ToInt().Uint64()
		}

		tx := &models.Transaction{}
		tx.FromEthereumTransaction(rt.tx, from, blockNumber)
		if tx.ChainID == 0 {
			tx.ChainID = c.chain.ChainID
		}
		return tx, nil
	})
}

// sender 优先使用节点返回的 from，否则从签名恢复
func (c *Client) sender(rt rpcTransaction) (common.Address, error) {
	if rt.From != nil {
		return *rt.From, nil
	}

	chainID := rt.tx.ChainId()
	if chainID == nil || chainID.Sign() == 0 {
		chainID = nil
	}
	return types.Sender(types.LatestSignerForChainID(chainID), rt.tx)
}

// GetReceipt 查询交易收据
func (c *Client) GetReceipt(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	return retry.Do(ctx, c.retrier, "eth_getTransactionReceipt", func(ctx context.Context) (*models.Receipt, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return nil, decodeerrors.ErrReceiptNotFound.WithTxHash(hash.Hex())
			}
			return nil, decodeerrors.NewTransportError("get receipt", err)
		}

		r := &models.Receipt{}
		r.FromEthereumReceipt(receipt)
		return r, nil
	})
}

// GetBlock 按高度查询区块头
func (c *Client) GetBlock(ctx context.Context, number uint64) (*models.Block, error) {
	return retry.Do(ctx, c.retrier, "eth_getBlockByNumber", func(ctx context.Context) (*models.Block, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return nil, decodeerrors.ErrBlockNotFound.WithContext("block_number", number)
			}
			return nil, decodeerrors.NewTransportError("get block", err)
		}

		b := &models.Block{}
		b.FromEthereumHeader(header)
		return b, nil
	})
}

// CallView 在最新区块上执行只读调用
func (c *Client) CallView(ctx context.Context, to common.Address, calldata []byte) ([]byte, error) {
	return retry.Do(ctx, c.retrier, "eth_call", func(ctx context.Context) ([]byte, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
		if err != nil {
			// 合约 revert 重试没有意义，限流等节点错误仍按传输错误重试
			if isExecutionRevert(err) {
				return nil, decodeerrors.WrapError(err, decodeerrors.ErrorTypeMetadataUnavailable,
					decodeerrors.SeverityLow, "VIEW_CALL_FAILED", "view call").WithContext("contract", to.Hex())
			}
			return nil, decodeerrors.NewTransportError("view call", err)
		}
		return out, nil
	})
}

// isExecutionRevert 节点执行了调用但合约 revert
func isExecutionRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
