package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/stableyield/deployments/pkg/logger"
)

const (
	// RPCDefaultDialTimeout bounds dialing the endpoint.
	RPCDefaultDialTimeout = 10 * time.Second
	// RPCDefaultHealthCheckTimeout bounds the eth_blockNumber call made after dialing.
	RPCDefaultHealthCheckTimeout = 5 * time.Second
)

// Client should comply with the OnchainClient and RawCaller interfaces
var (
	_ OnchainClient = &Client{}
	_ RawCaller     = &Client{}
)

// Client is a single-endpoint EVM client. Failures to reach the endpoint are reported as
// ErrRPCUnavailable, while errors answered by the node are returned unchanged.
type Client struct {
	*ethclient.Client

	rpc     *rpc.Client
	lggr    logger.Logger
	network string
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	dialTimeout        time.Duration
	healthCheckTimeout time.Duration
}

// WithDialTimeout overrides RPCDefaultDialTimeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.dialTimeout = d }
}

// DialClient connects to the endpoint of the named network and checks that it answers
// eth_blockNumber. The URL is never logged since it may embed an API key.
func DialClient(
	ctx context.Context, lggr logger.Logger, network, rawURL string, opts ...ClientOption,
) (*Client, error) {
	o := &clientOptions{
		dialTimeout:        RPCDefaultDialTimeout,
		healthCheckTimeout: RPCDefaultHealthCheckTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()

	lggr.Debugw("Dialing RPC endpoint", "network", network)

	rc, err := rpc.DialContext(dialCtx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial endpoint for network %s: %w", ErrRPCUnavailable, network, err)
	}

	c := NewClient(lggr, network, rc)
	if err := c.healthCheck(ctx, o.healthCheckTimeout); err != nil {
		c.Close()

		return nil, err
	}

	return c, nil
}

// NewClient wraps an already connected rpc.Client.
func NewClient(lggr logger.Logger, network string, rc *rpc.Client) *Client {
	return &Client{
		Client:  ethclient.NewClient(rc),
		rpc:     rc,
		lggr:    lggr,
		network: network,
	}
}

// healthCheck performs a basic health check on the RPC client by calling eth_blockNumber
func (c *Client) healthCheck(ctx context.Context, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed for network %s: %w", c.network, err)
	}

	return nil
}

// CallContext performs a raw JSON-RPC call.
func (c *Client) CallContext(ctx context.Context, result any, method string, args ...any) error {
	return c.wrap(method, c.rpc.CallContext(ctx, result, method, args...))
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.Client.BlockNumber(ctx)

	return n, c.wrap("eth_blockNumber", err)
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.Client.ChainID(ctx)

	return id, c.wrap("eth_chainId", err)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.wrap("eth_sendRawTransaction", c.Client.SendTransaction(ctx, tx))
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out, err := c.Client.CallContract(ctx, msg, blockNumber)

	return out, c.wrap("eth_call", err)
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	out, err := c.Client.CodeAt(ctx, account, blockNumber)

	return out, c.wrap("eth_getCode", err)
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, block *big.Int) (uint64, error) {
	n, err := c.Client.NonceAt(ctx, account, block)

	return n, c.wrap("eth_getTransactionCount", err)
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	h, err := c.Client.HeaderByNumber(ctx, number)

	return h, c.wrap("eth_getBlockByNumber", err)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	p, err := c.Client.SuggestGasPrice(ctx)

	return p, c.wrap("eth_gasPrice", err)
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	p, err := c.Client.SuggestGasTipCap(ctx)

	return p, c.wrap("eth_maxPriorityFeePerGas", err)
}

func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	out, err := c.Client.PendingCodeAt(ctx, account)

	return out, c.wrap("eth_getCode", err)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n, err := c.Client.PendingNonceAt(ctx, account)

	return n, c.wrap("eth_getTransactionCount", err)
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	g, err := c.Client.EstimateGas(ctx, call)

	return g, c.wrap("eth_estimateGas", err)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b, err := c.Client.BalanceAt(ctx, account, blockNumber)

	return b, c.wrap("eth_getBalance", err)
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, err := c.Client.TransactionReceipt(ctx, txHash)

	return r, c.wrap("eth_getTransactionReceipt", err)
}

func (c *Client) wrap(method string, err error) error {
	if err == nil {
		return nil
	}

	cerr := classifyTransportError(redactURL(err))
	if errors.Is(cerr, ErrRPCUnavailable) {
		c.lggr.Warnw("RPC call failed", "network", c.network, "method", method, "err", maybeDataErr(cerr))
	}

	return cerr
}

// redactURL drops the request URL from transport errors since it may embed an API key.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}

	return err
}

func maybeDataErr(err error) error {
	//revive:disable
	var d rpc.DataError
	ok := errors.As(err, &d)
	if ok {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
