package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// poolABIJSON covers the two read-only pool methods the analytics
// pipeline needs: slot0 for the current price/tick and liquidity for
// the pool's active depth.
const poolABIJSON = `[
	{"inputs":[],"name":"slot0","outputs":[
		{"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},
		{"internalType":"int24","name":"tick","type":"int24"},
		{"internalType":"uint16","name":"observationIndex","type":"uint16"},
		{"internalType":"uint16","name":"observationCardinality","type":"uint16"},
		{"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},
		{"internalType":"uint8","name":"feeProtocol","type":"uint8"},
		{"internalType":"bool","name":"unlocked","type":"bool"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"liquidity","outputs":[
		{"internalType":"uint128","name":"","type":"uint128"}
	],"stateMutability":"view","type":"function"}
]`

// PoolState is the observed on-chain state of a pool at call time.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	poolABI   abi.ABI
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	poolABI, err := abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		poolABI:   poolABI,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// ObservePool reads the current slot0 and liquidity of a pool.
func (c *Client) ObservePool(ctx context.Context, pool common.Address) (PoolState, error) {
	slot0Data, err := c.callPool(ctx, pool, "slot0")
	if err != nil {
		return PoolState{}, fmt.Errorf("call slot0: %w", err)
	}

	slot0, err := c.poolABI.Unpack("slot0", slot0Data)
	if err != nil {
		return PoolState{}, fmt.Errorf("unpack slot0: %w", err)
	}
	if len(slot0) < 2 {
		return PoolState{}, fmt.Errorf("unexpected slot0 shape: %d values", len(slot0))
	}

	sqrtPriceX96, ok := slot0[0].(*big.Int)
	if !ok {
		return PoolState{}, fmt.Errorf("slot0 sqrtPriceX96 has unexpected type %T", slot0[0])
	}
	tick, ok := slot0[1].(*big.Int)
	if !ok {
		return PoolState{}, fmt.Errorf("slot0 tick has unexpected type %T", slot0[1])
	}

	liquidityData, err := c.callPool(ctx, pool, "liquidity")
	if err != nil {
		return PoolState{}, fmt.Errorf("call liquidity: %w", err)
	}

	liquidityVals, err := c.poolABI.Unpack("liquidity", liquidityData)
	if err != nil {
		return PoolState{}, fmt.Errorf("unpack liquidity: %w", err)
	}
	liquidity, ok := liquidityVals[0].(*big.Int)
	if !ok {
		return PoolState{}, fmt.Errorf("liquidity has unexpected type %T", liquidityVals[0])
	}

	return PoolState{
		SqrtPriceX96: sqrtPriceX96,
		Tick:         int32(tick.Int64()),
		Liquidity:    liquidity,
	}, nil
}

func (c *Client) callPool(ctx context.Context, pool common.Address, method string) ([]byte, error) {
	input, err := c.poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: input}, nil)
}
