// Package graph ingests positions and swaps from an external subgraph
// over its GraphQL endpoint.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client is a minimal GraphQL client for the positions subgraph.
type Client struct {
	url        string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the given GraphQL endpoint URL.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph endpoint returned status %d", resp.StatusCode)
	}

	var envelope graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graph error: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

const poolsQuery = `query Pools($first: Int!, $skip: Int!) {
  pools(first: $first, skip: $skip, orderBy: id) {
    id
    feeTier
    token0 { id }
    token1 { id }
    createdAtTimestamp
  }
}`

type graphPool struct {
	ID      string `json:"id"`
	FeeTier string `json:"feeTier"`
	Token0  struct {
		ID string `json:"id"`
	} `json:"token0"`
	Token1 struct {
		ID string `json:"id"`
	} `json:"token1"`
	CreatedAtTimestamp string `json:"createdAtTimestamp"`
}

// FetchPools returns one page of pools from the subgraph.
func (c *Client) FetchPools(ctx context.Context, first, skip int) ([]model.Pool, error) {
	var data struct {
		Pools []graphPool `json:"pools"`
	}
	err := c.execute(ctx, poolsQuery, map[string]any{"first": first, "skip": skip}, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}

	pools := make([]model.Pool, 0, len(data.Pools))
	for _, raw := range data.Pools {
		pool, err := raw.toModel()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", raw.ID, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func (p graphPool) toModel() (model.Pool, error) {
	feeTier, err := parseTick(p.FeeTier)
	if err != nil {
		return model.Pool{}, fmt.Errorf("fee tier: %w", err)
	}
	createdAt, err := parseUnix(p.CreatedAtTimestamp)
	if err != nil {
		return model.Pool{}, fmt.Errorf("timestamp: %w", err)
	}

	return model.Pool{
		PoolID:      p.ID,
		Token0:      p.Token0.ID,
		Token1:      p.Token1.ID,
		FeeTier:     feeTier,
		TickSpacing: tickSpacingForFee(feeTier),
		CreatedAt:   createdAt,
	}, nil
}

// tickSpacingForFee maps the standard fee tiers to their tick spacing.
// The subgraph does not expose spacing directly.
func tickSpacingForFee(feeTier int32) int32 {
	switch feeTier {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 0
	}
}

const positionsQuery = `query Positions($first: Int!, $skip: Int!) {
  positions(first: $first, skip: $skip, orderBy: id) {
    id
    owner
    liquidity
    tickLower { tickIdx }
    tickUpper { tickIdx }
    pool { id }
    transaction { timestamp }
  }
}`

type graphTick struct {
	TickIdx string `json:"tickIdx"`
}

type graphPosition struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Liquidity   string    `json:"liquidity"`
	TickLower   graphTick `json:"tickLower"`
	TickUpper   graphTick `json:"tickUpper"`
	Pool        struct {
		ID string `json:"id"`
	} `json:"pool"`
	Transaction struct {
		Timestamp string `json:"timestamp"`
	} `json:"transaction"`
}

// FetchPositions returns one page of positions from the subgraph.
func (c *Client) FetchPositions(ctx context.Context, first, skip int) ([]model.Position, error) {
	var data struct {
		Positions []graphPosition `json:"positions"`
	}
	err := c.execute(ctx, positionsQuery, map[string]any{"first": first, "skip": skip}, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	positions := make([]model.Position, 0, len(data.Positions))
	for _, raw := range data.Positions {
		position, err := raw.toModel()
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", raw.ID, err)
		}
		positions = append(positions, position)
	}
	return positions, nil
}

func (p graphPosition) toModel() (model.Position, error) {
	tickLower, err := parseTick(p.TickLower.TickIdx)
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpper, err := parseTick(p.TickUpper.TickIdx)
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := decimal.NewFromString(p.Liquidity)
	if err != nil {
		return model.Position{}, fmt.Errorf("liquidity: %w", err)
	}
	createdAt, err := parseUnix(p.Transaction.Timestamp)
	if err != nil {
		return model.Position{}, fmt.Errorf("timestamp: %w", err)
	}

	return model.Position{
		NFTID:     p.ID,
		Owner:     p.Owner,
		PoolID:    p.Pool.ID,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity,
		CreatedAt: createdAt,
	}, nil
}

const swapsQuery = `query Swaps($since: BigInt!, $first: Int!, $skip: Int!) {
  swaps(first: $first, skip: $skip, orderBy: timestamp, where: { timestamp_gte: $since }) {
    id
    amount0
    amount1
    timestamp
    pool { id }
    transaction { id }
  }
}`

type graphSwap struct {
	ID        string `json:"id"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Timestamp string `json:"timestamp"`
	Pool      struct {
		ID string `json:"id"`
	} `json:"pool"`
	Transaction struct {
		ID string `json:"id"`
	} `json:"transaction"`
}

// FetchSwaps returns one page of swaps at or after the given unix
// timestamp.
func (c *Client) FetchSwaps(ctx context.Context, since uint64, first, skip int) ([]model.Swap, error) {
	var data struct {
		Swaps []graphSwap `json:"swaps"`
	}
	variables := map[string]any{
		"since": strconv.FormatUint(since, 10),
		"first": first,
		"skip":  skip,
	}
	if err := c.execute(ctx, swapsQuery, variables, &data); err != nil {
		return nil, fmt.Errorf("fetch swaps: %w", err)
	}

	swaps := make([]model.Swap, 0, len(data.Swaps))
	for _, raw := range data.Swaps {
		swap, err := raw.toModel()
		if err != nil {
			return nil, fmt.Errorf("swap %s: %w", raw.ID, err)
		}
		swaps = append(swaps, swap)
	}
	return swaps, nil
}

func (s graphSwap) toModel() (model.Swap, error) {
	amount0, err := decimal.NewFromString(s.Amount0)
	if err != nil {
		return model.Swap{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := decimal.NewFromString(s.Amount1)
	if err != nil {
		return model.Swap{}, fmt.Errorf("amount1: %w", err)
	}
	timestamp, err := parseUnix(s.Timestamp)
	if err != nil {
		return model.Swap{}, fmt.Errorf("timestamp: %w", err)
	}

	return model.Swap{
		TxHash:    s.Transaction.ID,
		PoolID:    s.Pool.ID,
		Amount0:   amount0,
		Amount1:   amount1,
		Timestamp: timestamp,
	}, nil
}

func parseTick(raw string) (int32, error) {
	tick, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(tick), nil
}

func parseUnix(raw string) (time.Time, error) {
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0).UTC(), nil
}
