package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an LP position NFT as ingested from the subgraph.
// Records are immutable once stored; the analytics layer only reads them.
type Position struct {
	ID        int64           `json:"id"`
	NFTID     string          `json:"nft_id"`
	Owner     string          `json:"owner"`
	PoolID    string          `json:"pool_id"`
	TickLower int32           `json:"tick_lower"`
	TickUpper int32           `json:"tick_upper"`
	Liquidity decimal.Decimal `json:"liquidity"`
	CreatedAt time.Time       `json:"created_at"`
}
