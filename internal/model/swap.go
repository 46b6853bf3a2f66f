package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Swap is an observed pool trade used for fee estimation. Amounts are
// signed token deltas from the pool's point of view.
type Swap struct {
	ID        int64           `json:"id"`
	TxHash    string          `json:"tx_hash"`
	PoolID    string          `json:"pool_id"`
	Amount0   decimal.Decimal `json:"amount0"`
	Amount1   decimal.Decimal `json:"amount1"`
	Timestamp time.Time       `json:"timestamp"`
}
