package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is one time-series row of a position's P&L and
// health, as persisted by the snapshot job.
type PositionSnapshot struct {
	ID              int64           `json:"id"`
	PositionID      int64           `json:"position_id"`
	Timestamp       time.Time       `json:"timestamp"`
	FeesEarned      decimal.Decimal `json:"fees_earned"`
	ImpermanentLoss decimal.Decimal `json:"impermanent_loss"`
	GasSpent        decimal.Decimal `json:"gas_spent"`
	NetPnL          decimal.Decimal `json:"net_pnl"`
	Price           decimal.Decimal `json:"price"`
	CurrentTick     int32           `json:"current_tick"`
	Health          HealthStatus    `json:"health"`
}
