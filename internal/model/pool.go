package model

import "time"

// Pool represents pool metadata for storage.
type Pool struct {
	PoolID      string    `json:"pool_id"`
	Token0      string    `json:"token0"`
	Token1      string    `json:"token1"`
	FeeTier     int32     `json:"fee_tier"`
	TickSpacing int32     `json:"tick_spacing"`
	CreatedAt   time.Time `json:"created_at"`
}
