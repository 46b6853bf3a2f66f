package model

import "github.com/shopspring/decimal"

// PositionPnL is the P&L breakdown for a position. It is recomputed
// fresh on every evaluation, never updated in place.
type PositionPnL struct {
	FeesEarned      decimal.Decimal `json:"fees_earned"`
	ImpermanentLoss decimal.Decimal `json:"impermanent_loss"`
	GasSpent        decimal.Decimal `json:"gas_spent"`
	NetPnL          decimal.Decimal `json:"net_pnl"`
}

// HealthStatus is a coarse classification of a position at a point in
// time. It carries no persisted state; each evaluation stands alone.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Description returns a human-readable summary of the status.
func (s HealthStatus) Description() string {
	switch s {
	case HealthHealthy:
		return "Position is in range with positive P&L"
	case HealthWarning:
		return "Position is near the edge of its range or slightly underwater"
	case HealthCritical:
		return "Position is out of range or has significantly negative P&L"
	default:
		return "Unknown health status"
	}
}
