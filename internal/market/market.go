package market

import (
	"context"
	"math"
)

// Snapshot is the per-symbol market context attached to each report card.
// Pointer fields are best-effort: nil means the value could not be
// retrieved, which is never fatal.
type Snapshot struct {
	CompanyName   string   `json:"company_name"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	PeriodLow     *float64 `json:"period_low,omitempty"`
	PeriodHigh    *float64 `json:"period_high,omitempty"`
}

// Provider retrieves a market snapshot for one symbol.
type Provider interface {
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// Degraded is the sentinel snapshot used when market data is unavailable.
// Callers substitute it so downstream stages never observe an absence.
func Degraded(symbol string) Snapshot {
	return Snapshot{CompanyName: symbol}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
