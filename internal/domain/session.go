package domain

import (
	"fmt"
	"time"
)

// Strategy is the opaque strategy descriptor attached to a session.
// The engine never interprets it; it is stored and echoed back.
type Strategy struct {
	Type   string                 // e.g., "MACD_RSI"
	Params map[string]interface{} // free-form parameter bag
}

// Session represents a virtual trading account: its own balance, risk
// limits, eligible pairs and trade history.
type Session struct {
	ID              int64
	Name            string
	Strategy        Strategy
	TradingPairs    []string // Eligible symbols, non-empty
	RiskPercentage  float64  // Per-trade risk budget in percent, (0,100]
	InitialBalance  float64  // Starting cash, immutable after creation
	CurrentBalance  float64  // Mutable cash ledger, never negative after validation
	MaxPositionSize float64  // Cap on per-trade notional
	TotalPNL        float64  // Cumulative realized P&L of closed trades
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the creation constraints for a session spec.
func (s *Session) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("session name must not be empty")
	}
	if len(s.TradingPairs) == 0 {
		return fmt.Errorf("session must declare at least one trading pair")
	}
	for _, pair := range s.TradingPairs {
		if pair == "" {
			return fmt.Errorf("trading pairs must not contain empty symbols")
		}
	}
	if s.RiskPercentage <= 0 || s.RiskPercentage > 100 {
		return fmt.Errorf("risk percentage %.2f must be in (0, 100]", s.RiskPercentage)
	}
	if s.InitialBalance <= 0 {
		return fmt.Errorf("initial balance %.2f must be positive", s.InitialBalance)
	}
	if s.MaxPositionSize <= 0 {
		return fmt.Errorf("max position size %.2f must be positive", s.MaxPositionSize)
	}
	return nil
}

// AllowsPair reports whether the symbol is in the session's eligible set.
func (s *Session) AllowsPair(symbol string) bool {
	for _, pair := range s.TradingPairs {
		if pair == symbol {
			return true
		}
	}
	return false
}
