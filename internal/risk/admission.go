package risk

import (
	"fmt"
	"math"

	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"
)

// Validate checks whether a trade request may be admitted against the
// session's constraints. It returns an error wrapping the matching
// sentinel from ports so callers can branch on the rejection class:
//
//   - ports.ErrValidation for malformed input or an ineligible symbol
//   - ports.ErrLimitExceeded when the notional exceeds the per-trade cap
//   - ports.ErrInsufficientBalance when a BUY cannot be funded
//
// SELL trades reserve no cash in this model, so only BUY admission
// checks the balance.
func Validate(session *domain.Session, symbol string, entryPrice, quantity float64, side domain.OrderSide) error {
	if entryPrice <= 0 {
		return fmt.Errorf("%w: entry price %.8f must be positive", ports.ErrValidation, entryPrice)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity %.8f must be positive", ports.ErrValidation, quantity)
	}
	if !side.IsValid() {
		return fmt.Errorf("%w: unknown order side %q", ports.ErrValidation, side)
	}
	if !session.AllowsPair(symbol) {
		return fmt.Errorf("%w: symbol %s is not in the session's trading pairs", ports.ErrValidation, symbol)
	}

	notional := entryPrice * quantity
	if notional > session.MaxPositionSize {
		return fmt.Errorf("%w: notional %.2f exceeds max position size %.2f", ports.ErrLimitExceeded, notional, session.MaxPositionSize)
	}
	if side == domain.Buy && notional > session.CurrentBalance {
		return fmt.Errorf("%w: notional %.2f exceeds current balance %.2f", ports.ErrInsufficientBalance, notional, session.CurrentBalance)
	}
	return nil
}

// PositionSize calculates a quantity that risks the session's
// configured percentage of its current balance at the given price,
// capped so the notional never exceeds the per-trade limit.
func PositionSize(session *domain.Session, price float64) float64 {
	if price <= 0 {
		return 0
	}
	notional := session.CurrentBalance * session.RiskPercentage / 100
	notional = math.Min(notional, session.MaxPositionSize)
	return notional / price
}
