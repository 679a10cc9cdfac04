package domain

import "time"

// Trade represents one simulated position owned by a session.
// A trade is created OPEN, transitions to CLOSED exactly once (realized
// P&L locked in) or to CANCELLED administratively, and is never deleted
// so the metrics history stays append-only.
type Trade struct {
	ID         int64     // Unique identifier (store-assigned)
	SessionID  int64     // Owning session, immutable after creation
	Symbol     string    // Trading symbol (e.g., "BTCUSDT"), must be in the session's pairs
	Side       OrderSide // BUY or SELL
	EntryPrice float64   // Price at which the position was entered
	ExitPrice  float64   // Price at which the position was exited (0 while open)
	Quantity   float64   // Size of the position
	StopLoss   float64   // Advisory stop-loss level (0 if unset, not enforced by the engine)
	TakeProfit float64   // Advisory take-profit level (0 if unset, not enforced by the engine)
	Status     TradeStatus
	EntryTime  time.Time // Timestamp when the trade was opened
	ExitTime   time.Time // Timestamp when the trade was closed (zero value while open)
	PNL        float64   // Realized profit and loss, set only on close
	ROIPct     float64   // Realized return on entry notional in percent, set only on close

	// Mark-to-market fields, refreshed on demand while OPEN.
	UnrealizedPNL    float64
	UnrealizedROIPct float64
	MarkedAt         time.Time // Last successful mark-to-market (zero value if never marked)
}

// IsOpen checks if the trade status is open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// Notional returns the cash value of the position at entry.
func (t *Trade) Notional() float64 {
	return t.EntryPrice * t.Quantity
}

// PNLAt computes the side-dependent profit and ROI percentage of the
// trade valued at the given price. Used both for realized P&L at close
// and for mark-to-market while the trade is open.
func (t *Trade) PNLAt(price float64) (pnl, roiPct float64) {
	entryValue := t.EntryPrice * t.Quantity
	exitValue := price * t.Quantity
	if t.Side == Sell {
		pnl = entryValue - exitValue
	} else {
		pnl = exitValue - entryValue
	}
	if entryValue != 0 {
		roiPct = pnl / entryValue * 100
	}
	return pnl, roiPct
}

// CloseCredit returns the cash credited back to the session balance
// when the trade closes at the given price. A BUY releases the reserved
// notional plus P&L (the exit value); a SELL reserved nothing at open,
// so the credit is the entry value received net of the exit value paid
// to buy back, i.e. the realized P&L.
func (t *Trade) CloseCredit(exitPrice float64) float64 {
	if t.Side == Sell {
		return t.EntryPrice*t.Quantity - exitPrice*t.Quantity
	}
	return exitPrice * t.Quantity
}
