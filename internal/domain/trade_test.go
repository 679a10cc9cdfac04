package domain

import (
	"math"
	"testing"
)

func TestTradePNLAt(t *testing.T) {
	tests := []struct {
		name       string
		side       OrderSide
		entryPrice float64
		quantity   float64
		price      float64
		wantPNL    float64
		wantROI    float64
	}{
		{
			name:       "buy profit",
			side:       Buy,
			entryPrice: 100,
			quantity:   2,
			price:      110,
			wantPNL:    20,
			wantROI:    10,
		},
		{
			name:       "buy loss",
			side:       Buy,
			entryPrice: 100,
			quantity:   2,
			price:      90,
			wantPNL:    -20,
			wantROI:    -10,
		},
		{
			name:       "sell profit on price drop",
			side:       Sell,
			entryPrice: 100,
			quantity:   2,
			price:      90,
			wantPNL:    20,
			wantROI:    10,
		},
		{
			name:       "sell loss on price rise",
			side:       Sell,
			entryPrice: 100,
			quantity:   2,
			price:      110,
			wantPNL:    -20,
			wantROI:    -10,
		},
		{
			name:       "flat price",
			side:       Buy,
			entryPrice: 50,
			quantity:   4,
			price:      50,
			wantPNL:    0,
			wantROI:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := &Trade{Side: tt.side, EntryPrice: tt.entryPrice, Quantity: tt.quantity}
			pnl, roi := trade.PNLAt(tt.price)
			if math.Abs(pnl-tt.wantPNL) > 1e-9 {
				t.Errorf("PNLAt(%v) pnl = %v, want %v", tt.price, pnl, tt.wantPNL)
			}
			if math.Abs(roi-tt.wantROI) > 1e-9 {
				t.Errorf("PNLAt(%v) roi = %v, want %v", tt.price, roi, tt.wantROI)
			}
		})
	}
}

func TestTradeSideSymmetry(t *testing.T) {
	// A BUY and a SELL of the same size at the same prices must have
	// exactly opposite P&L.
	buy := &Trade{Side: Buy, EntryPrice: 200, Quantity: 1.5}
	sell := &Trade{Side: Sell, EntryPrice: 200, Quantity: 1.5}

	for _, price := range []float64{150, 200, 250} {
		buyPNL, _ := buy.PNLAt(price)
		sellPNL, _ := sell.PNLAt(price)
		if buyPNL != -sellPNL {
			t.Errorf("at price %v: buy pnl %v, sell pnl %v, want opposites", price, buyPNL, sellPNL)
		}
	}
}

func TestTradeCloseCredit(t *testing.T) {
	tests := []struct {
		name       string
		side       OrderSide
		entryPrice float64
		quantity   float64
		exitPrice  float64
		want       float64
	}{
		{name: "buy returns exit value", side: Buy, entryPrice: 100, quantity: 2, exitPrice: 110, want: 220},
		{name: "buy loss still returns exit value", side: Buy, entryPrice: 100, quantity: 2, exitPrice: 90, want: 180},
		{name: "sell returns net pnl", side: Sell, entryPrice: 100, quantity: 2, exitPrice: 90, want: 20},
		{name: "sell loss debits balance", side: Sell, entryPrice: 100, quantity: 2, exitPrice: 110, want: -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := &Trade{Side: tt.side, EntryPrice: tt.entryPrice, Quantity: tt.quantity}
			if got := trade.CloseCredit(tt.exitPrice); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CloseCredit(%v) = %v, want %v", tt.exitPrice, got, tt.want)
			}
		})
	}
}

func TestTradeNotional(t *testing.T) {
	trade := &Trade{EntryPrice: 42000, Quantity: 0.25}
	if got := trade.Notional(); got != 10500 {
		t.Errorf("Notional() = %v, want 10500", got)
	}
}

func TestTradeStatusIsTerminal(t *testing.T) {
	if StatusOpen.IsTerminal() {
		t.Error("OPEN must not be terminal")
	}
	if !StatusClosed.IsTerminal() {
		t.Error("CLOSED must be terminal")
	}
	if !StatusCancelled.IsTerminal() {
		t.Error("CANCELLED must be terminal")
	}
}

func TestOrderSideIsValid(t *testing.T) {
	if !Buy.IsValid() || !Sell.IsValid() {
		t.Error("BUY and SELL must be valid sides")
	}
	if OrderSide("HOLD").IsValid() {
		t.Error("HOLD must not be a valid side")
	}
	if OrderSide("").IsValid() {
		t.Error("empty side must not be valid")
	}
}
