package risk

import (
	"errors"
	"math"
	"testing"

	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"
)

func testSession() *domain.Session {
	return &domain.Session{
		Name:            "risk-test",
		TradingPairs:    []string{"BTCUSDT", "ETHUSDT"},
		RiskPercentage:  2,
		InitialBalance:  10000,
		CurrentBalance:  10000,
		MaxPositionSize: 1000,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		price    float64
		quantity float64
		side     domain.OrderSide
		balance  float64
		wantErr  error
	}{
		{
			name:   "valid buy",
			symbol: "BTCUSDT", price: 100, quantity: 5, side: domain.Buy,
			balance: 10000, wantErr: nil,
		},
		{
			name:   "valid sell",
			symbol: "ETHUSDT", price: 100, quantity: 5, side: domain.Sell,
			balance: 10000, wantErr: nil,
		},
		{
			name:   "zero price",
			symbol: "BTCUSDT", price: 0, quantity: 5, side: domain.Buy,
			balance: 10000, wantErr: ports.ErrValidation,
		},
		{
			name:   "negative quantity",
			symbol: "BTCUSDT", price: 100, quantity: -1, side: domain.Buy,
			balance: 10000, wantErr: ports.ErrValidation,
		},
		{
			name:   "unknown side",
			symbol: "BTCUSDT", price: 100, quantity: 5, side: domain.OrderSide("HOLD"),
			balance: 10000, wantErr: ports.ErrValidation,
		},
		{
			name:   "symbol not in session pairs",
			symbol: "DOGEUSDT", price: 100, quantity: 5, side: domain.Buy,
			balance: 10000, wantErr: ports.ErrValidation,
		},
		{
			name:   "notional above max position size",
			symbol: "BTCUSDT", price: 100, quantity: 11, side: domain.Buy,
			balance: 10000, wantErr: ports.ErrLimitExceeded,
		},
		{
			name:   "buy exceeds balance",
			symbol: "BTCUSDT", price: 100, quantity: 9, side: domain.Buy,
			balance: 500, wantErr: ports.ErrInsufficientBalance,
		},
		{
			name:   "sell needs no balance",
			symbol: "BTCUSDT", price: 100, quantity: 9, side: domain.Sell,
			balance: 0, wantErr: nil,
		},
		{
			name:   "notional exactly at max position size",
			symbol: "BTCUSDT", price: 100, quantity: 10, side: domain.Buy,
			balance: 10000, wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession()
			s.CurrentBalance = tt.balance
			err := Validate(s, tt.symbol, tt.price, tt.quantity, tt.side)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		riskPct float64
		maxPos  float64
		price   float64
		want    float64
	}{
		{name: "risk budget below cap", balance: 10000, riskPct: 2, maxPos: 1000, price: 100, want: 2},
		{name: "capped by max position", balance: 100000, riskPct: 10, maxPos: 1000, price: 100, want: 10},
		{name: "zero price yields zero", balance: 10000, riskPct: 2, maxPos: 1000, price: 0, want: 0},
		{name: "negative price yields zero", balance: 10000, riskPct: 2, maxPos: 1000, price: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession()
			s.CurrentBalance = tt.balance
			s.RiskPercentage = tt.riskPct
			s.MaxPositionSize = tt.maxPos
			if got := PositionSize(s, tt.price); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PositionSize() = %v, want %v", got, tt.want)
			}
		})
	}
}
