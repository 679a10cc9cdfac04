package domain

import "testing"

func validSession() *Session {
	return &Session{
		Name:            "test-session",
		Strategy:        Strategy{Type: "MACD_RSI"},
		TradingPairs:    []string{"BTCUSDT", "ETHUSDT"},
		RiskPercentage:  2,
		InitialBalance:  10000,
		MaxPositionSize: 1000,
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Session) {}, wantErr: false},
		{name: "empty name", mutate: func(s *Session) { s.Name = "" }, wantErr: true},
		{name: "no pairs", mutate: func(s *Session) { s.TradingPairs = nil }, wantErr: true},
		{name: "empty pair symbol", mutate: func(s *Session) { s.TradingPairs = []string{"BTCUSDT", ""} }, wantErr: true},
		{name: "zero risk", mutate: func(s *Session) { s.RiskPercentage = 0 }, wantErr: true},
		{name: "negative risk", mutate: func(s *Session) { s.RiskPercentage = -1 }, wantErr: true},
		{name: "risk over 100", mutate: func(s *Session) { s.RiskPercentage = 100.5 }, wantErr: true},
		{name: "risk exactly 100", mutate: func(s *Session) { s.RiskPercentage = 100 }, wantErr: false},
		{name: "zero balance", mutate: func(s *Session) { s.InitialBalance = 0 }, wantErr: true},
		{name: "negative balance", mutate: func(s *Session) { s.InitialBalance = -100 }, wantErr: true},
		{name: "zero max position", mutate: func(s *Session) { s.MaxPositionSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionAllowsPair(t *testing.T) {
	s := validSession()
	if !s.AllowsPair("BTCUSDT") {
		t.Error("AllowsPair(BTCUSDT) = false, want true")
	}
	if s.AllowsPair("DOGEUSDT") {
		t.Error("AllowsPair(DOGEUSDT) = true, want false")
	}
	if s.AllowsPair("btcusdt") {
		t.Error("AllowsPair is case-sensitive, lowercase must not match")
	}
}
