package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoPaperTrader/internal/adapters/logger"
	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"
)

// setupTestDB creates a repository backed by a fresh database file in a
// temp directory.
func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_paper_trading.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: logger.NewStdLogger(logger.LevelError),
	})
	require.NoError(t, err, "Failed to create test repository")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTestSession(name string) *domain.Session {
	now := time.Now().Truncate(time.Second)
	return &domain.Session{
		Name: name,
		Strategy: domain.Strategy{
			Type:   "MACD_RSI",
			Params: map[string]interface{}{"fast": float64(12), "slow": float64(26)},
		},
		TradingPairs:    []string{"BTCUSDT", "ETHUSDT"},
		RiskPercentage:  2,
		InitialBalance:  10000,
		CurrentBalance:  10000,
		MaxPositionSize: 1000,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newTestTrade(sessionID int64, side domain.OrderSide) *domain.Trade {
	return &domain.Trade{
		SessionID:  sessionID,
		Symbol:     "BTCUSDT",
		Side:       side,
		EntryPrice: 100,
		Quantity:   5,
		Status:     domain.StatusOpen,
		EntryTime:  time.Now().Truncate(time.Second),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	session := newTestSession("round-trip")
	id, err := repo.CreateSession(ctx, session)
	require.NoError(t, err)
	assert.True(t, id > 0, "Expected a positive session ID")

	found, err := repo.FindSessionByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, session.Name, found.Name)
	assert.Equal(t, session.Strategy.Type, found.Strategy.Type)
	assert.Equal(t, session.Strategy.Params, found.Strategy.Params)
	assert.Equal(t, session.TradingPairs, found.TradingPairs)
	assert.Equal(t, session.RiskPercentage, found.RiskPercentage)
	assert.Equal(t, session.InitialBalance, found.InitialBalance)
	assert.Equal(t, session.CurrentBalance, found.CurrentBalance)
	assert.Equal(t, session.MaxPositionSize, found.MaxPositionSize)
	assert.True(t, found.IsActive)
}

func TestFindSessionByIDNotFound(t *testing.T) {
	repo := setupTestDB(t)

	found, err := repo.FindSessionByID(context.Background(), 9999)
	require.NoError(t, err, "Not found must not be an error")
	assert.Nil(t, found)
}

func TestUpdateSession(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	session := newTestSession("update-me")
	id, err := repo.CreateSession(ctx, session)
	require.NoError(t, err)

	session.CurrentBalance = 9500
	session.TotalPNL = -500
	session.IsActive = false
	session.UpdatedAt = time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdateSession(ctx, session))

	found, err := repo.FindSessionByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 9500.0, found.CurrentBalance)
	assert.Equal(t, -500.0, found.TotalPNL)
	assert.False(t, found.IsActive)
}

func TestUpdateSessionNotFound(t *testing.T) {
	repo := setupTestDB(t)

	session := newTestSession("ghost")
	session.ID = 4242
	err := repo.UpdateSession(context.Background(), session)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrNotFound), "Expected ErrNotFound, got: %v", err)
}

func TestFindAllSessionsActiveFilter(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	active := newTestSession("active-one")
	_, err := repo.CreateSession(ctx, active)
	require.NoError(t, err)

	inactive := newTestSession("inactive-one")
	inactive.IsActive = false
	_, err = repo.CreateSession(ctx, inactive)
	require.NoError(t, err)

	all, err := repo.FindAllSessions(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeOnly, err := repo.FindAllSessions(ctx, true)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, "active-one", activeOnly[0].Name)
}

func TestDeleteSessionCascadesTrades(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	session := newTestSession("cascade")
	sessionID, err := repo.CreateSession(ctx, session)
	require.NoError(t, err)

	tradeID, err := repo.CreateTrade(ctx, newTestTrade(sessionID, domain.Buy))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSession(ctx, sessionID))

	foundSession, err := repo.FindSessionByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, foundSession)

	foundTrade, err := repo.FindTradeByID(ctx, tradeID)
	require.NoError(t, err)
	assert.Nil(t, foundTrade, "Trades must be deleted with their session")
}

func TestDeleteSessionNotFound(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.DeleteSession(context.Background(), 8888)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrNotFound), "Expected ErrNotFound, got: %v", err)
}

func TestTradeRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sessionID, err := repo.CreateSession(ctx, newTestSession("trades"))
	require.NoError(t, err)

	trade := newTestTrade(sessionID, domain.Buy)
	trade.StopLoss = 95
	trade.TakeProfit = 120
	id, err := repo.CreateTrade(ctx, trade)
	require.NoError(t, err)
	assert.True(t, id > 0)

	found, err := repo.FindTradeByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, sessionID, found.SessionID)
	assert.Equal(t, domain.Buy, found.Side)
	assert.Equal(t, domain.StatusOpen, found.Status)
	assert.Equal(t, 100.0, found.EntryPrice)
	assert.Equal(t, 95.0, found.StopLoss)
	assert.Equal(t, 120.0, found.TakeProfit)
	assert.True(t, found.ExitTime.IsZero(), "Open trade must have zero exit time")
	assert.True(t, found.MarkedAt.IsZero(), "Unmarked trade must have zero marked time")
}

func TestCloseTradeSingleFire(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sessionID, err := repo.CreateSession(ctx, newTestSession("close"))
	require.NoError(t, err)

	trade := newTestTrade(sessionID, domain.Buy)
	_, err = repo.CreateTrade(ctx, trade)
	require.NoError(t, err)

	trade.Status = domain.StatusClosed
	trade.ExitPrice = 110
	trade.ExitTime = time.Now().Truncate(time.Second)
	trade.PNL = 50
	trade.ROIPct = 10

	closed, err := repo.CloseTrade(ctx, trade)
	require.NoError(t, err)
	assert.True(t, closed, "First close must succeed")

	// Second attempt hits a trade that is no longer OPEN.
	closed, err = repo.CloseTrade(ctx, trade)
	require.NoError(t, err)
	assert.False(t, closed, "Second close must report false, not overwrite")

	found, err := repo.FindTradeByID(ctx, trade.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.StatusClosed, found.Status)
	assert.Equal(t, 110.0, found.ExitPrice)
	assert.Equal(t, 50.0, found.PNL)
	assert.Equal(t, 10.0, found.ROIPct)
	assert.False(t, found.ExitTime.IsZero())
}

func TestUpdateUnrealizedGuardedOnOpen(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sessionID, err := repo.CreateSession(ctx, newTestSession("mark"))
	require.NoError(t, err)

	trade := newTestTrade(sessionID, domain.Buy)
	_, err = repo.CreateTrade(ctx, trade)
	require.NoError(t, err)

	trade.UnrealizedPNL = 25
	trade.UnrealizedROIPct = 5
	trade.MarkedAt = time.Now().Truncate(time.Second)

	updated, err := repo.UpdateUnrealized(ctx, trade)
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.FindTradeByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, found.UnrealizedPNL)
	assert.Equal(t, 5.0, found.UnrealizedROIPct)
	assert.False(t, found.MarkedAt.IsZero())

	// Close the trade; a late mark must be rejected.
	trade.Status = domain.StatusClosed
	trade.ExitPrice = 105
	trade.ExitTime = time.Now()
	closed, err := repo.CloseTrade(ctx, trade)
	require.NoError(t, err)
	require.True(t, closed)

	trade.UnrealizedPNL = 9999
	updated, err = repo.UpdateUnrealized(ctx, trade)
	require.NoError(t, err)
	assert.False(t, updated, "Mark on a closed trade must report false")

	found, err = repo.FindTradeByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, found.UnrealizedPNL, "Stale mark must not overwrite the last pre-close mark")
}

func TestFindTradesBySessionOrdering(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sessionID, err := repo.CreateSession(ctx, newTestSession("ordering"))
	require.NoError(t, err)

	base := time.Now().Truncate(time.Second)
	for i, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		trade := newTestTrade(sessionID, domain.Buy)
		trade.EntryPrice = float64(100 + i)
		trade.EntryTime = base.Add(offset)
		_, err := repo.CreateTrade(ctx, trade)
		require.NoError(t, err)
	}

	trades, err := repo.FindTradesBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.True(t, !trades[0].EntryTime.After(trades[1].EntryTime))
	assert.True(t, !trades[1].EntryTime.After(trades[2].EntryTime))
}

func TestFindOpenTradesBySession(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sessionID, err := repo.CreateSession(ctx, newTestSession("open-filter"))
	require.NoError(t, err)

	open := newTestTrade(sessionID, domain.Buy)
	_, err = repo.CreateTrade(ctx, open)
	require.NoError(t, err)

	closedTrade := newTestTrade(sessionID, domain.Sell)
	_, err = repo.CreateTrade(ctx, closedTrade)
	require.NoError(t, err)
	closedTrade.Status = domain.StatusClosed
	closedTrade.ExitPrice = 90
	closedTrade.ExitTime = time.Now()
	ok, err := repo.CloseTrade(ctx, closedTrade)
	require.NoError(t, err)
	require.True(t, ok)

	openTrades, err := repo.FindOpenTradesBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, openTrades, 1)
	assert.Equal(t, open.ID, openTrades[0].ID)
}
