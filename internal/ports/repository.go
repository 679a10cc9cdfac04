package ports

import (
	"context"

	"cryptoPaperTrader/internal/domain"
)

// SessionRepository defines the interface for storing and retrieving
// paper trading sessions.
type SessionRepository interface {
	// CreateSession saves a new session and returns its assigned ID.
	CreateSession(ctx context.Context, s *domain.Session) (int64, error)
	// UpdateSession modifies an existing session (balance, P&L, flags).
	UpdateSession(ctx context.Context, s *domain.Session) error
	// FindSessionByID retrieves a session by its unique ID.
	// Returns nil, nil if not found.
	FindSessionByID(ctx context.Context, id int64) (*domain.Session, error)
	// FindAllSessions retrieves sessions ordered by creation time
	// descending, optionally restricted to active ones.
	FindAllSessions(ctx context.Context, activeOnly bool) ([]*domain.Session, error)
	// DeleteSession removes a session and its trades.
	DeleteSession(ctx context.Context, id int64) error
}

// TradeRepository defines the interface for storing and retrieving
// paper trades. Trades are append-only: closing and cancelling are
// status transitions, never deletions.
type TradeRepository interface {
	// CreateTrade saves a new OPEN trade and returns its assigned ID.
	CreateTrade(ctx context.Context, t *domain.Trade) (int64, error)
	// CloseTrade persists the exit fields of t and flips the status
	// from OPEN to t.Status (CLOSED or CANCELLED). Returns false with
	// no error if the trade was not OPEN anymore, so a concurrent
	// transition can be detected instead of overwritten.
	CloseTrade(ctx context.Context, t *domain.Trade) (bool, error)
	// UpdateUnrealized writes the mark-to-market fields of t, guarded
	// on the trade still being OPEN. Returns false with no error when
	// the trade has left the OPEN state in the meantime.
	UpdateUnrealized(ctx context.Context, t *domain.Trade) (bool, error)
	// FindTradeByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindTradesBySession retrieves all trades of a session ordered by
	// entry time ascending (ties broken by ID ascending).
	FindTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error)
	// FindOpenTradesBySession retrieves the OPEN trades of a session.
	FindOpenTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error)
}
