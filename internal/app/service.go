package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cryptoPaperTrader/internal/analytics"
	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"
	"cryptoPaperTrader/internal/risk"
)

// PaperTradingService orchestrates sessions, simulated trades and the
// cash ledger. All balance-mutating operations of one session are
// serialized through a per-session mutex; cross-session operations run
// concurrently.
type PaperTradingService struct {
	sessionRepo ports.SessionRepository
	tradeRepo   ports.TradeRepository
	oracle      ports.PriceOracle
	metrics     *analytics.Engine
	logger      ports.Logger

	refreshInterval time.Duration

	mu       sync.Mutex // guards sessionLocks
	sessions map[int64]*sync.Mutex
}

// Config holds the dependencies and tuning for the service.
type Config struct {
	SessionRepo ports.SessionRepository
	TradeRepo   ports.TradeRepository
	Oracle      ports.PriceOracle
	Metrics     *analytics.Engine
	Logger      ports.Logger

	// RefreshInterval drives the background mark-to-market loop in
	// Start. Zero disables the loop.
	RefreshInterval time.Duration
}

// New creates a new PaperTradingService, validating dependencies.
func New(cfg Config) (*PaperTradingService, error) {
	if cfg.SessionRepo == nil {
		return nil, fmt.Errorf("%w: session repository is required", ports.ErrConfiguration)
	}
	if cfg.TradeRepo == nil {
		return nil, fmt.Errorf("%w: trade repository is required", ports.ErrConfiguration)
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("%w: price oracle is required", ports.ErrConfiguration)
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("%w: metrics engine is required", ports.ErrConfiguration)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}

	return &PaperTradingService{
		sessionRepo:     cfg.SessionRepo,
		tradeRepo:       cfg.TradeRepo,
		oracle:          cfg.Oracle,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		refreshInterval: cfg.RefreshInterval,
		sessions:        make(map[int64]*sync.Mutex),
	}, nil
}

// sessionLock returns the mutex serializing operations on one session.
func (s *PaperTradingService) sessionLock(sessionID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[sessionID] = lock
	}
	return lock
}

// --- Session lifecycle ---

// CreateSession validates and persists a new session. The current
// balance starts equal to the initial balance and the session is
// created active.
func (s *PaperTradingService) CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session must not be nil", ports.ErrValidation)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrValidation, err)
	}

	now := time.Now()
	session.CurrentBalance = session.InitialBalance
	session.TotalPNL = 0
	session.IsActive = true
	session.CreatedAt = now
	session.UpdatedAt = now

	id, err := s.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.ID = id

	s.logger.Info(ctx, "Paper trading session created", map[string]interface{}{
		"sessionID":      id,
		"name":           session.Name,
		"initialBalance": session.InitialBalance,
		"pairs":          session.TradingPairs,
	})
	return session, nil
}

// GetSession retrieves a session by ID. Returns ports.ErrNotFound if
// no session exists with the given ID.
func (s *PaperTradingService) GetSession(ctx context.Context, sessionID int64) (*domain.Session, error) {
	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ports.ErrNotFound, sessionID)
	}
	return session, nil
}

// ListSessions returns sessions newest first, optionally restricted to
// active ones.
func (s *PaperTradingService) ListSessions(ctx context.Context, activeOnly bool) ([]*domain.Session, error) {
	sessions, err := s.sessionRepo.FindAllSessions(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its entire trade history.
// Sessions with trades still OPEN cannot be deleted; close or cancel
// them first.
func (s *PaperTradingService) DeleteSession(ctx context.Context, sessionID int64) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}
	if session == nil {
		return fmt.Errorf("%w: session %d", ports.ErrNotFound, sessionID)
	}

	open, err := s.tradeRepo.FindOpenTradesBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to check open trades for session %d: %w", sessionID, err)
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: session %d still has %d open trade(s)", ports.ErrInvalidState, sessionID, len(open))
	}

	if err := s.sessionRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", sessionID, err)
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info(ctx, "Paper trading session deleted", map[string]interface{}{"sessionID": sessionID})
	return nil
}

// --- Trade lifecycle ---

// OpenTradeParams describes a simulated trade to open. EntryPrice of 0
// asks the engine to fetch the current market price from the oracle.
// Quantity of 0 asks for risk-based position sizing from the session's
// risk percentage and max position size.
type OpenTradeParams struct {
	SessionID  int64
	Symbol     string
	Side       domain.OrderSide
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
}

// OpenTrade admits and records a new simulated trade. On success the
// trade is persisted OPEN and, for a BUY, the entry notional is debited
// from the session balance. A rejected trade leaves no record and no
// balance mutation.
func (s *PaperTradingService) OpenTrade(ctx context.Context, p OpenTradeParams) (*domain.Trade, error) {
	lock := s.sessionLock(p.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessionRepo.FindSessionByID(ctx, p.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", p.SessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ports.ErrNotFound, p.SessionID)
	}
	if !session.IsActive {
		return nil, fmt.Errorf("%w: session %d is inactive", ports.ErrInvalidState, p.SessionID)
	}

	entryPrice := p.EntryPrice
	if entryPrice == 0 {
		entryPrice, err = s.oracle.GetPrice(ctx, p.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", p.Symbol, err)
		}
	}

	quantity := p.Quantity
	if quantity == 0 {
		quantity = risk.PositionSize(session, entryPrice)
	}

	if err := risk.Validate(session, p.Symbol, entryPrice, quantity, p.Side); err != nil {
		return nil, err
	}

	trade := &domain.Trade{
		SessionID:  p.SessionID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Status:     domain.StatusOpen,
		EntryTime:  time.Now(),
	}

	id, err := s.tradeRepo.CreateTrade(ctx, trade)
	if err != nil {
		return nil, fmt.Errorf("failed to record trade: %w", err)
	}
	trade.ID = id

	// A BUY reserves the entry notional; a SELL reserves nothing and
	// settles net at close.
	if trade.Side == domain.Buy {
		session.CurrentBalance -= trade.Notional()
		session.UpdatedAt = time.Now()
		if err := s.sessionRepo.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to debit session %d for trade %d: %w", session.ID, id, err)
		}
	}

	s.logger.Info(ctx, "Paper trade opened", map[string]interface{}{
		"tradeID":    id,
		"sessionID":  p.SessionID,
		"symbol":     p.Symbol,
		"side":       trade.Side,
		"entryPrice": entryPrice,
		"quantity":   quantity,
	})
	return trade, nil
}

// CloseTrade closes an OPEN trade, realizing its P&L at the given exit
// price (or the oracle price if exitPrice is 0) and settling the
// session balance. Closing a trade that is already CLOSED or CANCELLED
// returns ports.ErrInvalidState; close fires at most once per trade
// even under concurrent calls.
func (s *PaperTradingService) CloseTrade(ctx context.Context, tradeID int64, exitPrice float64) (*domain.Trade, error) {
	trade, err := s.tradeRepo.FindTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
	}

	lock := s.sessionLock(trade.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so a concurrent close is seen.
	trade, err = s.tradeRepo.FindTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("%w: trade %d is %s", ports.ErrInvalidState, tradeID, trade.Status)
	}

	if exitPrice == 0 {
		exitPrice, err = s.oracle.GetPrice(ctx, trade.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", trade.Symbol, err)
		}
	}
	if exitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit price %.8f must be positive", ports.ErrValidation, exitPrice)
	}

	pnl, roiPct := trade.PNLAt(exitPrice)
	trade.ExitPrice = exitPrice
	trade.ExitTime = time.Now()
	trade.PNL = pnl
	trade.ROIPct = roiPct
	trade.Status = domain.StatusClosed

	closed, err := s.tradeRepo.CloseTrade(ctx, trade)
	if err != nil {
		return nil, fmt.Errorf("failed to close trade %d: %w", tradeID, err)
	}
	if !closed {
		return nil, fmt.Errorf("%w: trade %d was closed concurrently", ports.ErrInvalidState, tradeID)
	}

	session, err := s.sessionRepo.FindSessionByID(ctx, trade.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", trade.SessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ports.ErrNotFound, trade.SessionID)
	}

	session.CurrentBalance += trade.CloseCredit(exitPrice)
	session.TotalPNL += pnl
	session.UpdatedAt = time.Now()
	if err := s.sessionRepo.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to settle session %d for trade %d: %w", session.ID, tradeID, err)
	}

	s.logger.Info(ctx, "Paper trade closed", map[string]interface{}{
		"tradeID":   tradeID,
		"sessionID": trade.SessionID,
		"exitPrice": exitPrice,
		"pnl":       pnl,
		"roiPct":    roiPct,
	})
	return trade, nil
}

// CancelTrade administratively voids an OPEN trade without realizing
// P&L. A BUY gets its reserved notional refunded; a SELL reserved
// nothing, so the balance is untouched. Cancelled trades stay in the
// ledger but never enter performance metrics.
func (s *PaperTradingService) CancelTrade(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	trade, err := s.tradeRepo.FindTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
	}

	lock := s.sessionLock(trade.SessionID)
	lock.Lock()
	defer lock.Unlock()

	trade, err = s.tradeRepo.FindTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("%w: trade %d is %s", ports.ErrInvalidState, tradeID, trade.Status)
	}

	trade.ExitTime = time.Now()
	trade.Status = domain.StatusCancelled

	cancelled, err := s.tradeRepo.CloseTrade(ctx, trade)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel trade %d: %w", tradeID, err)
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: trade %d was closed concurrently", ports.ErrInvalidState, tradeID)
	}

	if trade.Side == domain.Buy {
		session, err := s.sessionRepo.FindSessionByID(ctx, trade.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %d: %w", trade.SessionID, err)
		}
		if session == nil {
			return nil, fmt.Errorf("%w: session %d", ports.ErrNotFound, trade.SessionID)
		}
		session.CurrentBalance += trade.Notional()
		session.UpdatedAt = time.Now()
		if err := s.sessionRepo.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to refund session %d for trade %d: %w", session.ID, tradeID, err)
		}
	}

	s.logger.Info(ctx, "Paper trade cancelled", map[string]interface{}{
		"tradeID":   tradeID,
		"sessionID": trade.SessionID,
	})
	return trade, nil
}

// SessionTrades returns all trades of a session ordered by entry time.
func (s *PaperTradingService) SessionTrades(ctx context.Context, sessionID int64) ([]*domain.Trade, error) {
	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ports.ErrNotFound, sessionID)
	}

	trades, err := s.tradeRepo.FindTradesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for session %d: %w", sessionID, err)
	}
	return trades, nil
}

// --- Mark-to-market ---

// RefreshUnrealized marks every OPEN trade of a session to the current
// market. One price is fetched per distinct symbol; a symbol whose
// price lookup fails is skipped (its trades keep their previous mark)
// and the refresh continues with the remaining symbols.
func (s *PaperTradingService) RefreshUnrealized(ctx context.Context, sessionID int64) error {
	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}
	if session == nil {
		return fmt.Errorf("%w: session %d", ports.ErrNotFound, sessionID)
	}

	open, err := s.tradeRepo.FindOpenTradesBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list open trades for session %d: %w", sessionID, err)
	}
	if len(open) == 0 {
		return nil
	}

	prices := make(map[string]float64)
	failed := make(map[string]bool)
	now := time.Now()

	for _, trade := range open {
		if failed[trade.Symbol] {
			continue
		}
		price, ok := prices[trade.Symbol]
		if !ok {
			price, err = s.oracle.GetPrice(ctx, trade.Symbol)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
					return fmt.Errorf("%w: refresh aborted: %v", ports.ErrContextCanceled, err)
				}
				failed[trade.Symbol] = true
				s.logger.Warn(ctx, "Skipping symbol during mark-to-market", map[string]interface{}{
					"sessionID": sessionID,
					"symbol":    trade.Symbol,
					"error":     err.Error(),
				})
				continue
			}
			prices[trade.Symbol] = price
		}

		trade.UnrealizedPNL, trade.UnrealizedROIPct = trade.PNLAt(price)
		trade.MarkedAt = now

		// false means the trade closed while we were marking; its
		// realized figures win and the stale mark is dropped.
		updated, err := s.tradeRepo.UpdateUnrealized(ctx, trade)
		if err != nil {
			return fmt.Errorf("failed to mark trade %d: %w", trade.ID, err)
		}
		if !updated {
			s.logger.Debug(ctx, "Trade closed during mark-to-market, mark skipped", map[string]interface{}{
				"tradeID": trade.ID,
			})
		}
	}
	return nil
}

// --- Performance ---

// Performance refreshes the session's open-trade marks and computes
// performance metrics over its closed trades. Zero start or end times
// leave that side of the window unbounded. A refresh failure degrades
// to stale marks rather than failing the report; realized metrics are
// unaffected either way.
func (s *PaperTradingService) Performance(ctx context.Context, sessionID int64, start, end time.Time) (*analytics.PerformanceMetrics, error) {
	if err := s.RefreshUnrealized(ctx, sessionID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn(ctx, "Mark-to-market refresh failed, using stale marks", map[string]interface{}{
			"sessionID": sessionID,
			"error":     err.Error(),
		})
	}

	trades, err := s.tradeRepo.FindTradesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for session %d: %w", sessionID, err)
	}

	return s.metrics.ComputeMetrics(trades, start, end), nil
}

// --- Daemon loop ---

// Start runs the background mark-to-market loop until the context is
// cancelled or a SIGINT/SIGTERM arrives. Every tick it refreshes the
// unrealized P&L of all active sessions.
func (s *PaperTradingService) Start(ctx context.Context) error {
	if s.refreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive to run the daemon loop", ports.ErrConfiguration)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info(ctx, "Paper trading engine started", map[string]interface{}{
		"refreshInterval": s.refreshInterval.String(),
	})

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Paper trading engine stopping")
			return nil
		case <-ticker.C:
			s.refreshActiveSessions(ctx)
		}
	}
}

func (s *PaperTradingService) refreshActiveSessions(ctx context.Context) {
	sessions, err := s.sessionRepo.FindAllSessions(ctx, true)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to list active sessions for refresh")
		return
	}

	for _, session := range sessions {
		if ctx.Err() != nil {
			return
		}
		if err := s.RefreshUnrealized(ctx, session.ID); err != nil {
			s.logger.Error(ctx, err, "Session mark-to-market refresh failed", map[string]interface{}{
				"sessionID": session.ID,
			})
		}
	}
}
