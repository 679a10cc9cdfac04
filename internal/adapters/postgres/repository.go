package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements ports.SessionRepository and
// ports.TradeRepository on Postgres. Same contract as the SQLite
// adapter; rows are guarded by the same status-conditional updates.
type Repository struct {
	pool   *pgxpool.Pool
	logger ports.Logger
}

// NewRepository creates a Postgres repository and ensures the schema.
func NewRepository(ctx context.Context, pool *pgxpool.Pool, logger ports.Logger) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required for Postgres repository")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for Postgres repository")
	}
	r := &Repository{pool: pool, logger: logger}
	if err := r.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	logger.Info(ctx, "Postgres store ready")
	return r, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		strategy_type TEXT NOT NULL,
		strategy_params JSONB NOT NULL DEFAULT '{}',
		trading_pairs JSONB NOT NULL,
		risk_percentage DOUBLE PRECISION NOT NULL,
		initial_balance DOUBLE PRECISION NOT NULL,
		current_balance DOUBLE PRECISION NOT NULL,
		max_position_size DOUBLE PRECISION NOT NULL,
		total_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS paper_trades (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		exit_price DOUBLE PRECISION,
		quantity DOUBLE PRECISION NOT NULL,
		stop_loss DOUBLE PRECISION,
		take_profit DOUBLE PRECISION,
		status TEXT NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_time TIMESTAMPTZ,
		pnl DOUBLE PRECISION,
		roi_pct DOUBLE PRECISION,
		unrealized_pnl DOUBLE PRECISION,
		unrealized_roi_pct DOUBLE PRECISION,
		marked_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_paper_trades_session_status ON paper_trades (session_id, status);
	CREATE INDEX IF NOT EXISTS idx_paper_trades_session_entry_time ON paper_trades (session_id, entry_time);
	`
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// --- SessionRepository implementation ---

func (r *Repository) CreateSession(ctx context.Context, s *domain.Session) (int64, error) {
	params := s.Strategy.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to marshal strategy params: %v", ports.ErrPersistence, err)
	}
	rawPairs, err := json.Marshal(s.TradingPairs)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to marshal trading pairs: %v", ports.ErrPersistence, err)
	}

	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO sessions (name, strategy_type, strategy_params, trading_pairs, risk_percentage,
		                      initial_balance, current_balance, max_position_size, total_pnl, is_active,
		                      created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		s.Name, s.Strategy.Type, rawParams, rawPairs, s.RiskPercentage,
		s.InitialBalance, s.CurrentBalance, s.MaxPositionSize, s.TotalPNL, s.IsActive,
		s.CreatedAt, s.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert session %q: %v", ports.ErrPersistence, s.Name, err)
	}
	s.ID = id
	return id, nil
}

func (r *Repository) UpdateSession(ctx context.Context, s *domain.Session) error {
	rawParams, err := json.Marshal(s.Strategy.Params)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal strategy params: %v", ports.ErrPersistence, err)
	}
	rawPairs, err := json.Marshal(s.TradingPairs)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal trading pairs: %v", ports.ErrPersistence, err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET
			name=$2, strategy_type=$3, strategy_params=$4, trading_pairs=$5, risk_percentage=$6,
			current_balance=$7, max_position_size=$8, total_pnl=$9, is_active=$10, updated_at=$11
		WHERE id=$1`,
		s.ID, s.Name, s.Strategy.Type, rawParams, rawPairs, s.RiskPercentage,
		s.CurrentBalance, s.MaxPositionSize, s.TotalPNL, s.IsActive, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to update session ID %d: %v", ports.ErrPersistence, s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session ID %d not found for update: %w", s.ID, ports.ErrNotFound)
	}
	return nil
}

func (r *Repository) FindSessionByID(ctx context.Context, id int64) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, sessionSelect+` WHERE id=$1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to query session by ID %d: %v", ports.ErrPersistence, id, err)
	}
	return s, nil
}

func (r *Repository) FindAllSessions(ctx context.Context, activeOnly bool) ([]*domain.Session, error) {
	query := sessionSelect
	args := []interface{}{}
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sessions: %v", ports.ErrPersistence, err)
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan session: %v", ports.ErrPersistence, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating session rows: %v", ports.ErrPersistence, err)
	}
	return sessions, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete session ID %d: %v", ports.ErrPersistence, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	return nil
}

// --- TradeRepository implementation ---

func (r *Repository) CreateTrade(ctx context.Context, t *domain.Trade) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO paper_trades (session_id, symbol, side, entry_price, quantity, stop_loss,
		                          take_profit, status, entry_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		t.SessionID, t.Symbol, t.Side, t.EntryPrice, t.Quantity, nullableFloat(t.StopLoss),
		nullableFloat(t.TakeProfit), t.Status, t.EntryTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert trade for session %d: %v", ports.ErrPersistence, t.SessionID, err)
	}
	t.ID = id
	return id, nil
}

func (r *Repository) CloseTrade(ctx context.Context, t *domain.Trade) (bool, error) {
	var exitTime sql.NullTime
	if !t.ExitTime.IsZero() {
		exitTime = sql.NullTime{Time: t.ExitTime, Valid: true}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE paper_trades
		SET status=$2, exit_price=$3, exit_time=$4, pnl=$5, roi_pct=$6
		WHERE id=$1 AND status=$7`,
		t.ID, t.Status, nullableFloat(t.ExitPrice), exitTime, t.PNL, t.ROIPct,
		domain.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("%w: failed to close trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) UpdateUnrealized(ctx context.Context, t *domain.Trade) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE paper_trades
		SET unrealized_pnl=$2, unrealized_roi_pct=$3, marked_at=$4
		WHERE id=$1 AND status=$5`,
		t.ID, t.UnrealizedPNL, t.UnrealizedROIPct, t.MarkedAt,
		domain.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("%w: failed to update unrealized P&L for trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.pool.QueryRow(ctx, tradeSelect+` WHERE id=$1`, id)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to query trade by ID %d: %v", ports.ErrPersistence, id, err)
	}
	return t, nil
}

func (r *Repository) FindTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error) {
	return r.queryTrades(ctx, tradeSelect+` WHERE session_id=$1 ORDER BY entry_time ASC, id ASC`, sessionID)
}

func (r *Repository) FindOpenTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error) {
	return r.queryTrades(ctx, tradeSelect+` WHERE session_id=$1 AND status='OPEN' ORDER BY entry_time ASC, id ASC`, sessionID)
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trades: %v", ports.ErrPersistence, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan trade: %v", ports.ErrPersistence, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating trade rows: %v", ports.ErrPersistence, err)
	}
	return trades, nil
}

// --- Helpers ---

const sessionSelect = `
	SELECT id, name, strategy_type, strategy_params, trading_pairs, risk_percentage,
	       initial_balance, current_balance, max_position_size, total_pnl, is_active,
	       created_at, updated_at
	FROM sessions`

const tradeSelect = `
	SELECT id, session_id, symbol, side, entry_price, COALESCE(exit_price, 0), quantity,
	       COALESCE(stop_loss, 0), COALESCE(take_profit, 0), status, entry_time, exit_time,
	       COALESCE(pnl, 0), COALESCE(roi_pct, 0), COALESCE(unrealized_pnl, 0),
	       COALESCE(unrealized_roi_pct, 0), marked_at
	FROM paper_trades`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(sc scanner) (*domain.Session, error) {
	s := &domain.Session{}
	var rawParams, rawPairs []byte
	err := sc.Scan(
		&s.ID, &s.Name, &s.Strategy.Type, &rawParams, &rawPairs, &s.RiskPercentage,
		&s.InitialBalance, &s.CurrentBalance, &s.MaxPositionSize, &s.TotalPNL, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawParams, &s.Strategy.Params); err != nil {
		return nil, fmt.Errorf("corrupt strategy params for session %d: %w", s.ID, err)
	}
	if err := json.Unmarshal(rawPairs, &s.TradingPairs); err != nil {
		return nil, fmt.Errorf("corrupt trading pairs for session %d: %w", s.ID, err)
	}
	return s, nil
}

func scanTrade(sc scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var exitTime, markedAt sql.NullTime
	var status, side string
	err := sc.Scan(
		&t.ID, &t.SessionID, &t.Symbol, &side, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
		&t.StopLoss, &t.TakeProfit, &status, &t.EntryTime, &exitTime,
		&t.PNL, &t.ROIPct, &t.UnrealizedPNL, &t.UnrealizedROIPct, &markedAt)
	if err != nil {
		return nil, err
	}
	if exitTime.Valid {
		t.ExitTime = exitTime.Time
	}
	if markedAt.Valid {
		t.MarkedAt = markedAt.Time
	}
	t.Status = domain.TradeStatus(status)
	t.Side = domain.OrderSide(side)
	return t, nil
}

func nullableFloat(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
