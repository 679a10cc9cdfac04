package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoPaperTrader/internal/domain"
	"cryptoPaperTrader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.SessionRepository and
// ports.TradeRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_trading.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the refresh path and
	// trade admission.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writes; SQLite handles the rest.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite store ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		strategy_type TEXT NOT NULL,
		strategy_params TEXT NOT NULL DEFAULT '{}',
		trading_pairs TEXT NOT NULL,
		risk_percentage REAL NOT NULL,
		initial_balance REAL NOT NULL,
		current_balance REAL NOT NULL,
		max_position_size REAL NOT NULL,
		total_pnl REAL NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS paper_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		stop_loss REAL DEFAULT NULL,
		take_profit REAL DEFAULT NULL,
		status TEXT NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		pnl REAL DEFAULT NULL,
		roi_pct REAL DEFAULT NULL,
		unrealized_pnl REAL DEFAULT NULL,
		unrealized_roi_pct REAL DEFAULT NULL,
		marked_at TIMESTAMP DEFAULT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_paper_trades_session_status ON paper_trades (session_id, status);
	CREATE INDEX IF NOT EXISTS idx_paper_trades_session_entry_time ON paper_trades (session_id, entry_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSession saves a new session and returns its assigned ID.
func (r *Repository) CreateSession(ctx context.Context, s *domain.Session) (int64, error) {
	params, pairs, err := marshalSessionJSON(s)
	if err != nil {
		return 0, err
	}

	const query = `
	INSERT INTO sessions (name, strategy_type, strategy_params, trading_pairs, risk_percentage,
	                      initial_balance, current_balance, max_position_size, total_pnl, is_active,
	                      created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, s.Strategy.Type, params, pairs, s.RiskPercentage,
		s.InitialBalance, s.CurrentBalance, s.MaxPositionSize, s.TotalPNL, s.IsActive,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert session %q: %v", ports.ErrPersistence, s.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get insert ID for session %q: %v", ports.ErrPersistence, s.Name, err)
	}
	s.ID = id
	r.logger.Debug(ctx, "Session created", map[string]interface{}{"sessionID": id, "name": s.Name})
	return id, nil
}

// UpdateSession modifies an existing session based on its ID.
func (r *Repository) UpdateSession(ctx context.Context, s *domain.Session) error {
	params, pairs, err := marshalSessionJSON(s)
	if err != nil {
		return err
	}

	const query = `
	UPDATE sessions
	SET name = ?, strategy_type = ?, strategy_params = ?, trading_pairs = ?, risk_percentage = ?,
	    current_balance = ?, max_position_size = ?, total_pnl = ?, is_active = ?, updated_at = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, s.Strategy.Type, params, pairs, s.RiskPercentage,
		s.CurrentBalance, s.MaxPositionSize, s.TotalPNL, s.IsActive, s.UpdatedAt,
		s.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to update session ID %d: %v", ports.ErrPersistence, s.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected for session ID %d: %v", ports.ErrPersistence, s.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session ID %d not found for update: %w", s.ID, ports.ErrNotFound)
	}
	return nil
}

// FindSessionByID retrieves a session by its unique ID.
func (r *Repository) FindSessionByID(ctx context.Context, id int64) (*domain.Session, error) {
	const query = sessionSelect + ` WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("%w: failed to query session by ID %d: %v", ports.ErrPersistence, id, err)
	}
	return s, nil
}

// FindAllSessions retrieves sessions ordered by creation time descending.
func (r *Repository) FindAllSessions(ctx context.Context, activeOnly bool) ([]*domain.Session, error) {
	query := sessionSelect
	args := []interface{}{}
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating session rows: %v", ports.ErrPersistence, err)
	}
	return sessions, nil
}

// DeleteSession removes a session; its trades go with it via cascade.
func (r *Repository) DeleteSession(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete session ID %d: %v", ports.ErrPersistence, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected for delete of session ID %d: %v", ports.ErrPersistence, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Session deleted", map[string]interface{}{"sessionID": id})
	return nil
}

// --- TradeRepository implementation ---

// CreateTrade saves a new OPEN trade record and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, t *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO paper_trades (session_id, symbol, side, entry_price, quantity, stop_loss,
	                          take_profit, status, entry_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		t.SessionID, t.Symbol, t.Side, t.EntryPrice, t.Quantity, nullableFloat(t.StopLoss),
		nullableFloat(t.TakeProfit), t.Status, t.EntryTime)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert trade for session %d: %v", ports.ErrPersistence, t.SessionID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get insert ID for trade (session %d): %v", ports.ErrPersistence, t.SessionID, err)
	}
	t.ID = id
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "sessionID": t.SessionID, "symbol": t.Symbol})
	return id, nil
}

// CloseTrade flips an OPEN trade into its terminal state, persisting
// exit fields. The status guard makes the transition single-fire: a
// concurrent close or cancel loses and gets ok=false.
func (r *Repository) CloseTrade(ctx context.Context, t *domain.Trade) (bool, error) {
	const query = `
	UPDATE paper_trades
	SET status = ?, exit_price = ?, exit_time = ?, pnl = ?, roi_pct = ?
	WHERE id = ? AND status = ?`

	var exitTime sql.NullTime
	if !t.ExitTime.IsZero() {
		exitTime = sql.NullTime{Time: t.ExitTime, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		t.Status, nullableFloat(t.ExitPrice), exitTime, t.PNL, t.ROIPct,
		t.ID, domain.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("%w: failed to close trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get rows affected for close of trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	return rowsAffected == 1, nil
}

// UpdateUnrealized writes mark-to-market fields, guarded on the trade
// still being OPEN so a refresh can never overwrite a concurrent close.
func (r *Repository) UpdateUnrealized(ctx context.Context, t *domain.Trade) (bool, error) {
	const query = `
	UPDATE paper_trades
	SET unrealized_pnl = ?, unrealized_roi_pct = ?, marked_at = ?
	WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		t.UnrealizedPNL, t.UnrealizedROIPct, t.MarkedAt,
		t.ID, domain.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("%w: failed to update unrealized P&L for trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get rows affected for trade ID %d: %v", ports.ErrPersistence, t.ID, err)
	}
	return rowsAffected == 1, nil
}

// FindTradeByID retrieves a trade by its unique ID.
func (r *Repository) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	const query = tradeSelect + ` WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("%w: failed to query trade by ID %d: %v", ports.ErrPersistence, id, err)
	}
	return t, nil
}

// FindTradesBySession retrieves all trades of a session, entry time
// ascending with ID as the tie-break.
func (r *Repository) FindTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error) {
	const query = tradeSelect + ` WHERE session_id = ? ORDER BY entry_time ASC, id ASC`
	return r.queryTrades(ctx, query, sessionID)
}

// FindOpenTradesBySession retrieves the OPEN trades of a session.
func (r *Repository) FindOpenTradesBySession(ctx context.Context, sessionID int64) ([]*domain.Trade, error) {
	const query = tradeSelect + ` WHERE session_id = ? AND status = 'OPEN' ORDER BY entry_time ASC, id ASC`
	return r.queryTrades(ctx, query, sessionID)
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err = rows.Err(); err != nil {
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

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func marshalSessionJSON(s *domain.Session) (params string, pairs string, err error) {
	p := s.Strategy.Params
	if p == nil {
		p = map[string]interface{}{}
	}
	rawParams, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to marshal strategy params: %v", ports.ErrPersistence, err)
	}
	rawPairs, err := json.Marshal(s.TradingPairs)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to marshal trading pairs: %v", ports.ErrPersistence, err)
	}
	return string(rawParams), string(rawPairs), nil
}

// scanSession scans a row into a domain.Session struct.
func scanSession(sc scanner) (*domain.Session, error) {
	s := &domain.Session{}
	var params, pairs string
	err := sc.Scan(
		&s.ID, &s.Name, &s.Strategy.Type, &params, &pairs, &s.RiskPercentage,
		&s.InitialBalance, &s.CurrentBalance, &s.MaxPositionSize, &s.TotalPNL, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if err := json.Unmarshal([]byte(params), &s.Strategy.Params); err != nil {
		return nil, fmt.Errorf("corrupt strategy params for session %d: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(pairs), &s.TradingPairs); err != nil {
		return nil, fmt.Errorf("corrupt trading pairs for session %d: %w", s.ID, err)
	}
	return s, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(sc scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var exitTime, markedAt sql.NullTime
	var status, side string
	err := sc.Scan(
		&t.ID, &t.SessionID, &t.Symbol, &side, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
		&t.StopLoss, &t.TakeProfit, &status, &t.EntryTime, &exitTime,
		&t.PNL, &t.ROIPct, &t.UnrealizedPNL, &t.UnrealizedROIPct, &markedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
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
