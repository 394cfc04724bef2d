package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dealhunter/dealhunter/internal/points"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for search logs, agent
// tasks, users, point transactions, and deals.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "dealhunter.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Search logs ---

// CreateSearchLog inserts a new log in PENDING state.
func (s *Store) CreateSearchLog(l SearchLog) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO search_logs (id, query, user_id, status, agent_model, fail_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?)`,
		l.ID, l.Query, l.UserID, StatusPending, l.AgentModel, now, now,
	)
	return err
}

// CompleteSearchLog persists the resolved tasks and flips the log from
// PENDING to COMPLETED in one transaction. An empty task list is
// rejected: a COMPLETED log must always reference at least one task.
func (s *Store) CompleteSearchLog(logID string, tasks []AgentTaskRow) error {
	if len(tasks) == 0 {
		return fmt.Errorf("completing search log %s: no tasks to persist", logID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning completion transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range tasks {
		if _, err := tx.Exec(`
			INSERT INTO agent_tasks (id, search_log_id, type, destination, budget, start_date, end_date, requirements, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, logID, t.Type, t.Destination, t.Budget,
			t.StartDate.UTC().Format(time.RFC3339), t.EndDate.UTC().Format(time.RFC3339),
			t.Requirements, now,
		); err != nil {
			return fmt.Errorf("inserting task for log %s: %w", logID, err)
		}
	}

	res, err := tx.Exec(`UPDATE search_logs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusCompleted, now, logID, StatusPending)
	if err != nil {
		return fmt.Errorf("completing log %s: %w", logID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("completing log %s: not found or not pending", logID)
	}

	return tx.Commit()
}

// FailSearchLog flips a PENDING log to FAILED with the given reason.
// The reason is never stored empty.
func (s *Store) FailSearchLog(logID, reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE search_logs SET status = ?, fail_reason = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusFailed, reason, now, logID, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetSearchLog(id string) (SearchLog, error) {
	var l SearchLog
	var failReason sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, query, user_id, status, agent_model, fail_reason, created_at, updated_at
		FROM search_logs WHERE id = ?`, id,
	).Scan(&l.ID, &l.Query, &l.UserID, &l.Status, &l.AgentModel, &failReason, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return SearchLog{}, ErrNotFound
	}
	if err != nil {
		return SearchLog{}, err
	}
	l.FailReason = failReason.String
	if l.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return SearchLog{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return SearchLog{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return l, nil
}

// ListSearchLogs returns the most recent logs for a user, newest first.
func (s *Store) ListSearchLogs(userID string, limit int) ([]SearchLog, error) {
	rows, err := s.db.Query(`
		SELECT id, query, user_id, status, agent_model, fail_reason, created_at, updated_at
		FROM search_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchLog
	for rows.Next() {
		var l SearchLog
		var failReason sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&l.ID, &l.Query, &l.UserID, &l.Status, &l.AgentModel, &failReason, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		l.FailReason = failReason.String
		if l.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

// GetTasksForLog returns the persisted agent tasks of a search log.
func (s *Store) GetTasksForLog(logID string) ([]AgentTaskRow, error) {
	rows, err := s.db.Query(`
		SELECT id, search_log_id, type, destination, budget, start_date, end_date, requirements, created_at
		FROM agent_tasks WHERE search_log_id = ? ORDER BY created_at ASC, id ASC`, logID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AgentTaskRow
	for rows.Next() {
		var t AgentTaskRow
		var startDate, endDate, createdAt string
		if err := rows.Scan(&t.ID, &t.SearchLogID, &t.Type, &t.Destination, &t.Budget, &startDate, &endDate, &t.Requirements, &createdAt); err != nil {
			return nil, err
		}
		if t.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		if t.EndDate, err = time.Parse(time.RFC3339, endDate); err != nil {
			return nil, fmt.Errorf("parsing end_date: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// --- Users ---

func (s *Store) CreateUser(u User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	level := u.Level
	if level < 1 {
		level = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO users (id, name, points, level, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Points, level, now,
	)
	return err
}

func (s *Store) GetUser(id string) (User, error) {
	var u User
	var createdAt string
	err := s.db.QueryRow(`SELECT id, name, points, level, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Points, &u.Level, &createdAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return u, nil
}

// --- Gamification ledger ---

// AwardPoints runs the full award sequence in one transaction: append an
// audit row, check the user exists, increment the point total, and
// recompute the level from the new total. The level is persisted only
// when it increased; it never decreases. A missing user commits the
// audit row but credits nothing.
func (s *Store) AwardPoints(userID string, amount int, reason string) (points.AwardResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return points.AwardResult{}, fmt.Errorf("beginning award transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	txnID := newID()
	if _, err := tx.Exec(`
		INSERT INTO point_transactions (id, user_id, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		txnID, userID, amount, reason, now,
	); err != nil {
		return points.AwardResult{}, fmt.Errorf("recording point transaction: %w", err)
	}

	var current, level int
	err = tx.QueryRow(`SELECT points, level FROM users WHERE id = ?`, userID).Scan(&current, &level)
	if err == sql.ErrNoRows {
		if err := tx.Commit(); err != nil {
			return points.AwardResult{}, err
		}
		return points.AwardResult{Credited: false}, nil
	}
	if err != nil {
		return points.AwardResult{}, fmt.Errorf("reading user %s: %w", userID, err)
	}

	newPoints := current + amount
	newLevel := points.LevelForPoints(newPoints)
	levelUp := newLevel > level
	if !levelUp {
		newLevel = level
	}

	if _, err := tx.Exec(`UPDATE users SET points = ?, level = ? WHERE id = ?`, newPoints, newLevel, userID); err != nil {
		return points.AwardResult{}, fmt.Errorf("updating user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return points.AwardResult{}, fmt.Errorf("committing award: %w", err)
	}

	return points.AwardResult{
		Points:   newPoints,
		Level:    newLevel,
		LevelUp:  levelUp,
		Credited: true,
	}, nil
}

// ListPointTransactions returns a user's most recent point transactions.
func (s *Store) ListPointTransactions(userID string, limit int) ([]PointTransaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, amount, reason, created_at
		FROM point_transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []PointTransaction
	for rows.Next() {
		var p PointTransaction
		var createdAt string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Reason, &createdAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Deals ---

func (s *Store) SaveDeal(d Deal) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var expiresAt any
	if !d.ExpiresAt.IsZero() {
		expiresAt = d.ExpiresAt.UTC().Format(time.RFC3339)
	}
	active := 0
	if d.Active {
		active = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO deals (id, title, destination, category, price, original_price, vibe, active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Destination, d.Category, d.Price, d.OriginalPrice, d.Vibe, active, expiresAt, now,
	)
	return err
}

func (s *Store) GetDeal(id string) (Deal, error) {
	row := s.db.QueryRow(`
		SELECT id, title, destination, category, price, original_price, vibe, active, expires_at, created_at
		FROM deals WHERE id = ?`, id)
	d, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return Deal{}, ErrNotFound
	}
	return d, err
}

// ListDeals returns deals newest first. When activeOnly is set, inactive
// deals are excluded.
func (s *Store) ListDeals(activeOnly bool, limit int) ([]Deal, error) {
	query := `SELECT id, title, destination, category, price, original_price, vibe, active, expires_at, created_at
		FROM deals`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// ExpireDeals deactivates every active deal whose expiry has passed and
// returns how many were swept.
func (s *Store) ExpireDeals(now time.Time) (int64, error) {
	res, err := s.db.Exec(`UPDATE deals SET active = 0 WHERE active = 1 AND expires_at IS NOT NULL AND expires_at <= ?`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (Deal, error) {
	var d Deal
	var expiresAt sql.NullString
	var createdAt string
	var active int
	if err := row.Scan(&d.ID, &d.Title, &d.Destination, &d.Category, &d.Price, &d.OriginalPrice, &d.Vibe, &active, &expiresAt, &createdAt); err != nil {
		return Deal{}, err
	}
	d.Active = active == 1
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339, expiresAt.String)
		if err != nil {
			return Deal{}, fmt.Errorf("parsing expires_at: %w", err)
		}
		d.ExpiresAt = t
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Deal{}, fmt.Errorf("parsing created_at: %w", err)
	}
	d.CreatedAt = t
	return d, nil
}
