package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

//go:embed schema.sql
var schema string

const chatterColumns = `id, username, room, status, connection_id, created_at`

// SQLiteStore implements store.ChatterStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the chatter schema.
// Chatter rows only describe live connections, so rows left over from a
// previous process are purged on open.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		if _, err := db.Exec(`DELETE FROM chatters`); err != nil {
			return fmt.Errorf("purge stale chatters: %w", err)
		}
		return nil
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without purging.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps
	// ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Schema returns the DDL applied by New.
func Schema() string {
	return schema
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Find returns every chatter matching the filter, oldest first.
func (s *SQLiteStore) Find(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + chatterColumns + ` FROM chatters` + where + ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chatters: %w", err)
	}
	defer rows.Close()

	return scanChatters(rows)
}

// FindOne returns the oldest chatter matching the filter.
func (s *SQLiteStore) FindOne(ctx context.Context, filter store.Filter) (*store.Chatter, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + chatterColumns + ` FROM chatters` + where + ` ORDER BY rowid LIMIT 1`

	c, err := scanChatter(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query chatter: %w", err)
	}
	return c, nil
}

// Create inserts a new chatter.
func (s *SQLiteStore) Create(ctx context.Context, fields store.NewChatter) (*store.Chatter, error) {
	c := &store.Chatter{
		ID:           uuid.NewString(),
		Username:     fields.Username,
		Room:         fields.Room,
		Status:       fields.Status,
		ConnectionID: fields.ConnectionID,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO chatters (id, username, room, status, connection_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		c.ID, c.Username, c.Room, string(c.Status), c.ConnectionID, c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert chatter: %w", err)
	}

	return c, nil
}

// Delete removes every chatter matching the filter and returns the removed rows.
func (s *SQLiteStore) Delete(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	where, args := whereClause(filter)
	query := `DELETE FROM chatters` + where + ` RETURNING ` + chatterColumns

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete chatters: %w", err)
	}
	defer rows.Close()

	return scanChatters(rows)
}

func whereClause(filter store.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	if filter.Room != "" {
		conds = append(conds, "room = ?")
		args = append(args, filter.Room)
	}
	if filter.ConnectionID != "" {
		conds = append(conds, "connection_id = ?")
		args = append(args, filter.ConnectionID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChatter(row rowScanner) (*store.Chatter, error) {
	var (
		c      store.Chatter
		status string
	)
	if err := row.Scan(&c.ID, &c.Username, &c.Room, &status, &c.ConnectionID, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = store.Status(status)
	return &c, nil
}

func scanChatters(rows *sql.Rows) ([]*store.Chatter, error) {
	chatters := make([]*store.Chatter, 0)
	for rows.Next() {
		c, err := scanChatter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chatter: %w", err)
		}
		chatters = append(chatters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chatters: %w", err)
	}
	return chatters, nil
}
