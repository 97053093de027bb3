package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS visitors (
		visitor_id TEXT PRIMARY KEY,
		language TEXT,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_visitors_last_seen ON visitors(last_seen_at);

	CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		visitor_id TEXT,
		session_id TEXT,
		name TEXT NOT NULL,
		company TEXT,
		email TEXT NOT NULL,
		phone TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetVisitor retrieves a visitor by id.
func (s *SQLiteStore) GetVisitor(ctx context.Context, visitorID string) (*domain.Visitor, error) {
	query := `
		SELECT visitor_id, language, last_seen_at, created_at, updated_at
		FROM visitors WHERE visitor_id = ?`

	row := s.db.QueryRowContext(ctx, query, visitorID)

	var v domain.Visitor
	var language sql.NullString
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&v.VisitorID, &language, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan visitor row: %w", err)
	}

	v.Language = language.String
	v.LastSeenAt = time.Unix(lastSeen, 0)
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)

	return &v, nil
}

// UpsertVisitor creates or updates a visitor record. An empty language keeps
// the stored one.
func (s *SQLiteStore) UpsertVisitor(ctx context.Context, visitor *domain.Visitor) error {
	query := `
	INSERT INTO visitors (visitor_id, language, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(visitor_id) DO UPDATE SET
		language = COALESCE(excluded.language, visitors.language),
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	var language interface{}
	if visitor.Language != "" {
		language = visitor.Language
	}

	return shared.RetryOnConflict(ctx, s.retry, "upsert visitor", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			visitor.VisitorID, language,
			visitor.LastSeenAt.Unix(), visitor.CreatedAt.Unix(), visitor.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert visitor: %w", err)
		}
		return nil
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a visitor.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, visitorID string, lastSeen time.Time) error {
	query := `UPDATE visitors SET last_seen_at = ?, updated_at = ? WHERE visitor_id = ?`
	rows, err := s.exec(ctx, "update last_seen", query, lastSeen.Unix(), time.Now().Unix(), visitorID)
	if err != nil {
		return err
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "visitor_id", visitorID)
	}
	return nil
}

// SetVisitorLanguage records the last language chosen by a visitor.
func (s *SQLiteStore) SetVisitorLanguage(ctx context.Context, visitorID, language string) error {
	query := `UPDATE visitors SET language = ?, updated_at = ? WHERE visitor_id = ?`
	rows, err := s.exec(ctx, "set visitor language", query, language, time.Now().Unix(), visitorID)
	if err != nil {
		return err
	}
	if rows == 0 {
		slog.Warn("SetVisitorLanguage affected 0 rows", "visitor_id", visitorID)
	}
	return nil
}

// SaveLead inserts a lead and sets its ID and timestamps.
func (s *SQLiteStore) SaveLead(ctx context.Context, lead *domain.Lead) error {
	query := `
	INSERT INTO leads (visitor_id, session_id, name, company, email, phone, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = domain.LeadPending
	}

	return shared.RetryOnConflict(ctx, s.retry, "save lead", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query,
			nullString(lead.VisitorID), nullString(lead.SessionID),
			lead.Contact.Name, nullPtr(lead.Contact.Company),
			lead.Contact.Email, nullPtr(lead.Contact.Phone),
			string(lead.Status), lead.CreatedAt.Unix(), lead.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get lead id: %w", err)
		}
		lead.ID = id
		return nil
	})
}

// UpdateLeadStatus records the delivery outcome of a lead.
func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id int64, status domain.LeadStatus) error {
	query := `UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`
	rows, err := s.exec(ctx, "update lead status", query, string(status), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrLeadNotFound, id)
	}
	return nil
}

// ListLeads returns the most recent leads, newest first.
func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]*domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, visitor_id, session_id, name, company, email, phone, status, created_at, updated_at
		FROM leads ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leads rows", "error", closeErr)
		}
	}()

	var leads []*domain.Lead
	for rows.Next() {
		var lead domain.Lead
		var visitorID, sessionID, company, phone sql.NullString
		var status string
		var createdAt, updatedAt int64

		if err := rows.Scan(
			&lead.ID, &visitorID, &sessionID,
			&lead.Contact.Name, &company, &lead.Contact.Email, &phone,
			&status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}

		lead.VisitorID = visitorID.String
		lead.SessionID = sessionID.String
		lead.Contact.Company = ptrString(company)
		lead.Contact.Phone = ptrString(phone)
		lead.Status = domain.LeadStatus(status)
		lead.CreatedAt = time.Unix(createdAt, 0)
		lead.UpdatedAt = time.Unix(updatedAt, 0)
		leads = append(leads, &lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// exec runs a write statement with conflict retries and returns the number of
// affected rows.
func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	var rows int64
	err := shared.RetryOnConflict(ctx, s.retry, op, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return rows, err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
