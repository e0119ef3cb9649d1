package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomw/ptt/pkg/logger"
)

// Transcript is a stored dictation result
type Transcript struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration_seconds"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists dictation results in a SQLite database. The newest
// maxEntries transcripts are kept; older rows are pruned on insert.
type Store struct {
	db         *sql.DB
	maxEntries int
	logger     *logger.Logger
}

// NewStore opens (or creates) the history database at the given path. Use
// ":memory:" for an ephemeral store.
func NewStore(path string, maxEntries int, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{
		db:         db,
		maxEntries: maxEntries,
		logger:     log.Named("history"),
	}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initDB initializes the database tables
func (s *Store) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create transcripts index: %w", err)
	}
	return nil
}

// Insert stores a transcript and prunes entries beyond the retention limit
func (s *Store) Insert(text string, duration time.Duration) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO transcripts (text, duration_seconds, created_at) VALUES (?, ?, ?)`,
		text,
		duration.Seconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcript: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if s.maxEntries > 0 {
		if err := s.prune(); err != nil {
			s.logger.Warn("Failed to prune history", logger.Error(err))
		}
	}
	return id, nil
}

// prune deletes everything older than the newest maxEntries rows
func (s *Store) prune() error {
	_, err := s.db.Exec(
		`DELETE FROM transcripts
		WHERE id NOT IN (
			SELECT id FROM transcripts ORDER BY id DESC LIMIT ?
		)`,
		s.maxEntries,
	)
	if err != nil {
		return fmt.Errorf("failed to prune transcripts: %w", err)
	}
	return nil
}

// Recent returns up to limit transcripts, newest first
func (s *Store) Recent(limit int) ([]*Transcript, error) {
	rows, err := s.db.Query(
		`SELECT id, text, duration_seconds, created_at
		FROM transcripts
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var t Transcript
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Text, &t.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transcript timestamp: %w", err)
		}
		transcripts = append(transcripts, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}
	return transcripts, nil
}

// Clear deletes all stored transcripts
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM transcripts`); err != nil {
		return fmt.Errorf("failed to clear transcripts: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
