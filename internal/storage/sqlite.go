package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SynergySet is a persisted factorization result: the synergy vectors of
// one controller and the quality of the fit they came from.
type SynergySet struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Source        string      `json:"source"`
	Actuators     []string    `json:"actuators"`
	Vectors       [][]float64 `json:"vectors"`
	Iterations    int         `json:"iterations"`
	RelativeError float64     `json:"relative_error"`
	VAF           float64     `json:"vaf"`
	Converged     bool        `json:"converged"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (s SynergySet) Rank() int { return len(s.Vectors) }

func (s SynergySet) validate() error {
	if s.Name == "" {
		return errors.New("synergy set name is required")
	}
	for k, v := range s.Vectors {
		if len(v) != len(s.Actuators) {
			return fmt.Errorf("synergy %d has %d weights for %d actuators", k, len(v), len(s.Actuators))
		}
	}
	return nil
}

// SQLiteStore keeps synergy sets in a single SQLite file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveSynergySet inserts or replaces set and returns its ID, assigning a
// new one when set.ID is empty.
func (s *SQLiteStore) SaveSynergySet(ctx context.Context, set SynergySet) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	if err := set.validate(); err != nil {
		return "", err
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO synergy_sets (id, name, created_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, set.ID, set.Name, set.CreatedAt.UnixNano(), payload)
	if err != nil {
		return "", err
	}
	return set.ID, nil
}

func (s *SQLiteStore) GetSynergySet(ctx context.Context, id string) (SynergySet, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return SynergySet{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM synergy_sets WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SynergySet{}, false, nil
		}
		return SynergySet{}, false, err
	}

	var set SynergySet
	if err := json.Unmarshal(payload, &set); err != nil {
		return SynergySet{}, false, fmt.Errorf("decode synergy set %s: %w", id, err)
	}
	return set, true, nil
}

// FindSynergySet returns the most recent set saved under name.
func (s *SQLiteStore) FindSynergySet(ctx context.Context, name string) (SynergySet, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return SynergySet{}, false, err
	}

	var id string
	err = db.QueryRowContext(ctx,
		`SELECT id FROM synergy_sets WHERE name = ? ORDER BY created_at DESC LIMIT 1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SynergySet{}, false, nil
		}
		return SynergySet{}, false, err
	}
	return s.GetSynergySet(ctx, id)
}

// ListSynergySets returns every set, oldest first.
func (s *SQLiteStore) ListSynergySets(ctx context.Context) ([]SynergySet, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM synergy_sets ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]SynergySet, 0)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var set SynergySet
		if err := json.Unmarshal(payload, &set); err != nil {
			return nil, fmt.Errorf("decode synergy set %s: %w", id, err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (s *SQLiteStore) DeleteSynergySet(ctx context.Context, id string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM synergy_sets WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS synergy_sets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS synergy_sets_name ON synergy_sets (name, created_at);
	`)
	return err
}
