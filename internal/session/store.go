package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"tutorlink/internal/models"
)

// Fixed storage keys for the persisted credential and identity record.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUserData     = "user_data"
)

// Store persists the session across restarts.
type Store interface {
	Load(ctx context.Context) (*Identity, error)
	Save(ctx context.Context, id *Identity) error
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the session in a local key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed creates) the session database at
// path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// Load restores the persisted identity. Returns (nil, nil) when no
// session is stored or the stored record is unreadable; a corrupt
// record is treated as absent, matching clear-on-parse-failure.
func (s *SQLiteStore) Load(ctx context.Context) (*Identity, error) {
	access, err := s.get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	userData, err := s.get(ctx, keyUserData)
	if err != nil {
		return nil, err
	}
	if access == "" || userData == "" {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		_ = s.Clear(ctx)
		return nil, nil
	}
	if !user.Role.Valid() {
		_ = s.Clear(ctx)
		return nil, nil
	}

	refresh, err := s.get(ctx, keyRefreshToken)
	if err != nil {
		return nil, err
	}
	return &Identity{User: user, Access: access, Refresh: refresh}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id *Identity) error {
	userData, err := json.Marshal(id.User)
	if err != nil {
		return err
	}
	if err := s.set(ctx, keyAccessToken, id.Access); err != nil {
		return err
	}
	if err := s.set(ctx, keyRefreshToken, id.Refresh); err != nil {
		return err
	}
	return s.set(ctx, keyUserData, string(userData))
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE key IN (?, ?, ?)`,
		keyAccessToken, keyRefreshToken, keyUserData)
	return err
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu sync.Mutex
	id *Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == nil {
		return nil, nil
	}
	cp := *s.id
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, id *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *id
	s.id = &cp
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = nil
	return nil
}
