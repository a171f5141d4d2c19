package settings

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// sqlStore is shared by every database/sql backend; only the statements differ.
type sqlStore struct {
	db           *sql.DB
	backend      string
	queryTimeout time.Duration
	getQuery     string
	setQuery     string
}

func (s *sqlStore) Backend() string { return s.backend }

func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, accessError(s.backend, "get", key, err)
	}
	return value, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.setQuery, key, value); err != nil {
		return accessError(s.backend, "set", key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// connTimeout bounds the initial ping and schema bootstrap. A non-positive
// value falls back to five seconds rather than an already expired context.
func connTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
