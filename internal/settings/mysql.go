package settings

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"fl-status-panel/internal/config"
)

// NewMySQLStore connects to a shared MySQL schema so several panels can share
// one saved port.
func NewMySQLStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("mysql", cfg.SettingsMySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout(cfg.SettingsConnTimeout))
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS panel_settings (
  setting_key VARCHAR(191) NOT NULL PRIMARY KEY,
  setting_value TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
) DEFAULT CHARSET=utf8mb4;
`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqlStore{
		db:           db,
		backend:      "mysql",
		queryTimeout: cfg.SettingsQueryTimeout,
		getQuery:     `SELECT setting_value FROM panel_settings WHERE setting_key = ?;`,
		setQuery: `
INSERT INTO panel_settings (setting_key, setting_value, updated_at)
VALUES (?, ?, UTC_TIMESTAMP())
ON DUPLICATE KEY UPDATE
  setting_value = VALUES(setting_value),
  updated_at = UTC_TIMESTAMP();
`,
	}, nil
}
