package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"menu-companion/logger"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_preferences (
	user_id              INTEGER PRIMARY KEY,
	language             TEXT NOT NULL CHECK (language IN ('ar', 'he')),
	language_selected_at INTEGER NOT NULL
)`

// SQLite stores preferences in a local database file.
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create prefs dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create prefs schema: %w", err)
	}
	return &SQLite{db: db, log: logger.For("prefs")}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Language(ctx context.Context, userID int64) (string, bool) {
	var code string
	err := s.db.QueryRowContext(ctx, `SELECT language FROM chat_preferences WHERE user_id = ?`, userID).Scan(&code)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Err(err).Int64("user", userID).Msg("read language")
		}
		return "", false
	}
	return code, true
}

func (s *SQLite) SetLanguage(ctx context.Context, userID int64, code string) error {
	if err := checkCode(code); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_preferences (user_id, language, language_selected_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET language = excluded.language, language_selected_at = excluded.language_selected_at`,
		userID, code, time.Now().Unix(),
	)
	return err
}
