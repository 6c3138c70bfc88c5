package prefs

import (
	"context"
	"errors"

	"menu-companion/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Postgres stores preferences in the chat_preferences table.
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, log: logger.For("prefs")}
}

func (p *Postgres) Language(ctx context.Context, userID int64) (string, bool) {
	var code string
	err := p.pool.QueryRow(ctx, `SELECT language FROM chat_preferences WHERE user_id = $1`, userID).Scan(&code)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			p.log.Warn().Err(err).Int64("user", userID).Msg("read language")
		}
		return "", false
	}
	return code, true
}

func (p *Postgres) SetLanguage(ctx context.Context, userID int64, code string) error {
	if err := checkCode(code); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO chat_preferences (user_id, language, language_selected_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET language = EXCLUDED.language, language_selected_at = now()`,
		userID, code,
	)
	return err
}
