// Package prefs persists each chat user's menu language.
package prefs

import (
	"context"

	"menu-companion/lang"
)

// Store keeps one language code per user. Only supported codes are stored.
type Store interface {
	// Language returns the stored code, or false when the user never chose one
	// or the backend could not be read.
	Language(ctx context.Context, userID int64) (string, bool)
	SetLanguage(ctx context.Context, userID int64, code string) error
}

// Resolve returns the user's stored language, falling back to the one derived
// from locale.
func Resolve(ctx context.Context, s Store, userID int64, locale string) string {
	if s != nil {
		if code, ok := s.Language(ctx, userID); ok && lang.Valid(code) {
			return code
		}
	}
	return lang.FromLocale(locale)
}
