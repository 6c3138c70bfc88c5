package prefs

import (
	"errors"
	"fmt"

	"menu-companion/lang"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

func checkCode(code string) error {
	if !lang.Valid(code) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return nil
}
