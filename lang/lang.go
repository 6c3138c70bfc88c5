// Package lang resolves user-facing strings for the two supported languages.
//
// Only two tables exist. Any code that is not Hebrew resolves to Arabic; there
// is no plural handling and no per-key fallback between tables.
package lang

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Ar = "ar"
	He = "he"
)

//go:embed strings.yaml
var stringsYAML []byte

// Table is one language's strings keyed by message key.
type Table map[string]string

// T returns the string for key, formatted with args when given.
// Missing keys return the key itself so gaps are visible.
func (t Table) T(key string, args ...interface{}) string {
	s, ok := t[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

// Resolver holds the Arabic and Hebrew tables.
type Resolver struct {
	ar Table
	he Table
}

// NewResolver parses tables from YAML with top-level "ar" and "he" maps.
func NewResolver(data []byte) (*Resolver, error) {
	var raw map[string]Table
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse strings: %w", err)
	}
	ar, he := raw[Ar], raw[He]
	if len(ar) == 0 || len(he) == 0 {
		return nil, fmt.Errorf("strings: both %q and %q tables are required", Ar, He)
	}
	for k := range ar {
		if _, ok := he[k]; !ok {
			return nil, fmt.Errorf("strings: key %q missing from %q", k, He)
		}
	}
	for k := range he {
		if _, ok := ar[k]; !ok {
			return nil, fmt.Errorf("strings: key %q missing from %q", k, Ar)
		}
	}
	return &Resolver{ar: ar, he: he}, nil
}

// For returns the table for code.
func (r *Resolver) For(code string) Table {
	if Normalize(code) == He {
		return r.he
	}
	return r.ar
}

var defaultResolver = mustResolver()

func mustResolver() *Resolver {
	r, err := NewResolver(stringsYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the resolver built from the embedded tables.
func Default() *Resolver {
	return defaultResolver
}

// T resolves key in the embedded table for code.
func T(code, key string, args ...interface{}) string {
	return defaultResolver.For(code).T(key, args...)
}

// Normalize maps any code to a supported one: "he" stays "he", everything else is "ar".
func Normalize(code string) string {
	if strings.EqualFold(strings.TrimSpace(code), He) {
		return He
	}
	return Ar
}

// Valid reports whether code is exactly one of the supported codes.
func Valid(code string) bool {
	return code == Ar || code == He
}

// FromLocale derives a language from a locale string such as "he_IL.UTF-8",
// "he-IL" or "ar". Unrecognized locales give Arabic.
func FromLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "_-.@"); i >= 0 {
		l = l[:i]
	}
	// "iw" is the legacy ISO code for Hebrew.
	if l == He || l == "iw" {
		return He
	}
	return Ar
}

// Price formats a price for display: the localized "free" string for nil or
// zero, otherwise "<price> ₪".
func Price(code string, price *int64) string {
	if price == nil || *price == 0 {
		return T(code, "free")
	}
	return fmt.Sprintf("%d ₪", *price)
}

// Language is an entry of the language picker.
type Language struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// Languages lists the supported languages in picker order.
func Languages() []Language {
	return []Language{
		{Code: Ar, DisplayName: "عربي"},
		{Code: He, DisplayName: "עברית"},
	}
}

// DisplayName returns the native name of code's language.
func DisplayName(code string) string {
	if Normalize(code) == He {
		return "עברית"
	}
	return "عربي"
}
