// Package cache stores downloaded blobs and their remote freshness timestamps
// as files in a local directory, normally the OS temp dir. Entries may be
// purged by the OS at any time.
package cache

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"menu-companion/logger"

	"github.com/rs/zerolog"
)

// timestampSuffix names the sibling file holding a blob's timestamp.
const timestampSuffix = "metadata"

var errBadKey = errors.New("invalid cache key")

// Cacher is the blob + timestamp cache used by the image service.
type Cacher interface {
	Store(key string, data []byte)
	Retrieve(key string) ([]byte, bool)
	StoreTimestamp(key string, t time.Time)
	RetrieveTimestamp(key string) (time.Time, bool)
}

// Dir is a Cacher backed by files in a single directory. Writes go through a
// temp file and rename, so readers never see a partial blob. Distinct keys can
// be used concurrently; concurrent writes to one key are last-writer-wins.
type Dir struct {
	root string
	log  zerolog.Logger
}

// New returns a cache rooted at dir, creating it if needed.
func New(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Dir{root: dir, log: logger.For("cache")}, nil
}

// Root returns the cache directory.
func (d *Dir) Root() string {
	return d.root
}

// Store writes data under key. Failures are logged only.
func (d *Dir) Store(key string, data []byte) {
	if err := d.write(key, data); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache store failed")
		return
	}
	d.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("cache stored")
}

// Retrieve returns the blob for key, or false if it is absent or unreadable.
func (d *Dir) Retrieve(key string) ([]byte, bool) {
	path, err := d.path(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	return data, true
}

// StoreTimestamp records t for key as decimal epoch seconds.
func (d *Dir) StoreTimestamp(key string, t time.Time) {
	text := strconv.FormatFloat(epochSeconds(t), 'f', -1, 64)
	if err := d.write(key+timestampSuffix, []byte(text)); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache timestamp store failed")
	}
}

// RetrieveTimestamp returns the recorded timestamp for key. Absent or
// unparsable values report false.
func (d *Dir) RetrieveTimestamp(key string) (time.Time, bool) {
	data, ok := d.Retrieve(key + timestampSuffix)
	if !ok {
		return time.Time{}, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	return fromEpochSeconds(secs), true
}

func (d *Dir) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return "", fmt.Errorf("%w: %q", errBadKey, key)
	}
	return filepath.Join(d.root, key), nil
}

func (d *Dir) write(key string, data []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.root, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromEpochSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}
