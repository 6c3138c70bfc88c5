package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"time"

	"menu-companion/cache"
	"menu-companion/logger"
	"menu-companion/metric"
	"menu-companion/models"
	"menu-companion/storage"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDataUnavailable means the blob had to be downloaded and the download failed.
	ErrDataUnavailable = errors.New("image data unavailable")
	// ErrInvalidData means bytes were present but do not decode as an image.
	ErrInvalidData = errors.New("invalid image data")
	// ErrNotCached means the store was unreachable and nothing is cached locally.
	ErrNotCached = errors.New("image not cached")
)

const (
	DefaultImageMaxBytes = 5 * 1024 * 1024
	DefaultFetchTimeout  = 20 * time.Second

	// timestamps closer than this are the same remote version
	timestampTolerance = time.Microsecond
)

// Image is a decoded-and-verified item image.
type Image struct {
	Key    string
	Data   []byte
	Format string
	Width  int
	Height int
}

// ImageService resolves item images through the local cache, revalidating
// against remote metadata.
type ImageService struct {
	objects  storage.ObjectStore
	cache    cache.Cacher
	maxBytes int64
	timeout  time.Duration
	prefetch int
	metrics  *metric.Set
	log      zerolog.Logger

	flight singleflight.Group
}

type ImageOption func(*ImageService)

func WithMaxBytes(n int64) ImageOption {
	return func(s *ImageService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithFetchTimeout(d time.Duration) ImageOption {
	return func(s *ImageService) { s.timeout = d }
}

func WithPrefetchLimit(n int) ImageOption {
	return func(s *ImageService) {
		if n > 0 {
			s.prefetch = n
		}
	}
}

func WithImageMetrics(m *metric.Set) ImageOption {
	return func(s *ImageService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewImageService(objects storage.ObjectStore, c cache.Cacher, opts ...ImageOption) *ImageService {
	s := &ImageService{
		objects:  objects,
		cache:    c,
		maxBytes: DefaultImageMaxBytes,
		timeout:  DefaultFetchTimeout,
		prefetch: 4,
		metrics:  metric.NopSet(),
		log:      logger.For("images"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Data returns the freshest available bytes for item's image.
//
// If remote metadata cannot be read, whatever is cached is returned, possibly
// nil, with no error and no cache write. If the cached timestamp matches the
// remote one the cached bytes are returned without a transfer. Otherwise the
// blob is downloaded and written back with its timestamp; a failed download
// is ErrDataUnavailable.
func (s *ImageService) Data(ctx context.Context, item models.MenuItem) ([]byte, error) {
	key, err := item.ImageKey()
	if err != nil {
		return nil, err
	}
	// The shared fetch outlives any one caller; ctx only bounds this wait.
	fctx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.fetch(fctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.([]byte)
		return data, nil
	}
}

func (s *ImageService) fetch(ctx context.Context, key string) ([]byte, error) {
	mctx, cancel := s.withTimeout(ctx)
	info, err := s.objects.Metadata(mctx, key)
	cancel()
	if err != nil {
		s.metrics.ImageLookup("offline")
		s.log.Warn().Err(err).Str("key", key).Msg("image metadata unavailable, serving cached copy")
		data, _ := s.cache.Retrieve(key)
		return data, nil
	}

	remote, hasRemote := info.LastModified()
	if hasRemote {
		if local, ok := s.cache.RetrieveTimestamp(key); ok && sameVersion(local, remote) {
			if data, ok := s.cache.Retrieve(key); ok {
				s.metrics.ImageLookup("hit")
				return data, nil
			}
		}
		s.metrics.ImageLookup("stale")
	} else {
		s.metrics.ImageLookup("miss")
	}

	dctx, cancel := s.withTimeout(ctx)
	data, err := s.objects.Download(dctx, key, s.maxBytes)
	cancel()
	if err != nil {
		s.metrics.ImageError("data_unavailable")
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, key, err)
	}
	s.metrics.ImageTransferred()

	if !hasRemote {
		remote = time.Now()
	}
	// Blob first: a crash between the two writes then leaves an old timestamp,
	// which only forces another download.
	s.cache.Store(key, data)
	s.cache.StoreTimestamp(key, remote)
	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("image downloaded")
	return data, nil
}

// Image returns item's image, revalidated against the remote store.
func (s *ImageService) Image(ctx context.Context, item models.MenuItem) (*Image, error) {
	data, err := s.Data(ctx, item)
	if err != nil {
		return nil, err
	}
	key, _ := item.ImageKey()
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrNotCached)
	}
	return s.decode(key, data)
}

// CachedImage returns only what is already local, without any network call.
func (s *ImageService) CachedImage(item models.MenuItem) (*Image, error) {
	key, err := item.ImageKey()
	if err != nil {
		return nil, err
	}
	data, ok := s.cache.Retrieve(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotCached)
	}
	return s.decode(key, data)
}

// Prefetch warms the cache for items concurrently. Items without an id are
// skipped and per-item failures are logged, not returned.
func (s *ImageService) Prefetch(ctx context.Context, items []models.MenuItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.prefetch)
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		item := item
		g.Go(func() error {
			if _, err := s.Data(gctx, item); err != nil && gctx.Err() == nil {
				s.log.Warn().Err(err).Str("item", item.ID).Msg("prefetch failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *ImageService) decode(key string, data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.metrics.ImageError("invalid_data")
		s.log.Error().Err(err).Str("key", key).Int("bytes", len(data)).Msg("image does not decode")
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidData, key, err)
	}
	b := img.Bounds()
	return &Image{Key: key, Data: data, Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

func (s *ImageService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func sameVersion(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < timestampTolerance
}
