package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"menu-companion/config"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCS is an ObjectStore over the Cloud Storage JSON API. Firebase Storage
// buckets are plain Cloud Storage buckets, so this also serves those.
type GCS struct {
	svc    *gcs.Service
	bucket string
}

// NewGCS builds a client from config. An endpoint override disables
// authentication, which is what local emulators expect.
func NewGCS(ctx context.Context, cfg config.StorageConfig, opts ...option.ClientOption) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{svc: svc, bucket: cfg.Bucket}, nil
}

func (g *GCS) Metadata(ctx context.Context, name string) (ObjectInfo, error) {
	obj, err := g.svc.Objects.Get(g.bucket, name).Context(ctx).Do()
	if err != nil {
		return ObjectInfo{}, wrapErr(name, err)
	}
	info := ObjectInfo{Name: obj.Name, Size: int64(obj.Size)}
	if info.Updated, err = parseTime(obj.Updated); err != nil {
		return ObjectInfo{}, fmt.Errorf("metadata %s: updated: %w", name, err)
	}
	if info.Created, err = parseTime(obj.TimeCreated); err != nil {
		return ObjectInfo{}, fmt.Errorf("metadata %s: timeCreated: %w", name, err)
	}
	return info, nil
}

func (g *GCS) Download(ctx context.Context, name string, maxBytes int64) ([]byte, error) {
	resp, err := g.svc.Objects.Get(g.bucket, name).Context(ctx).Download()
	if err != nil {
		return nil, wrapErr(name, err)
	}
	defer resp.Body.Close()
	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("download %s: %w (%d > %d)", name, ErrTooLarge, resp.ContentLength, maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("download %s: %w (limit %d)", name, ErrTooLarge, maxBytes)
	}
	return data, nil
}

func (g *GCS) Upload(ctx context.Context, name, contentType string, r io.Reader) error {
	obj := &gcs.Object{Name: name, ContentType: contentType}
	if _, err := g.svc.Objects.Insert(g.bucket, obj).Media(r).Context(ctx).Do(); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func wrapErr(name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", name, err)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
