// Package blob stores whole objects such as the generated locations cache.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// ErrNotExist is returned when no object is stored at the path
var ErrNotExist = errors.New("blob: object does not exist")

// WriteOptions are object metadata applied on write
type WriteOptions struct {
	ContentType  string
	CacheControl string
	Public       bool
}

// Store reads and replaces whole objects
type Store interface {
	Write(ctx context.Context, path string, data []byte, opts WriteOptions) (url string, err error)
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// GCS stores objects in a Cloud Storage bucket
type GCS struct {
	Bucket     *storage.BucketHandle
	BucketName string
}

// NewGCS wraps a bucket handle
func NewGCS(bucket *storage.BucketHandle, name string) *GCS {
	return &GCS{Bucket: bucket, BucketName: name}
}

func (g *GCS) Write(ctx context.Context, path string, data []byte, opts WriteOptions) (string, error) {
	w := g.Bucket.Object(path).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl
	if opts.Public {
		w.PredefinedACL = "publicRead"
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("blob: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("blob: commit %s: %w", path, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.BucketName, path), nil
}

func (g *GCS) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := g.Bucket.Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.Bucket.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Dir stores objects as files under Root. URLs are BaseURL joined with the path.
type Dir struct {
	Root    string
	BaseURL string
}

// NewDir returns a directory-backed store
func NewDir(root, baseURL string) *Dir {
	return &Dir{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Dir) file(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("blob: invalid path %q", path)
	}
	return filepath.Join(d.Root, clean), nil
}

func (d *Dir) Write(_ context.Context, path string, data []byte, _ WriteOptions) (string, error) {
	name, err := d.file(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return "", fmt.Errorf("blob: mkdir: %w", err)
	}
	// Write then rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(name), ".blob-*")
	if err != nil {
		return "", fmt.Errorf("blob: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: rename %s: %w", path, err)
	}
	return d.BaseURL + "/" + strings.TrimLeft(path, "/"), nil
}

func (d *Dir) Read(_ context.Context, path string) ([]byte, error) {
	name, err := d.file(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

func (d *Dir) Exists(_ context.Context, path string) (bool, error) {
	name, err := d.file(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
