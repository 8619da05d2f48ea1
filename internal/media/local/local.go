// Package local is implementation of media store over local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/mosaic/internal/media"
)

var log = logrus.WithField("layer", "media").WithField("package", "local")

var errInvalidKey = errors.New("invalid key")

type store struct {
	dir     string
	baseURL string
}

// New creates new instance of local store.
// Files are saved under dir and served from baseURL.
func New(dir, baseURL string) media.Store {
	return store{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s store) path(key string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errInvalidKey, key)
	}

	return p, nil
}

func (s store) Store(ctx context.Context, key string, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p, err := s.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := ioutil.TempFile(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := func() error {
		defer f.Close() // nolint:errcheck

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}

		return f.Sync()
	}(); err != nil {
		if err := os.Remove(f.Name()); err != nil {
			log.WithError(err).WithField("file", f.Name()).Error("failed to remove temp file")
		}
		return "", err
	}

	if err := os.Rename(f.Name(), p); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return s.publicURL(key), nil
}

// publicURL escapes every segment of the key, since keys keep user's file names.
func (s store) publicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, v := range segments {
		segments[i] = url.PathEscape(v)
	}

	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}
