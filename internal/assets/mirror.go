package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fotnik/internal/domain"
)

// ObjectStore is the durable storage the mirror uploads to.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
}

// Options configures a Mirror.
type Options struct {
	Store      ObjectStore
	BasePath   string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// KeepLocal disables scratch cleanup so artifacts can be inspected.
	// Enabled outside production deployments.
	KeepLocal bool
}

// Mirror moves image bytes between local scratch storage, remote model
// output URLs and the durable object store.
type Mirror struct {
	store      ObjectStore
	basePath   string
	httpClient *http.Client
	logger     zerolog.Logger
	keepLocal  bool
}

const fetchTimeout = 60 * time.Second

// NewMirror prepares the scratch directory tree and returns a Mirror.
func NewMirror(opts Options) (*Mirror, error) {
	if opts.Store == nil {
		return nil, errors.New("assets: object store is required")
	}
	if opts.BasePath == "" {
		return nil, errors.New("assets: base path is required")
	}
	for _, dir := range []string{"source", "removed_bg", "generated"} {
		if err := os.MkdirAll(filepath.Join(opts.BasePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("assets: ensure scratch dir: %w", err)
		}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Mirror{
		store:      opts.Store,
		basePath:   opts.BasePath,
		httpClient: client,
		logger:     opts.Logger,
		keepLocal:  opts.KeepLocal,
	}, nil
}

// scratchPath builds a collision-resistant local filename for the role.
// Names are random, so concurrent runs never contend for a path.
func (m *Mirror) scratchPath(role Role) string {
	return filepath.Join(m.basePath, localDir(role), uuid.NewString()+".jpg")
}

// PersistLocal writes the bytes to scratch storage and returns the path.
func (m *Mirror) PersistLocal(data []byte, role Role, productID string) (string, error) {
	path := m.scratchPath(role)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s asset for product %s: %v", domain.ErrStorage, role, productID, err)
	}
	return path, nil
}

// FetchRemote streams the URL's body into scratch storage and returns the
// local path. The body is copied, not buffered, so large assets do not have
// to fit in memory.
func (m *Mirror) FetchRemote(ctx context.Context, url string, role Role, productID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build fetch request: %v", domain.ErrStorage, err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", domain.ErrStorage, url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: fetch %s: status %d", domain.ErrStorage, url, resp.StatusCode)
	}

	path := m.scratchPath(role)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create scratch file for product %s: %v", domain.ErrStorage, productID, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: stream %s: %v", domain.ErrStorage, url, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close scratch file: %v", domain.ErrStorage, err)
	}
	return path, nil
}

// MirrorToDurable uploads the local file under the given durable key and
// returns its public URL. Key derivation is the caller's responsibility (see
// KeySet); calling again with the same key overwrites the same object, which
// keeps retries idempotent.
func (m *Mirror) MirrorToDurable(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrStorage, localPath, err)
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, localPath, err)
	}
	url, err := m.store.Put(ctx, key, "image/jpeg", f, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", domain.ErrStorage, key, err)
	}
	return url, nil
}

// CleanupLocal removes scratch files best-effort. Failures are logged, never
// propagated. Outside production the files are kept for inspection.
func (m *Mirror) CleanupLocal(paths ...string) {
	if m.keepLocal {
		return
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn().Err(err).Str("path", path).Msg("assets: failed to remove scratch file")
		}
	}
}
