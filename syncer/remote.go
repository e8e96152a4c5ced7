package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrNoSnapshot reports that the remote holds no snapshot yet. The first
// instance to sync treats its local store as authoritative.
var ErrNoSnapshot = errors.New("remote holds no snapshot")

// Remote is the transport that stores one encrypted snapshot. The remote
// only ever sees sealed bytes.
type Remote interface {
	// Fetch downloads the current snapshot, or fails with ErrNoSnapshot.
	Fetch(ctx context.Context) ([]byte, error)
	// Publish atomically replaces the current snapshot.
	Publish(ctx context.Context, data []byte) error
}

// OpenRemote builds a remote from its URL. Supported schemes: http(s), and
// file or a bare path for a shared folder.
func OpenRemote(rawURL string) (Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return &httpRemote{url: rawURL, client: http.DefaultClient}, nil
	case "file":
		return &fileRemote{path: u.Path}, nil
	case "":
		return &fileRemote{path: rawURL}, nil
	default:
		return nil, fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}
}

// fileRemote stores the snapshot as a single file, typically on a mounted
// shared folder.
type fileRemote struct {
	path string
}

func (r *fileRemote) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return data, nil
}

func (r *fileRemote) Publish(_ context.Context, data []byte) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	// Write-then-rename so a reader never observes a half-written snapshot.
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// httpRemote stores the snapshot behind a single URL with GET and PUT.
type httpRemote struct {
	url    string
	client *http.Client
}

func (r *httpRemote) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoSnapshot
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: cannot GET %s: %s", ErrTransport, r.url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return data, nil
}

func (r *httpRemote) Publish(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: cannot PUT %s: %s", ErrTransport, r.url, resp.Status)
	}
	return nil
}
