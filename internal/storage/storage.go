package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore is the object-storage collaborator: upload raw bytes under a
// path, get back a public URL. The chat core only depends on this contract.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
	PublicURL(path string) string
}

// DiskStore stores objects under a local directory and serves them from
// baseURL (the server mounts the directory on /files/).
type DiskStore struct {
	root    string
	baseURL string
}

func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the directory objects are written to.
func (s *DiskStore) Root() string { return s.root }

func (s *DiskStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	clean, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.PublicURL(path), nil
}

func (s *DiskStore) PublicURL(path string) string {
	return s.baseURL + "/files/" + strings.TrimLeft(path, "/")
}

// resolve maps an object path to a file path, refusing traversal outside
// the root.
func (s *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Join(s.root, filepath.FromSlash(strings.TrimLeft(path, "/")))
	if !strings.HasPrefix(clean, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return clean, nil
}
