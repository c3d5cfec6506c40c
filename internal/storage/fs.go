package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type FSStore struct {
	base      string
	publicURL string
}

// NewFSStore roots the store at base. With publicURL set, URLs are
// publicURL/key; otherwise they are file:// URLs.
func NewFSStore(base, publicURL string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *FSStore) URL(key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	abs, err := filepath.Abs(filepath.Join(s.base, filepath.FromSlash(key)))
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// Upload stores r under a fresh prefix so equal base names from different
// archive folders never overwrite each other.
func (s *FSStore) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	key, err := s.Put(path.Join(uuid.NewString(), path.Base(name)), r)
	if err != nil {
		return "", err
	}
	return s.URL(key)
}

func (s *FSStore) path(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", errors.New("invalid key: " + key)
		}
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("invalid key: " + key)
	}
	return filepath.Join(s.base, filepath.FromSlash(clean[1:])), nil
}
