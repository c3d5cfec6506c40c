// Package archive gives read-only, name-indexed access to an export zip.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("archive member not found")

type Archive struct {
	name   string
	zr     *zip.Reader
	closer io.Closer
	files  map[string]*zip.File
	order  []string
}

// Open opens a zip file on disk. Close releases it.
func Open(p string) (*Archive, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", p, err)
	}
	a := newArchive(p, &rc.Reader)
	a.closer = rc
	return a, nil
}

// NewReader wraps an in-memory or temp-file zip.
func NewReader(r io.ReaderAt, size int64, name string) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", name, err)
	}
	return newArchive(name, zr), nil
}

func newArchive(name string, zr *zip.Reader) *Archive {
	a := &Archive{name: name, zr: zr, files: map[string]*zip.File{}}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		n := clean(f.Name)
		if _, dup := a.files[n]; dup {
			continue
		}
		a.files[n] = f
		a.order = append(a.order, n)
	}
	return a
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Name is the archive file name without directory and .zip extension.
func (a *Archive) Name() string {
	base := filepath.Base(filepath.ToSlash(a.name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Names lists member files in archive order.
func (a *Archive) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

func (a *Archive) Has(name string) bool {
	_, ok := a.files[clean(name)]
	return ok
}

func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f, ok := a.files[clean(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

func (a *Archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// FindExport locates the top-level XML_Export*.xml file of an SDA package.
func (a *Archive) FindExport() (string, error) {
	for _, n := range a.order {
		if strings.Contains(n, "/") {
			continue
		}
		if strings.HasPrefix(n, "XML_Export") && strings.HasSuffix(n, ".xml") {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: XML_Export*.xml", ErrNotFound)
}

func clean(name string) string {
	n := strings.ReplaceAll(name, "\\", "/")
	n = path.Clean("/" + n)
	return strings.TrimPrefix(n, "/")
}
