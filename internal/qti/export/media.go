package export

import (
	"context"
	"fmt"
	"io"
	"path"
)

// Collector is a media uploader that keeps files for the package instead of
// sending them anywhere. The returned URLs are relative to testitems/, so
// the QTI importer finds them again.
type Collector struct {
	files map[string][]byte
}

func (c *Collector) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if c.files == nil {
		c.files = make(map[string][]byte)
	}
	rel := path.Join("media", fmt.Sprintf("%d-%s", len(c.files)+1, path.Base(name)))
	c.files[path.Join("testitems", rel)] = b
	return rel, nil
}

// Files returns the collected members keyed by archive path.
func (c *Collector) Files() map[string][]byte { return c.files }
