package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/v-hunt/trunity-importer/internal/storage"
)

// MountMedia serves media uploaded to a local blob store during imports,
// so the URLs written into question markup stay reachable.
func MountMedia(r chi.Router, bs storage.BlobStore) {
	// GET /media/*  -> blob at whatever follows /media/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
