package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/v-hunt/trunity-importer/internal/archive"
	auth "github.com/v-hunt/trunity-importer/internal/auth/middleware"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/journal"
	"github.com/v-hunt/trunity-importer/internal/qti/parser"
	"github.com/v-hunt/trunity-importer/internal/sda"
)

const maxUpload = 256 << 20

// RunStore is the journal surface the handlers use.
type RunStore interface {
	Start(ctx context.Context, format, archive string, bookID int, operator string) (journal.Run, error)
	Finish(ctx context.Context, id string, res formats.Result, runErr error) error
	Get(ctx context.Context, id string) (journal.Run, error)
	List(ctx context.Context, limit int) ([]journal.Run, error)
}

// POST /imports (multipart: file=package.zip, format=qti|sda, book_id, topic_id?, grade?)
//
// The import runs inside the request. Pools go to topic_id, or to the book
// root when it is absent; there is nobody to ask.
func ImportHandler(runs RunStore, env formats.Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "multipart form required", http.StatusBadRequest)
			return
		}
		format := r.FormValue("format")
		adapter, ok := formats.Lookup(format)
		if !ok {
			http.Error(w, "unknown format "+strconv.Quote(format), http.StatusBadRequest)
			return
		}
		bookID, err := strconv.Atoi(r.FormValue("book_id"))
		if err != nil || bookID <= 0 {
			http.Error(w, "book_id required", http.StatusBadRequest)
			return
		}
		opts := formats.Options{BookID: bookID, Grade: r.FormValue("grade")}
		if v := r.FormValue("topic_id"); v != "" {
			if opts.TopicID, err = strconv.Atoi(v); err != nil {
				http.Error(w, "bad topic_id", http.StatusBadRequest)
				return
			}
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		// zip needs ReaderAt+size
		tmp, err := os.CreateTemp("", "import-upload-*.zip")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()
		size, err := io.Copy(tmp, f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		arc, err := archive.NewReader(tmp, size, filepath.Base(hdr.Filename))
		if err != nil {
			http.Error(w, "not a zip archive: "+err.Error(), http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		run, err := runs.Start(ctx, format, arc.Name(), bookID, auth.SubjectFromContext(ctx))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		res, importErr := adapter.Import(ctx, arc, env, opts)
		if err := runs.Finish(ctx, run.ID, res, importErr); err != nil {
			log.Printf("journal finish %s: %v", run.ID, err)
		}
		if importErr != nil {
			log.Printf("import %s (%s) failed: %v", run.ID, arc.Name(), importErr)
		}

		run, err = runs.Get(ctx, run.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, importStatus(importErr), run)
	}
}

func importStatus(err error) int {
	var gradeErr *sda.GradeError
	switch {
	case err == nil:
		return http.StatusCreated
	case errors.As(err, &gradeErr):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrMalformed), errors.Is(err, archive.ErrNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// GET /imports/{id}
func GetRunHandler(runs RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := runs.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, journal.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// GET /imports?limit=N
func ListRunsHandler(runs RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := runs.List(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": list})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
