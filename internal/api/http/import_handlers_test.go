package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/v-hunt/trunity-importer/internal/archive"
	auth "github.com/v-hunt/trunity-importer/internal/auth/middleware"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/journal"
	"github.com/v-hunt/trunity-importer/internal/sda"
	"github.com/v-hunt/trunity-importer/internal/storage"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

type fakeRuns struct {
	runs  map[string]journal.Run
	order []string
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]journal.Run{}} }

func (f *fakeRuns) Start(_ context.Context, format, arc string, bookID int, operator string) (journal.Run, error) {
	id := fmt.Sprintf("run-%d", len(f.order)+1)
	run := journal.Run{ID: id, Format: format, Archive: arc, BookID: bookID, Operator: operator,
		Status: journal.StatusRunning, CreatedAt: time.Now()}
	f.runs[id] = run
	f.order = append(f.order, id)
	return run, nil
}

func (f *fakeRuns) Finish(_ context.Context, id string, res formats.Result, runErr error) error {
	run, ok := f.runs[id]
	if !ok {
		return journal.ErrNotFound
	}
	run.Status = journal.StatusSucceeded
	if runErr != nil {
		run.Status = journal.StatusFailed
		run.Error = runErr.Error()
	}
	run.Pools = res.Pools
	run.Warnings = res.Warnings
	f.runs[id] = run
	return nil
}

func (f *fakeRuns) Get(_ context.Context, id string) (journal.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return journal.Run{}, journal.ErrNotFound
	}
	return run, nil
}

func (f *fakeRuns) List(_ context.Context, limit int) ([]journal.Run, error) {
	out := []journal.Run{}
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.runs[f.order[i]])
	}
	return out, nil
}

// echoAdapter reports one pool per archive member; a member named
// "bad-grade" makes it fail the way an SDA grade check does.
type echoAdapter struct{ opts formats.Options }

func (e *echoAdapter) Import(_ context.Context, arc *archive.Archive, _ formats.Env, opts formats.Options) (formats.Result, error) {
	e.opts = opts
	res := formats.Result{Format: "echo"}
	if arc.Has("bad-grade") {
		return res, &sda.GradeError{Grade: opts.Grade, Available: []string{"1"}}
	}
	for _, n := range arc.Names() {
		res.Pools = append(res.Pools, formats.Pool{TestID: n, Title: n, TopicID: opts.TopicID, ContentID: 1})
	}
	res.Warnings = []warnings.Warning{{ItemID: "1", Message: "No audio file found"}}
	return res, nil
}

func zipOf(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		_, _ = w.Write([]byte("x"))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func importRequest(t *testing.T, token string, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "package.zip")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type testServer struct {
	h       http.Handler
	runs    *fakeRuns
	adapter *echoAdapter
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := auth.NewAuthService("test-secret", "operator", string(hash))
	ad := &echoAdapter{}
	formats.Register("echo", ad)

	media, err := storage.NewFSStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	if _, err := media.Put("abc/leaf.gif", strings.NewReader("GIF89a")); err != nil {
		t.Fatalf("put: %v", err)
	}

	s := &testServer{runs: newFakeRuns(), adapter: ad}
	s.h = NewRouter(Deps{Auth: svc, Runs: s.runs, Media: media, CORSOrigins: []string{"http://localhost:3000"}})

	rec := httptest.NewRecorder()
	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"operator","password":"s3cret"}`))
	s.h.ServeHTTP(rec, login)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		t.Fatalf("login body: %v %q", err, rec.Body.String())
	}
	s.token = tok.AccessToken
	return s
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func TestImportRecordsRun(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(importRequest(t, s.token,
		map[string]string{"format": "echo", "book_id": "7", "topic_id": "3", "grade": "K"},
		zipOf(t, "a.xml", "b.xml")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var run journal.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != journal.StatusSucceeded || run.Operator != "operator" || run.BookID != 7 || run.Archive != "package.zip" {
		t.Fatalf("run = %+v", run)
	}
	if len(run.Pools) != 2 || run.Pools[0].TopicID != 3 || len(run.Warnings) != 1 {
		t.Fatalf("pools/warnings = %+v / %+v", run.Pools, run.Warnings)
	}
	if s.adapter.opts.Grade != "K" || s.adapter.opts.BookID != 7 {
		t.Fatalf("adapter options = %+v", s.adapter.opts)
	}

	req := httptest.NewRequest(http.MethodGet, "/imports/"+run.ID, nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if got := s.do(req); got.Code != http.StatusOK {
		t.Fatalf("get run status %d", got.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/imports", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	got := s.do(req)
	var list struct {
		Runs []journal.Run `json:"runs"`
	}
	if err := json.NewDecoder(got.Body).Decode(&list); err != nil || len(list.Runs) != 1 {
		t.Fatalf("list: %v %s", err, got.Body.String())
	}
}

func TestImportFailureStatus(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(importRequest(t, s.token,
		map[string]string{"format": "echo", "book_id": "7", "grade": "9"},
		zipOf(t, "bad-grade")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var run journal.Run
	_ = json.NewDecoder(rec.Body).Decode(&run)
	if run.Status != journal.StatusFailed || !strings.Contains(run.Error, "there is no grade 9") {
		t.Fatalf("run = %+v", run)
	}
}

func TestImportRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		token  string
		fields map[string]string
		file   []byte
		want   int
	}{
		{"no token", "", map[string]string{"format": "echo", "book_id": "1"}, zipOf(t, "a"), http.StatusUnauthorized},
		{"unknown format", s.token, map[string]string{"format": "nope", "book_id": "1"}, zipOf(t, "a"), http.StatusBadRequest},
		{"no book", s.token, map[string]string{"format": "echo"}, zipOf(t, "a"), http.StatusBadRequest},
		{"no file", s.token, map[string]string{"format": "echo", "book_id": "1"}, nil, http.StatusBadRequest},
		{"not zip", s.token, map[string]string{"format": "echo", "book_id": "1"}, []byte("plain text"), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := s.do(importRequest(t, c.token, c.fields, c.file)); got.Code != c.want {
			t.Fatalf("%s: status %d, want %d (%s)", c.name, got.Code, c.want, got.Body.String())
		}
	}
	if len(s.runs.order) != 0 {
		t.Fatalf("rejected requests were journaled: %v", s.runs.order)
	}
}

func TestMediaServedWithoutToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/media/abc/leaf.gif", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "GIF89a" {
		t.Fatalf("media status %d body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Fatalf("content type %q", ct)
	}
	if rec := s.do(httptest.NewRequest(http.MethodGet, "/media/abc/missing.gif", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing media status %d", rec.Code)
	}
}

func TestUnknownRun(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/imports/nope", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if rec := s.do(req); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}
