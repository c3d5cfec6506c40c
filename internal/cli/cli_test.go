package cli

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/v-hunt/trunity-importer/internal/archive"
)

func TestRootHelp(t *testing.T) {
	var out, err bytes.Buffer
	code := Run([]string{"--help"}, &out, &err)
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d", ExitOK, code)
	}
	if err.Len() != 0 {
		t.Fatalf("expected no stderr output, got %q", err.String())
	}
	for _, cmd := range commands {
		if !strings.Contains(out.String(), cmd.Name) {
			t.Fatalf("expected command %q in output", cmd.Name)
		}
	}
}

func TestNoArgsShowsUsage(t *testing.T) {
	var out, err bytes.Buffer
	if code := Run(nil, &out, &err); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	var out, err bytes.Buffer
	if code := Run([]string{"nope"}, &out, &err); code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if out.Len() != 0 || !strings.Contains(err.String(), "Unknown command") {
		t.Fatalf("stdout %q stderr %q", out.String(), err.String())
	}
}

func TestCommandHelp(t *testing.T) {
	for _, cmd := range commands {
		var out, err bytes.Buffer
		if code := Run([]string{cmd.Name, "--help"}, &out, &err); code != ExitOK {
			t.Fatalf("%s --help exit %d", cmd.Name, code)
		}
		if !strings.Contains(out.String(), cmd.Usage[0]) {
			t.Fatalf("%s usage missing: %q", cmd.Name, out.String())
		}
	}
}

func TestImportArgumentErrors(t *testing.T) {
	cases := [][]string{
		{"sda", "archive.zip"},
		{"sda", "-book", "7"},
		{"qti", "-book", "7", "-grade", "1", "archive.zip"},
		{"sda", "-book", "7", "a.zip", "b.zip"},
	}
	for _, args := range cases {
		var out, err bytes.Buffer
		if code := Run(args, &out, &err); code != ExitUsage {
			t.Fatalf("%v: exit %d, stderr %q", args, code, err.String())
		}
	}
}

func sampleZip(t *testing.T) string {
	t.Helper()
	export, err := os.ReadFile("../sda/testdata/XML_Export_sample.xml")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	members := map[string][]byte{
		"XML_Export_1234.xml": export,
		"media/12345.mp3":     []byte("mp3"),
		"media/54321.mp3":     []byte("mp3"),
		"images/plant_01.gif": []byte("gif"),
		"images/580404.gif":   []byte("gif"),
	}
	p := filepath.Join(t.TempDir(), "science.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range members {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		_, _ = fw.Write(body)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return p
}

func TestGrades(t *testing.T) {
	var out, err bytes.Buffer
	if code := Run([]string{"grades", sampleZip(t)}, &out, &err); code != ExitOK {
		t.Fatalf("exit %d: %s", code, err.String())
	}
	if out.String() != "1\t2 tests\nK\t1 tests\n" {
		t.Fatalf("grades output %q", out.String())
	}
}

func TestPackWritesPackage(t *testing.T) {
	src := sampleZip(t)
	dst := filepath.Join(t.TempDir(), "out.zip")
	var out, err bytes.Buffer
	if code := Run([]string{"pack", "-no-color", "-grade", "1", "-o", dst, src}, &out, &err); code != ExitOK {
		t.Fatalf("exit %d: %s", code, err.String())
	}
	if !strings.Contains(out.String(), "Wrote "+dst) || !strings.Contains(out.String(), "<<<< Warnings >>>>") {
		t.Fatalf("output %q", out.String())
	}
	arc, openErr := archive.Open(dst)
	if openErr != nil {
		t.Fatalf("open packed: %v", openErr)
	}
	defer arc.Close()
	if !arc.Has("imsmanifest.xml") || !arc.Has("testitems/test-111.xml") || arc.Has("testitems/test-222.xml") {
		t.Fatalf("members = %v", arc.Names())
	}

	out.Reset()
	err.Reset()
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if code := Run([]string{"pack", "-grade", "9", "-o", bad, src}, &out, &err); code != ExitError {
		t.Fatalf("unknown grade exit %d", code)
	}
	if _, statErr := os.Stat(bad); !os.IsNotExist(statErr) {
		t.Fatalf("failed pack left %s behind", bad)
	}
}

type fakeTrunity struct {
	srv    *httptest.Server
	mu     sync.Mutex
	topics []string
	files  []string
	puts   int
}

func newFakeTrunity(t *testing.T) *fakeTrunity {
	t.Helper()
	f := &fakeTrunity{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("username") != "alice" || r.Form.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/sites/7/contents", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.topics = append(f.topics, r.PostForm.Get("topic_id"))
		id := 500 + len(f.topics)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]int{"id": id})
	})
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.files = append(f.files, hdr.Filename)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/" + hdr.Filename})
	})
	mux.HandleFunc("/questionnaires/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.puts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	t.Setenv("T3_BASE_URL", f.srv.URL)
	t.Setenv("T3_TOKEN_URL", f.srv.URL+"/token")
	t.Setenv("T3_USERNAME", "alice")
	t.Setenv("T3_PWD", "")
	t.Setenv("BLOB_DRIVER", "trunity")
	t.Setenv("TRUNITY_IMPORTER_CONFIG", "")
	return f
}

func withStdin(t *testing.T, s string) {
	t.Helper()
	prev := stdin
	stdin = strings.NewReader(s)
	t.Cleanup(func() { stdin = prev })
}

func TestSDAImportPromptsForPasswordAndTopics(t *testing.T) {
	f := newFakeTrunity(t)
	withStdin(t, "wrong\nsecret\n\nabc\n12\n")

	var out, errb bytes.Buffer
	code := Run([]string{"sda", "-book", "7", "-no-color", sampleZip(t)}, &out, &errb)
	if code != ExitOK {
		t.Fatalf("exit %d: %s\n%s", code, errb.String(), out.String())
	}
	if strings.Count(out.String(), "Password: ") != 2 || !strings.Contains(out.String(), "Login failed") {
		t.Fatalf("password prompts missing: %q", out.String())
	}
	if !strings.Contains(out.String(), "Please enter a numeric topic id.") {
		t.Fatalf("bad topic id not rejected: %q", out.String())
	}
	if strings.Join(f.topics, ",") != ",12" {
		t.Fatalf("topics = %q", f.topics)
	}
	if f.puts != 2 {
		t.Fatalf("questionnaire uploads = %d", f.puts)
	}
	if !strings.Contains(out.String(), `Pool "Questionnaire 2 - Question Pool": id=502 topic=12 questions=1`) {
		t.Fatalf("pool summary missing: %q", out.String())
	}
	if !strings.Contains(out.String(), "#### Warning #5") || strings.Contains(out.String(), "#### Warning #6") {
		t.Fatalf("warnings report: %q", out.String())
	}
}

func TestSDAImportGradeErrorUploadsNothing(t *testing.T) {
	f := newFakeTrunity(t)
	t.Setenv("T3_PWD", "secret")
	withStdin(t, "")

	var out, errb bytes.Buffer
	code := Run([]string{"sda", "-book", "7", "-topic", "3", "-grade", "9", sampleZip(t)}, &out, &errb)
	if code != ExitUsage {
		t.Fatalf("exit %d: %s", code, errb.String())
	}
	if !strings.Contains(errb.String(), "there is no grade 9. Grades available: [1, K]") {
		t.Fatalf("stderr %q", errb.String())
	}
	if len(f.topics) != 0 || len(f.files) != 0 || f.puts != 0 {
		t.Fatalf("uploads happened: %v %v %d", f.topics, f.files, f.puts)
	}
}

func TestConfiguredCredentialsAreNotRetried(t *testing.T) {
	newFakeTrunity(t)
	t.Setenv("T3_PWD", "nope")
	withStdin(t, "secret\n")

	var out, errb bytes.Buffer
	if code := Run([]string{"sda", "-book", "7", "-topic", "3", sampleZip(t)}, &out, &errb); code != ExitError {
		t.Fatalf("exit %d", code)
	}
	if strings.Contains(out.String(), "Password") || !strings.Contains(errb.String(), "login as \"alice\"") {
		t.Fatalf("stdout %q stderr %q", out.String(), errb.String())
	}
}
