package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/v-hunt/trunity-importer/internal/db"
	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "journal.db") + "?_pragma=busy_timeout(5000)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return New(conn)
}

func TestRunLifecycle(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	run, err := j.Start(ctx, "sda", "science.zip", 7, "operator")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	got, err := j.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil || len(got.Pools) != 0 {
		t.Fatalf("running run = %+v", got)
	}

	res := formats.Result{
		Format: "sda",
		Pools:  []formats.Pool{{TestID: "111", Title: "Q1 - Question Pool", ContentID: 501, Questions: 2}},
		Warnings: []warnings.Warning{
			{ItemID: "1", Message: "first"},
			{ItemID: "2", Message: "second"},
		},
	}
	if err := j.Finish(ctx, run.ID, res, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, err = j.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSucceeded || got.FinishedAt == nil {
		t.Fatalf("finished run = %+v", got)
	}
	if len(got.Pools) != 1 || got.Pools[0].ContentID != 501 {
		t.Fatalf("pools = %+v", got.Pools)
	}
	if len(got.Warnings) != 2 || got.Warnings[0].Message != "first" || got.Warnings[1].ItemID != "2" {
		t.Fatalf("warnings = %+v", got.Warnings)
	}
}

func TestFailedRunAndList(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	a, _ := j.Start(ctx, "qti", "a.zip", 1, "")
	b, _ := j.Start(ctx, "qti", "b.zip", 1, "")
	if err := j.Finish(ctx, b.ID, formats.Result{}, errors.New("upload failed")); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := j.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	seen := map[string]Run{}
	for _, r := range runs {
		seen[r.ID] = r
	}
	if seen[b.ID].Status != StatusFailed || seen[b.ID].Error != "upload failed" {
		t.Fatalf("failed run = %+v", seen[b.ID])
	}
	if seen[a.ID].Status != StatusRunning {
		t.Fatalf("run a = %+v", seen[a.ID])
	}
}

func TestUnknownRun(t *testing.T) {
	j := openJournal(t)
	if _, err := j.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if err := j.Finish(context.Background(), "nope", formats.Result{}, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("finish: expected ErrNotFound, got %v", err)
	}
}
