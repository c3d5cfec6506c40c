// Package journal records the import runs of the HTTP service: who started
// them, the pools they created and the warnings they produced.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/v-hunt/trunity-importer/internal/formats"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

var ErrNotFound = errors.New("run not found")

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Run struct {
	ID         string             `json:"id"`
	Format     string             `json:"format"`
	Archive    string             `json:"archive"`
	BookID     int                `json:"book_id"`
	Operator   string             `json:"operator,omitempty"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Pools      []formats.Pool     `json:"pools"`
	Warnings   []warnings.Warning `json:"warnings,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal { return &Journal{db: db} }

// Start records a running import and returns it with a fresh id.
func (j *Journal) Start(ctx context.Context, format, archive string, bookID int, operator string) (Run, error) {
	r := Run{
		ID:        uuid.NewString(),
		Format:    format,
		Archive:   archive,
		BookID:    bookID,
		Operator:  operator,
		Status:    StatusRunning,
		Pools:     []formats.Pool{},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := j.db.ExecContext(ctx, `INSERT INTO import_runs (id,format,archive,book_id,operator,status,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.Format, r.Archive, r.BookID, r.Operator, r.Status, r.CreatedAt.Unix())
	if err != nil {
		return Run{}, fmt.Errorf("journal start: %w", err)
	}
	return r, nil
}

// Finish stores the outcome of run id. A non-nil runErr marks it failed;
// the pools and warnings of res are kept either way.
func (j *Journal) Finish(ctx context.Context, id string, res formats.Result, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	pools := res.Pools
	if pools == nil {
		pools = []formats.Pool{}
	}
	pj, err := json.Marshal(pools)
	if err != nil {
		return err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	out, err := tx.ExecContext(ctx, `UPDATE import_runs SET status=$1, error=$2, pools_json=$3, finished_at=$4 WHERE id=$5`,
		status, msg, string(pj), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	for i, w := range res.Warnings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO import_warnings (run_id,seq,item_id,message) VALUES ($1,$2,$3,$4)`,
			id, i, w.ItemID, w.Message); err != nil {
			return fmt.Errorf("journal warning: %w", err)
		}
	}
	return tx.Commit()
}

func (j *Journal) Get(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT id,format,archive,book_id,operator,status,error,pools_json,created_at,finished_at
		FROM import_runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}

	rows, err := j.db.QueryContext(ctx, `SELECT item_id,message FROM import_warnings WHERE run_id=$1 ORDER BY seq`, id)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var w warnings.Warning
		if err := rows.Scan(&w.ItemID, &w.Message); err != nil {
			return Run{}, err
		}
		r.Warnings = append(r.Warnings, w)
	}
	return r, rows.Err()
}

// List returns the latest runs first, without their warnings.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `SELECT id,format,archive,book_id,operator,status,error,pools_json,created_at,finished_at
		FROM import_runs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		poolsRaw string
		created  int64
		finished sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.Format, &r.Archive, &r.BookID, &r.Operator, &r.Status, &r.Error, &poolsRaw, &created, &finished); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(poolsRaw), &r.Pools); err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		r.FinishedAt = &t
	}
	return r, nil
}
