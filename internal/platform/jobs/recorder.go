package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/platform/querier"
)

type PGRecorder struct {
	DB querier.Querier
}

func (r PGRecorder) Start(ctx context.Context, jobType string, at time.Time) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status, started_at)
    VALUES ($1,$2,$3)
    RETURNING id
  `, jobType, StatusRunning, at).Scan(&id)
	return id, errors.Trace(err)
}

func (r PGRecorder) Finish(ctx context.Context, id int64, status string, details []byte, at time.Time) error {
	_, err := r.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = $3
    WHERE id = $4
  `, status, details, at, id)
	return errors.Trace(err)
}

func (r PGRecorder) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.DB.Query(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs ORDER BY started_at DESC, id DESC LIMIT $1
  `, limit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		var run Run
		var details []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, errors.Trace(err)
		}
		run.Details = json.RawMessage(details)
		out = append(out, run)
	}
	return out, rows.Err()
}

const sqliteTime = "2006-01-02T15:04:05.000000000Z"

type SQLiteRecorder struct {
	DB *sql.DB
}

func (r SQLiteRecorder) Start(ctx context.Context, jobType string, at time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO job_runs (job_type, status, started_at) VALUES (?,?,?)`,
		jobType, StatusRunning, at.UTC().Format(sqliteTime))
	if err != nil {
		return 0, errors.Trace(err)
	}
	return res.LastInsertId()
}

func (r SQLiteRecorder) Finish(ctx context.Context, id int64, status string, details []byte, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE job_runs SET status = ?, details_json = ?, completed_at = ? WHERE id = ?`,
		status, string(details), at.UTC().Format(sqliteTime), id)
	return errors.Trace(err)
}

func (r SQLiteRecorder) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.DB.QueryContext(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs ORDER BY started_at DESC, id DESC LIMIT ?
  `, limit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		var (
			run       Run
			details   string
			started   string
			completed sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &started, &completed); err != nil {
			return nil, errors.Trace(err)
		}
		run.Details = json.RawMessage(details)
		if run.StartedAt, err = time.Parse(sqliteTime, started); err != nil {
			return nil, errors.Trace(err)
		}
		if completed.Valid {
			t, err := time.Parse(sqliteTime, completed.String)
			if err != nil {
				return nil, errors.Trace(err)
			}
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
