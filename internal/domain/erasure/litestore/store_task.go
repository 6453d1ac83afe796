package litestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

const taskColumns = `id, request_id, task_type, scheduled_at, executed_at, status, result, error`

func (s *Store) AddTask(ctx context.Context, t erasure.Task) (int64, error) {
	if t.Status == "" {
		t.Status = erasure.TaskPending
	}
	res, err := s.DB.ExecContext(ctx, `
    INSERT INTO workflow_tasks (request_id, task_type, scheduled_at, status)
    VALUES (?,?,?,?)
  `, t.RequestID, string(t.Kind), encodeTime(t.DueAt), string(t.Status))
	if err != nil {
		return 0, errors.Annotatef(err, "adding %s task", t.Kind)
	}
	return res.LastInsertId()
}

func (s *Store) GetPendingTasks(ctx context.Context, asOf time.Time) ([]erasure.Task, error) {
	return s.queryTasks(ctx, `
    SELECT `+taskColumns+` FROM workflow_tasks
    WHERE status = 'pending' AND executed_at IS NULL AND scheduled_at <= ?
    ORDER BY scheduled_at, id
  `, encodeTime(asOf))
}

func (s *Store) ListTasks(ctx context.Context, requestID int64) ([]erasure.Task, error) {
	return s.queryTasks(ctx, `
    SELECT `+taskColumns+` FROM workflow_tasks
    WHERE (? = 0 OR request_id = ?)
    ORDER BY scheduled_at, id
  `, requestID, requestID)
}

func (s *Store) ClaimTask(ctx context.Context, id int64, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE workflow_tasks SET executed_at = ?
    WHERE id = ? AND status = 'pending' AND executed_at IS NULL
  `, encodeTime(at), id)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "unclaimed task", id)
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status erasure.TaskStatus, result, errText string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE workflow_tasks
    SET status = ?, result = NULLIF(?, ''), error = NULLIF(?, ''), executed_at = ?
    WHERE id = ? AND status = 'pending'
  `, string(status), result, errText, encodeTime(at), id)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "pending task", id)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]erasure.Task, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []erasure.Task{}
	for rows.Next() {
		var (
			t               erasure.Task
			kind, status    string
			due             string
			executed        sql.NullString
			result, errText sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RequestID, &kind, &due, &executed, &status, &result, &errText); err != nil {
			return nil, errors.Trace(err)
		}
		t.Kind = erasure.TaskKind(kind)
		t.Status = erasure.TaskStatus(status)
		t.Result = nullString(result)
		t.Error = nullString(errText)
		if t.DueAt, err = decodeTime(due); err != nil {
			return nil, err
		}
		if t.ExecutedAt, err = decodeNullTime(executed); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
