package erasure

import (
	"context"
	"time"

	"github.com/juju/errors"
)

const taskColumns = `id, request_id, task_type, scheduled_at, executed_at, status, result, error`

func (s *Store) AddTask(ctx context.Context, t Task) (int64, error) {
	if t.Status == "" {
		t.Status = TaskPending
	}
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO workflow_tasks (request_id, task_type, scheduled_at, status)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, t.RequestID, t.Kind, t.DueAt, t.Status).Scan(&id)
	if err != nil {
		return 0, errors.Annotatef(err, "adding %s task", t.Kind)
	}
	return id, nil
}

func (s *Store) GetPendingTasks(ctx context.Context, asOf time.Time) ([]Task, error) {
	return s.queryTasks(ctx, `
    SELECT `+taskColumns+` FROM workflow_tasks
    WHERE status = 'pending' AND executed_at IS NULL AND scheduled_at <= $1
    ORDER BY scheduled_at, id
  `, asOf)
}

// ListTasks returns the tasks of one request, or all tasks for requestID 0.
func (s *Store) ListTasks(ctx context.Context, requestID int64) ([]Task, error) {
	return s.queryTasks(ctx, `
    SELECT `+taskColumns+` FROM workflow_tasks
    WHERE ($1 = 0 OR request_id = $1)
    ORDER BY scheduled_at, id
  `, requestID)
}

func (s *Store) ClaimTask(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workflow_tasks SET executed_at = $1
    WHERE id = $2 AND status = 'pending' AND executed_at IS NULL
  `, at, id)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("unclaimed task %d", id)
	}
	return nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status TaskStatus, result, errText string, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workflow_tasks
    SET status = $1, result = NULLIF($2, ''), error = NULLIF($3, ''), executed_at = $4
    WHERE id = $5 AND status = 'pending'
  `, status, result, errText, at, id)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("pending task %d", id)
	}
	return nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.RequestID, &t.Kind, &t.DueAt, &t.ExecutedAt, &t.Status, &t.Result, &t.Error); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
