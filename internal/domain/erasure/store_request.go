package erasure

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/juju/errors"
)

const requestColumns = `id, company_id, company_name, kind, status, language, subject, body, requester,
  created_at, sent_at, acknowledged_at, completed_at, deadline, reminder_count, last_reminder_at,
  response_text, notes`

func (s *Store) AddRequest(ctx context.Context, r Request) (int64, error) {
	sealed, err := SealRequester(s.Sealer, r.Requester)
	if err != nil {
		return 0, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	var id int64
	err = s.DB.QueryRow(ctx, `
    INSERT INTO gdpr_requests (company_id, company_name, kind, status, language, subject, body, requester, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, r.CompanyID, r.CompanyName, r.Kind, r.Status, r.Language, r.Subject, r.Body, sealed, r.CreatedAt).Scan(&id)
	if err != nil {
		return 0, errors.Annotate(err, "adding request")
	}
	return id, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (Request, error) {
	r, err := s.scanRequest(s.DB.QueryRow(ctx, `SELECT `+requestColumns+` FROM gdpr_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, errors.NotFoundf("request %d", id)
	}
	return r, errors.Trace(err)
}

// ListRequests returns all requests, or only those in status when it is set.
func (s *Store) ListRequests(ctx context.Context, status RequestStatus) ([]Request, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+` FROM gdpr_requests
    WHERE ($1 = '' OR status = $1)
    ORDER BY created_at DESC, id DESC
  `, string(status))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		r, err := s.scanRequest(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus, note string, at time.Time) error {
	if !status.Valid() {
		return errors.NotValidf("status %q", status)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	from, err := lockStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := applyStatus(ctx, tx, id, from, status, note, at); err != nil {
		return err
	}
	return errors.Trace(tx.Commit(ctx))
}

func (s *Store) MarkSent(ctx context.Context, id int64, rec SentRecord) error {
	if !rec.To.Valid() {
		return errors.NotValidf("status %q", rec.To)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	from, err := lockStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if from != rec.From {
		return errors.Annotatef(ErrAlreadySent, "request %d is %s", id, from)
	}
	if err := applyStatus(ctx, tx, id, from, rec.To, "", rec.At); err != nil {
		return err
	}
	if rec.Deadline != nil {
		if _, err := tx.Exec(ctx, `UPDATE gdpr_requests SET deadline = $1 WHERE id = $2`, *rec.Deadline, id); err != nil {
			return errors.Trace(err)
		}
	}
	for _, t := range rec.Tasks {
		if _, err := tx.Exec(ctx, `
      INSERT INTO workflow_tasks (request_id, task_type, scheduled_at, status)
      VALUES ($1,$2,$3,$4)
    `, id, t.Kind, t.DueAt, TaskPending); err != nil {
			return errors.Annotatef(err, "adding %s task", t.Kind)
		}
	}
	return errors.Trace(tx.Commit(ctx))
}

func lockStatus(ctx context.Context, tx pgx.Tx, id int64) (RequestStatus, error) {
	var from RequestStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM gdpr_requests WHERE id = $1 FOR UPDATE`, id).Scan(&from); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.NotFoundf("request %d", id)
		}
		return "", errors.Trace(err)
	}
	return from, nil
}

// applyStatus writes the new status, its lifecycle stamp and the event row.
func applyStatus(ctx context.Context, tx pgx.Tx, id int64, from, status RequestStatus, note string, at time.Time) error {
	query := `UPDATE gdpr_requests SET status = $1, notes = COALESCE(NULLIF($2, ''), notes)`
	args := []any{status, note, id}
	if column, ok := LifecycleTimestamps[status]; ok {
		query += `, ` + column + ` = COALESCE(` + column + `, $4)`
		args = append(args, at)
	}
	query += ` WHERE id = $3`
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return errors.Trace(err)
	}
	_, err := tx.Exec(ctx, `
    INSERT INTO request_events (request_id, from_status, to_status, note, created_at)
    VALUES ($1,$2,$3,$4,$5)
  `, id, from, status, note, at)
	return errors.Trace(err)
}

func (s *Store) RecordResponse(ctx context.Context, id int64, text, note string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE gdpr_requests SET response_text = $1, notes = $2 WHERE id = $3`, text, note, id)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("request %d", id)
	}
	return nil
}

func (s *Store) SetDeadline(ctx context.Context, id int64, deadline time.Time) error {
	tag, err := s.DB.Exec(ctx, `UPDATE gdpr_requests SET deadline = $1 WHERE id = $2`, deadline, id)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("request %d", id)
	}
	return nil
}

func (s *Store) IncrementReminder(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gdpr_requests
    SET reminder_count = reminder_count + 1, last_reminder_at = $1
    WHERE id = $2
  `, at, id)
	if err != nil {
		return errors.Trace(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundf("request %d", id)
	}
	return nil
}

func (s *Store) ListRequestEvents(ctx context.Context, id int64) ([]RequestEvent, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, request_id, from_status, to_status, note, created_at
    FROM request_events WHERE request_id = $1 ORDER BY id
  `, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []RequestEvent{}
	for rows.Next() {
		var ev RequestEvent
		if err := rows.Scan(&ev.ID, &ev.RequestID, &ev.FromStatus, &ev.ToStatus, &ev.Note, &ev.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) scanRequest(row pgx.Row) (Request, error) {
	var (
		r      Request
		sealed []byte
	)
	err := row.Scan(&r.ID, &r.CompanyID, &r.CompanyName, &r.Kind, &r.Status, &r.Language, &r.Subject, &r.Body, &sealed,
		&r.CreatedAt, &r.SentAt, &r.AcknowledgedAt, &r.CompletedAt, &r.Deadline, &r.ReminderCount, &r.LastReminderAt,
		&r.ResponseText, &r.Notes)
	if err != nil {
		return r, err
	}
	r.Requester, err = OpenRequester(s.Sealer, sealed)
	return r, err
}
