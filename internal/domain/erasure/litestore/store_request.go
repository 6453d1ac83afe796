package litestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

const requestColumns = `id, company_id, company_name, kind, status, language, subject, body, requester,
  created_at, sent_at, acknowledged_at, completed_at, deadline, reminder_count, last_reminder_at,
  response_text, notes`

func (s *Store) AddRequest(ctx context.Context, r erasure.Request) (int64, error) {
	sealed, err := erasure.SealRequester(s.Sealer, r.Requester)
	if err != nil {
		return 0, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.DB.ExecContext(ctx, `
    INSERT INTO gdpr_requests (company_id, company_name, kind, status, language, subject, body, requester, created_at)
    VALUES (?,?,?,?,?,?,?,?,?)
  `, r.CompanyID, r.CompanyName, string(r.Kind), string(r.Status), r.Language, r.Subject, r.Body, sealed, encodeTime(r.CreatedAt))
	if err != nil {
		return 0, errors.Annotate(err, "adding request")
	}
	return res.LastInsertId()
}

func (s *Store) GetRequest(ctx context.Context, id int64) (erasure.Request, error) {
	r, err := s.scanRequest(s.DB.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM gdpr_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return erasure.Request{}, errors.NotFoundf("request %d", id)
	}
	return r, errors.Trace(err)
}

func (s *Store) ListRequests(ctx context.Context, status erasure.RequestStatus) ([]erasure.Request, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT `+requestColumns+` FROM gdpr_requests
    WHERE (? = '' OR status = ?)
    ORDER BY created_at DESC, id DESC
  `, string(status), string(status))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []erasure.Request{}
	for rows.Next() {
		r, err := s.scanRequest(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id int64, status erasure.RequestStatus, note string, at time.Time) error {
	if !status.Valid() {
		return errors.NotValidf("status %q", status)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	from, err := currentStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := applyStatus(ctx, tx, id, from, status, note, at); err != nil {
		return err
	}
	return errors.Trace(tx.Commit())
}

func (s *Store) MarkSent(ctx context.Context, id int64, rec erasure.SentRecord) error {
	if !rec.To.Valid() {
		return errors.NotValidf("status %q", rec.To)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	from, err := currentStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if from != rec.From {
		return errors.Annotatef(erasure.ErrAlreadySent, "request %d is %s", id, from)
	}
	if err := applyStatus(ctx, tx, id, from, rec.To, "", rec.At); err != nil {
		return err
	}
	if rec.Deadline != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE gdpr_requests SET deadline = ? WHERE id = ?`, encodeTime(*rec.Deadline), id); err != nil {
			return errors.Trace(err)
		}
	}
	for _, t := range rec.Tasks {
		if _, err := tx.ExecContext(ctx, `
      INSERT INTO workflow_tasks (request_id, task_type, scheduled_at, status)
      VALUES (?,?,?,?)
    `, id, string(t.Kind), encodeTime(t.DueAt), string(erasure.TaskPending)); err != nil {
			return errors.Annotatef(err, "adding %s task", t.Kind)
		}
	}
	return errors.Trace(tx.Commit())
}

func currentStatus(ctx context.Context, tx *sql.Tx, id int64) (erasure.RequestStatus, error) {
	var from string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM gdpr_requests WHERE id = ?`, id).Scan(&from); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.NotFoundf("request %d", id)
		}
		return "", errors.Trace(err)
	}
	return erasure.RequestStatus(from), nil
}

// applyStatus writes the new status, its lifecycle stamp and the event row.
func applyStatus(ctx context.Context, tx *sql.Tx, id int64, from, status erasure.RequestStatus, note string, at time.Time) error {
	stamp := encodeTime(at)
	query := `UPDATE gdpr_requests SET status = ?, notes = COALESCE(NULLIF(?, ''), notes)`
	args := []any{string(status), note}
	if column, ok := erasure.LifecycleTimestamps[status]; ok {
		query += `, ` + column + ` = COALESCE(` + column + `, ?)`
		args = append(args, stamp)
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Trace(err)
	}
	_, err := tx.ExecContext(ctx, `
    INSERT INTO request_events (request_id, from_status, to_status, note, created_at)
    VALUES (?,?,?,?,?)
  `, id, string(from), string(status), note, stamp)
	return errors.Trace(err)
}

func (s *Store) RecordResponse(ctx context.Context, id int64, text, note string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE gdpr_requests SET response_text = ?, notes = ? WHERE id = ?`, text, note, id)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "request", id)
}

func (s *Store) SetDeadline(ctx context.Context, id int64, deadline time.Time) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE gdpr_requests SET deadline = ? WHERE id = ?`, encodeTime(deadline), id)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "request", id)
}

func (s *Store) IncrementReminder(ctx context.Context, id int64, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE gdpr_requests
    SET reminder_count = reminder_count + 1, last_reminder_at = ?
    WHERE id = ?
  `, encodeTime(at), id)
	if err != nil {
		return errors.Trace(err)
	}
	return affected(res, "request", id)
}

func (s *Store) ListRequestEvents(ctx context.Context, id int64) ([]erasure.RequestEvent, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, request_id, from_status, to_status, note, created_at
    FROM request_events WHERE request_id = ? ORDER BY id
  `, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	out := []erasure.RequestEvent{}
	for rows.Next() {
		var (
			ev       erasure.RequestEvent
			from, to string
			created  string
		)
		if err := rows.Scan(&ev.ID, &ev.RequestID, &from, &to, &ev.Note, &created); err != nil {
			return nil, errors.Trace(err)
		}
		ev.FromStatus = erasure.RequestStatus(from)
		ev.ToStatus = erasure.RequestStatus(to)
		if ev.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) scanRequest(row scanner) (erasure.Request, error) {
	var (
		r                                      erasure.Request
		kind, status, created                  string
		sealed                                 []byte
		sent, acked, completed, deadline, last sql.NullString
		response, notes                        sql.NullString
	)
	err := row.Scan(&r.ID, &r.CompanyID, &r.CompanyName, &kind, &status, &r.Language, &r.Subject, &r.Body, &sealed,
		&created, &sent, &acked, &completed, &deadline, &r.ReminderCount, &last, &response, &notes)
	if err != nil {
		return r, err
	}
	r.Kind = erasure.RequestKind(kind)
	r.Status = erasure.RequestStatus(status)
	r.ResponseText = nullString(response)
	r.Notes = nullString(notes)
	if r.CreatedAt, err = decodeTime(created); err != nil {
		return r, err
	}
	for _, f := range []struct {
		dst **time.Time
		raw sql.NullString
	}{
		{&r.SentAt, sent},
		{&r.AcknowledgedAt, acked},
		{&r.CompletedAt, completed},
		{&r.Deadline, deadline},
		{&r.LastReminderAt, last},
	} {
		if *f.dst, err = decodeNullTime(f.raw); err != nil {
			return r, err
		}
	}
	r.Requester, err = erasure.OpenRequester(s.Sealer, sealed)
	return r, err
}
