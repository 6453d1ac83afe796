package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/juju/clock"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Run struct {
	ID          int64           `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Recorder persists job runs. Both database backends implement it.
type Recorder interface {
	Start(ctx context.Context, jobType string, at time.Time) (int64, error)
	Finish(ctx context.Context, id int64, status string, details []byte, at time.Time) error
	List(ctx context.Context, limit int) ([]Run, error)
}

type Service struct {
	recorder Recorder
	clock    clock.Clock
}

func New(recorder Recorder, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Service{recorder: recorder, clock: clk}
}

// RunNow runs fn synchronously and records it. Recording failures are
// logged; they never change the job's own result.
func (s *Service) RunNow(ctx context.Context, jobType string, fn func(context.Context) (any, error)) (any, error) {
	runID, err := s.recorder.Start(ctx, jobType, s.clock.Now().UTC())
	if err != nil {
		slog.Warn("job run insert failed", "jobType", jobType, "err", err)
	}

	details, err := fn(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "partial": details}
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "jobType", jobType, "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != 0 {
		if updErr := s.recorder.Finish(ctx, runID, status, detailsJSON, s.clock.Now().UTC()); updErr != nil {
			slog.Warn("job run update failed", "jobType", jobType, "runId", runID, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.recorder.List(ctx, limit)
}
