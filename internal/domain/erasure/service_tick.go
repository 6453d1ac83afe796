package erasure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/errors"
)

// RunDueTasks executes every pending task due at or before asOf. A task that
// fails, errors or panics is marked failed and the batch continues.
func (e *Engine) RunDueTasks(ctx context.Context, asOf time.Time) (TickReport, error) {
	report := TickReport{AsOf: asOf.UTC(), Runs: []TaskRun{}}
	tasks, err := e.store.GetPendingTasks(ctx, asOf)
	if err != nil {
		return report, errors.Annotate(err, "loading due tasks")
	}
	report.Due = len(tasks)
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return report, errors.Trace(err)
		}
		if err := e.store.ClaimTask(ctx, task.ID, e.now()); err != nil {
			if errors.Is(err, errors.NotFound) {
				// another tick took it
				report.Due--
				continue
			}
			slog.Warn("task claim failed", "taskId", task.ID, "err", err)
			run := TaskRun{TaskID: task.ID, RequestID: task.RequestID, Kind: task.Kind, Status: TaskFailed,
				Error: "claiming task: " + err.Error()}
			report.Failed++
			report.Runs = append(report.Runs, run)
			continue
		}
		run := e.runTask(ctx, task)
		if err := e.store.UpdateTaskStatus(ctx, task.ID, run.Status, run.Result, run.Error, e.now()); err != nil {
			// the claim stays, so the task is not run again
			slog.Warn("task status update failed", "taskId", task.ID, "err", err)
			run.Status = TaskFailed
			run.Error = joinErrors(run.Error, "recording task status: "+err.Error())
		}
		e.metrics.ObserveTask(task.Kind, run.Status)
		if run.Status == TaskCompleted {
			report.Completed++
		} else {
			report.Failed++
		}
		report.Runs = append(report.Runs, run)
	}
	return report, nil
}

func (e *Engine) ExecutePendingTasks(ctx context.Context, asOf time.Time) (int, error) {
	report, err := e.RunDueTasks(ctx, asOf)
	return report.Completed, err
}

func (e *Engine) runTask(ctx context.Context, task Task) (run TaskRun) {
	unlock := e.locks.lock(task.RequestID)
	defer unlock()
	run = TaskRun{TaskID: task.ID, RequestID: task.RequestID, Kind: task.Kind, Status: TaskFailed}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task panicked", "taskId", task.ID, "panic", r)
			run.Status = TaskFailed
			run.Result = ""
			run.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	var (
		outcome Outcome
		err     error
	)
	switch task.Kind {
	case TaskSendReminder:
		outcome, err = e.remind(ctx, task.RequestID)
	case TaskSendEscalation:
		outcome, err = e.escalate(ctx, task.RequestID)
	default:
		run.Error = fmt.Sprintf("unknown task kind %q", task.Kind)
		return run
	}
	if err != nil {
		run.Error = err.Error()
		return run
	}
	switch outcome {
	case OutcomeSucceeded:
		run.Status = TaskCompleted
		run.Result = "sent"
	case OutcomeSkipped:
		run.Status = TaskCompleted
		run.Result = e.skipReason(ctx, task.RequestID)
	default:
		run.Error = string(outcome)
	}
	return run
}

func (e *Engine) skipReason(ctx context.Context, requestID int64) string {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return "skipped"
	}
	return fmt.Sprintf("skipped: request %s", req.Status)
}

func joinErrors(first, second string) string {
	if first == "" {
		return second
	}
	return first + "; " + second
}
