package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/transport/http/shared"
)

type runTasksCommand struct {
	asOf string
}

func (c *runTasksCommand) Info() commandInfo {
	return commandInfo{
		Name:    "run-tasks",
		Args:    "[--as-of <YYYY-MM-DD|RFC3339>]",
		Purpose: "execute due reminders and escalations (run from cron)",
		Aliases: []string{"auto-followup"},
	}
}

func (c *runTasksCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.asOf, "as-of", "", "treat this moment as now")
}

func (c *runTasksCommand) Init(args []string) error {
	if c.asOf != "" {
		if _, err := shared.ParseDate(c.asOf); err != nil {
			return errors.Errorf("--as-of: %v", err)
		}
	}
	return checkEmpty(args)
}

func (c *runTasksCommand) Run(ctx context.Context, env *environment) error {
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	asOf := env.clock.Now()
	if c.asOf != "" {
		asOf, _ = shared.ParseDate(c.asOf)
	}
	details, err := svc.Jobs.RunNow(ctx, erasure.JobFollowUpTick, func(ctx context.Context) (any, error) {
		return svc.Engine.RunDueTasks(ctx, asOf)
	})
	if err != nil {
		return errors.Trace(err)
	}
	report, _ := details.(erasure.TickReport)
	fmt.Fprintf(env.stdout, "as of %s: %d due, %d completed, %d failed\n",
		report.AsOf.Local().Format("2006-01-02 15:04"), report.Due, report.Completed, report.Failed)
	if len(report.Runs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(report.Runs))
	for _, run := range report.Runs {
		detail := run.Result
		if run.Error != "" {
			detail = run.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.TaskID, 10),
			strconv.FormatInt(run.RequestID, 10),
			string(run.Kind),
			string(run.Status),
			detail,
		})
	}
	writeTable(env.stdout, []string{"TASK", "REQUEST", "KIND", "STATUS", "DETAIL"}, rows)
	return nil
}
