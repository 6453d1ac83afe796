package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/app/services"
	"github.com/LouziusMedia/LoeschMich/internal/platform/config"
)

// command is one loeschmich subcommand.
type command interface {
	Info() commandInfo
	SetFlags(f *gnuflag.FlagSet)
	Init(args []string) error
	Run(ctx context.Context, env *environment) error
}

type commandInfo struct {
	Name    string
	Args    string
	Purpose string
	Aliases []string
}

// environment carries the process streams and configuration into a command.
// Services are opened lazily so commands that need no database never touch it.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
	clock  clock.Clock

	svc *services.Services
}

func (e *environment) services(ctx context.Context) (*services.Services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	svc, err := services.Open(ctx, e.cfg, e.clock)
	if err != nil {
		return nil, errors.Trace(err)
	}
	e.svc = svc
	return svc, nil
}

func (e *environment) close() {
	if e.svc != nil {
		e.svc.Close()
		e.svc = nil
	}
}

func commands() []command {
	return []command{
		&initCommand{},
		&addCompanyCommand{},
		&importCompaniesCommand{},
		&listCompaniesCommand{},
		&createRequestCommand{},
		&sendRequestCommand{},
		&statusCommand{},
		&processResponseCommand{},
		&followUpCommand{escalate: false},
		&followUpCommand{escalate: true},
		&runTasksCommand{},
		&exportLetterCommand{},
		&testSMTPCommand{},
		&testOllamaCommand{},
		&issueTokenCommand{},
		&serveCommand{},
	}
}

func lookup(name string) command {
	for _, c := range commands() {
		info := c.Info()
		if info.Name == name {
			return c
		}
		for _, alias := range info.Aliases {
			if alias == name {
				return c
			}
		}
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: loeschmich [--verbose] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	infos := make([]commandInfo, 0, len(commands()))
	for _, c := range commands() {
		infos = append(infos, c.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if len(info.Aliases) > 0 {
			name += " (" + strings.Join(info.Aliases, ", ") + ")"
		}
		rows = append(rows, []string{"  " + name, info.Purpose})
	}
	writeTable(w, nil, rows)
}

// run parses the global flags, dispatches to a subcommand and returns the
// process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return runWith(ctx, args, stdin, stdout, stderr, config.Load(), clock.WallClock)
}

func runWith(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, cfg config.Config, clk clock.Clock) int {
	global := gnuflag.NewFlagSet("loeschmich", gnuflag.ContinueOnError)
	global.SetOutput(stderr)
	var verbose bool
	global.BoolVar(&verbose, "verbose", false, "log debug output")
	global.BoolVar(&verbose, "v", false, "")
	if err := global.Parse(false, args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	rest := global.Args()
	if len(rest) == 0 || rest[0] == "help" {
		usage(stdout)
		if len(rest) == 0 {
			return 2
		}
		return 0
	}

	cmd := lookup(rest[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "loeschmich: unknown command %q\n", rest[0])
		usage(stderr)
		return 2
	}
	info := cmd.Info()
	flags := gnuflag.NewFlagSet(info.Name, gnuflag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.SetFlags(flags)
	if err := flags.Parse(true, rest[1:]); err != nil {
		return 2
	}
	if err := cmd.Init(flags.Args()); err != nil {
		fmt.Fprintf(stderr, "loeschmich %s: %v\n", info.Name, err)
		if info.Args != "" {
			fmt.Fprintf(stderr, "usage: loeschmich %s %s\n", info.Name, info.Args)
		}
		return 2
	}

	env := &environment{stdin: stdin, stdout: stdout, stderr: stderr, cfg: cfg, clock: clk}
	defer env.close()
	if err := cmd.Run(ctx, env); err != nil {
		fmt.Fprintf(stderr, "loeschmich %s: %v\n", info.Name, err)
		slog.Debug("command failed", "command", info.Name, "err", errors.ErrorStack(err))
		return 1
	}
	return 0
}

func checkEmpty(args []string) error {
	if len(args) > 0 {
		return errors.Errorf("unrecognized args: %q", args)
	}
	return nil
}
