package main

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/app/server"
)

type serveCommand struct {
	addr string
}

func (c *serveCommand) Info() commandInfo {
	return commandInfo{Name: "serve", Args: "[--addr :8080]", Purpose: "serve the operator HTTP API"}
}

func (c *serveCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (default APP_ADDR)")
}

func (c *serveCommand) Init(args []string) error { return checkEmpty(args) }

func (c *serveCommand) Run(ctx context.Context, env *environment) error {
	if c.addr != "" {
		env.cfg.Addr = c.addr
	}
	if err := env.cfg.ValidateServer(); err != nil {
		return errors.Trace(err)
	}
	svc, err := env.services(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	return server.Run(ctx, svc)
}
