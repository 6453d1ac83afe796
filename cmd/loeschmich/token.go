package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/auth"
)

type issueTokenCommand struct {
	operator string
	scopes   string
	ttl      time.Duration
}

func (c *issueTokenCommand) Info() commandInfo {
	return commandInfo{Name: "issue-token", Args: "--operator <name> [--scopes read,write] [--ttl 720h]", Purpose: "mint a bearer token for the operator API"}
}

func (c *issueTokenCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.operator, "operator", "", "operator name recorded in access logs")
	f.StringVar(&c.scopes, "scopes", auth.ScopeRead+","+auth.ScopeWrite, "comma separated scopes")
	f.DurationVar(&c.ttl, "ttl", 30*24*time.Hour, "token lifetime")
}

func (c *issueTokenCommand) Init(args []string) error {
	if strings.TrimSpace(c.operator) == "" {
		return errors.New("--operator is required")
	}
	if c.ttl <= 0 {
		return errors.New("--ttl must be positive")
	}
	return checkEmpty(args)
}

func (c *issueTokenCommand) Run(ctx context.Context, env *environment) error {
	if env.cfg.OperatorTokenSecret == "" {
		return errors.New("OPERATOR_TOKEN_SECRET is not set")
	}
	var scopes []string
	for _, s := range strings.Split(c.scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	token, err := auth.GenerateToken(env.cfg.OperatorTokenSecret, auth.Claims{Operator: c.operator, Scopes: scopes}, c.ttl, env.clock.Now())
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintln(env.stdout, token)
	return nil
}
