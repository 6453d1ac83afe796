package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/LouziusMedia/LoeschMich/internal/platform/email"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

type testSMTPCommand struct{}

func (c *testSMTPCommand) Info() commandInfo {
	return commandInfo{Name: "test-smtp", Purpose: "check the SMTP connection and credentials"}
}

func (c *testSMTPCommand) SetFlags(f *gnuflag.FlagSet) {}

func (c *testSMTPCommand) Init(args []string) error { return checkEmpty(args) }

func (c *testSMTPCommand) Run(ctx context.Context, env *environment) error {
	mailer := email.New(email.SettingsFromConfig(env.cfg), env.clock)
	if err := mailer.TestConnection(ctx); err != nil {
		return errors.Annotatef(err, "smtp %s:%d", env.cfg.SMTPHost, env.cfg.SMTPPort)
	}
	fmt.Fprintf(env.stdout, "smtp %s:%d ok\n", env.cfg.SMTPHost, env.cfg.SMTPPort)
	return nil
}

type testOllamaCommand struct{}

func (c *testOllamaCommand) Info() commandInfo {
	return commandInfo{Name: "test-ollama", Purpose: "check that the language model server is reachable"}
}

func (c *testOllamaCommand) SetFlags(f *gnuflag.FlagSet) {}

func (c *testOllamaCommand) Init(args []string) error { return checkEmpty(args) }

func (c *testOllamaCommand) Run(ctx context.Context, env *environment) error {
	if !env.cfg.AIEnabled {
		fmt.Fprintln(env.stdout, "AI_ENABLED is false; keyword classification and templates are used")
	}
	client := ollama.New(env.cfg.OllamaHost, env.cfg.OllamaModel, env.cfg.OllamaTimeout)
	models, err := client.ListModels(ctx)
	if err != nil {
		return errors.Annotatef(err, "ollama at %s", env.cfg.OllamaHost)
	}
	fmt.Fprintf(env.stdout, "ollama at %s ok, %d models\n", env.cfg.OllamaHost, len(models))
	found := false
	for _, m := range models {
		if m == client.Model() || strings.TrimSuffix(m, ":latest") == client.Model() {
			found = true
		}
	}
	if !found {
		fmt.Fprintf(env.stdout, "model %q is not pulled; run: ollama pull %s\n", client.Model(), client.Model())
	}
	return nil
}
