// Package services builds the workflow engine and its collaborators from
// configuration. The CLI and the HTTP server share it.
package services

import (
	"context"
	"log/slog"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/classify"
	"github.com/LouziusMedia/LoeschMich/internal/compose"
	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure/litestore"
	"github.com/LouziusMedia/LoeschMich/internal/letter"
	"github.com/LouziusMedia/LoeschMich/internal/platform/config"
	"github.com/LouziusMedia/LoeschMich/internal/platform/crypto"
	"github.com/LouziusMedia/LoeschMich/internal/platform/db"
	"github.com/LouziusMedia/LoeschMich/internal/platform/email"
	"github.com/LouziusMedia/LoeschMich/internal/platform/jobs"
	"github.com/LouziusMedia/LoeschMich/internal/platform/metrics"
	"github.com/LouziusMedia/LoeschMich/internal/platform/ollama"
)

type Services struct {
	Config  config.Config
	Clock   clock.Clock
	Store   erasure.StoreAPI
	Engine  *erasure.Engine
	Jobs    *jobs.Service
	Mailer  *email.Mailer
	LLM     *ollama.Client
	Metrics *metrics.Collector

	closers []func()
}

// Open connects the configured database, applies migrations and wires the
// engine. The caller must Close the result.
func Open(ctx context.Context, cfg config.Config, clk clock.Clock) (*Services, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	sealer, err := crypto.New(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Annotate(err, "ENCRYPTION_KEY")
	}
	if !sealer.Configured() {
		slog.Warn("ENCRYPTION_KEY not set; requester data is stored unencrypted")
	}

	s := &Services{Config: cfg, Clock: clk, Metrics: metrics.New()}
	var recorder jobs.Recorder
	if cfg.UsePostgres() {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, errors.Annotate(err, "connecting postgres")
		}
		s.closers = append(s.closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, errors.Annotate(err, "migrating postgres")
		}
		s.Store = erasure.NewStore(pool, sealer)
		recorder = jobs.PGRecorder{DB: pool}
	} else {
		handle, err := db.OpenSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, errors.Trace(err)
		}
		s.closers = append(s.closers, func() { _ = handle.Close() })
		if err := db.MigrateSQLite(ctx, handle); err != nil {
			s.Close()
			return nil, errors.Annotate(err, "migrating sqlite")
		}
		s.Store = litestore.New(handle, sealer)
		recorder = jobs.SQLiteRecorder{DB: handle}
	}

	s.Mailer = email.New(email.SettingsFromConfig(cfg), clk)
	s.Jobs = jobs.New(recorder, clk)

	var (
		generator compose.Generator
		model     classify.Model
	)
	if cfg.AIEnabled {
		s.LLM = ollama.New(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaTimeout)
		generator = s.LLM
		model = s.LLM
	}

	s.Engine, err = erasure.NewEngine(erasure.Deps{
		Store:      s.Store,
		Composer:   compose.New(clk, generator),
		Classifier: classify.New(model),
		Mailer:     s.Mailer,
		Clock:      clk,
		Metrics:    s.Metrics,
	}, Policy(cfg))
	if err != nil {
		s.Close()
		return nil, errors.Trace(err)
	}
	return s, nil
}

func Policy(cfg config.Config) erasure.Policy {
	return erasure.Policy{
		ReminderDelay:    cfg.ReminderDelay(),
		EscalationDelay:  cfg.EscalationDelay(),
		ResponseDeadline: cfg.ResponseDeadline(),
		AutoSend:         cfg.AutoSendEnabled,
		DefaultLanguage:  cfg.DefaultLanguage,
	}
}

func (s *Services) Sender() letter.Sender {
	return letter.Sender{Name: s.Config.SenderName, Email: s.Config.SenderEmail}
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
