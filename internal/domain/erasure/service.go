package erasure

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

const day = 24 * time.Hour

type Policy struct {
	ReminderDelay    time.Duration
	EscalationDelay  time.Duration
	ResponseDeadline time.Duration
	AutoSend         bool
	DefaultLanguage  string
}

func DefaultPolicy() Policy {
	return Policy{
		ReminderDelay:    14 * day,
		EscalationDelay:  30 * day,
		ResponseDeadline: 30 * day,
		DefaultLanguage:  "de",
	}
}

type Engine struct {
	store      StoreAPI
	composer   Composer
	classifier Classifier
	mailer     Mailer
	clock      clock.Clock
	policy     Policy
	metrics    Metrics
	locks      requestLocks
}

type Deps struct {
	Store      StoreAPI
	Composer   Composer
	Classifier Classifier
	Mailer     Mailer
	Clock      clock.Clock
	Metrics    Metrics
}

func NewEngine(deps Deps, policy Policy) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.NotValidf("nil store")
	}
	if deps.Composer == nil {
		return nil, errors.NotValidf("nil composer")
	}
	if deps.Classifier == nil {
		return nil, errors.NotValidf("nil classifier")
	}
	if deps.Mailer == nil {
		return nil, errors.NotValidf("nil mailer")
	}
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if policy.ReminderDelay <= 0 || policy.EscalationDelay <= 0 {
		return nil, errors.NotValidf("follow-up delays %v/%v", policy.ReminderDelay, policy.EscalationDelay)
	}
	if policy.DefaultLanguage == "" {
		policy.DefaultLanguage = "de"
	}
	return &Engine{
		store:      deps.Store,
		composer:   deps.Composer,
		classifier: deps.Classifier,
		mailer:     deps.Mailer,
		clock:      deps.Clock,
		policy:     policy,
		metrics:    deps.Metrics,
	}, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}
