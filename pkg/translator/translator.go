// Package translator renders source-language answers into a target
// language. A failed translation falls back to the untranslated text.
package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campusdesk/campusdesk/pkg/budget"
	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/generator"
	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

// Backend is a remote translation service.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text string, target models.Language) (string, error)
}

// Options configures a Translator. Zero values disable the optional parts.
type Options struct {
	Timeout  time.Duration
	Breaker  upstream.BreakerSettings
	Recorder generator.Recorder
	Budget   *budget.Enforcer
	Logger   *logrus.Entry
}

// Translator wraps a Backend with a timeout, breaker, budget and usage
// recording.
type Translator struct {
	backend  Backend
	breaker  *upstream.Breaker
	timeout  time.Duration
	recorder generator.Recorder
	budget   *budget.Enforcer
	logger   *logrus.Entry
}

// New creates a Translator over backend.
func New(backend Backend, opts Options) *Translator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "translator")
	}
	return &Translator{
		backend:  backend,
		breaker:  upstream.NewBreaker(backend.Name(), opts.Breaker, logger),
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		budget:   opts.Budget,
		logger:   logger,
	}
}

// NewBackend builds the configured translation backend.
func NewBackend(cfg config.TranslatorConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "google":
		return NewGoogle(cfg.URL, nil), nil
	case "openai":
		baseURL := cfg.URL
		if baseURL == DefaultGoogleURL {
			baseURL = ""
		}
		return NewLLM(cfg.APIKey, baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("translator: unknown backend %q", cfg.Backend)
	}
}

// Translate renders text in target. On any failure the original text is
// returned with OutcomeFailed.
func (t *Translator) Translate(ctx context.Context, text string, target models.Language) models.Answer {
	log := t.logger.WithFields(logrus.Fields{"provider": t.backend.Name(), "language": target})
	fallback := models.Answer{Text: text, Outcome: models.OutcomeFailed}

	if err := t.budget.Check(ctx, models.CallTranslation, t.backend.Name()); err != nil {
		if errors.Is(err, budget.ErrBudgetExceeded) {
			log.Warn("translation budget exhausted, returning untranslated text")
			return fallback
		}
		log.WithError(err).Warn("budget check failed, calling backend anyway")
	}

	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.breaker.Do(callCtx, func(ctx context.Context) (string, error) {
		return t.backend.Translate(ctx, text, target)
	})
	if !upstream.IsOpen(err) {
		t.record(target, err, start)
	}
	if err != nil {
		kind := upstream.KindGeneric
		if upstream.IsQuota(err) {
			kind = upstream.KindQuota
		}
		log.WithError(err).WithField("kind", kind.String()).Warn("translation failed, returning untranslated text")
		return fallback
	}
	return models.Answer{Text: out, Outcome: models.OutcomeSuccess}
}

func (t *Translator) record(target models.Language, err error, start time.Time) {
	if t.recorder == nil {
		return
	}
	outcome := models.OutcomeSuccess
	switch {
	case upstream.IsQuota(err):
		outcome = models.OutcomeQuotaExceeded
	case err != nil:
		outcome = models.OutcomeFailed
	}
	call := models.UpstreamCall{
		Kind:      models.CallTranslation,
		Provider:  t.backend.Name(),
		Language:  target,
		Outcome:   outcome,
		Latency:   time.Since(start),
		CreatedAt: start.UTC(),
	}
	if rerr := t.recorder.Record(context.Background(), call); rerr != nil {
		t.logger.WithError(rerr).Warn("failed to record upstream call")
	}
}
