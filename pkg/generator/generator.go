// Package generator answers a query from the knowledge base through a chain
// of remote LLM providers. It never fails: every error collapses into one of
// two fixed apology strings.
package generator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campusdesk/campusdesk/pkg/budget"
	"github.com/campusdesk/campusdesk/pkg/knowledge"
	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

const (
	// QuotaApology is returned when every attempted provider was out of quota.
	QuotaApology = "Sorry, the API quota is exceeded. Try again later."
	// GenericApology is returned for any other failure.
	GenericApology = "Sorry, I'm having trouble connecting right now."
)

// Recorder stores upstream call records.
type Recorder interface {
	Record(ctx context.Context, call models.UpstreamCall) error
}

// Options configures a Generator. Zero values disable the optional parts.
type Options struct {
	Timeout  time.Duration
	Breaker  upstream.BreakerSettings
	Recorder Recorder
	Budget   *budget.Enforcer
	Logger   *logrus.Entry
}

type route struct {
	provider Provider
	breaker  *upstream.Breaker
}

// Generator tries its providers in order until one answers.
type Generator struct {
	routes   []route
	timeout  time.Duration
	recorder Recorder
	budget   *budget.Enforcer
	logger   *logrus.Entry
}

// New creates a Generator over providers, tried in the given order.
func New(providers []Provider, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "generator")
	}
	g := &Generator{
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		budget:   opts.Budget,
		logger:   logger,
	}
	for _, p := range providers {
		g.routes = append(g.routes, route{
			provider: p,
			breaker:  upstream.NewBreaker(p.Name(), opts.Breaker, logger),
		})
	}
	return g
}

// Generate answers query using only kb. The returned Answer carries the
// model text on success or an apology tagged with the failure outcome.
func (g *Generator) Generate(ctx context.Context, query string, kb knowledge.Base) models.Answer {
	prompt := BuildPrompt(query, kb)

	attempted, quota := 0, 0
	for _, r := range g.routes {
		name := r.provider.Name()
		log := g.logger.WithField("provider", name)
		attempted++

		if err := g.budget.Check(ctx, models.CallGeneration, name); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				log.Warn("generation budget exhausted, skipping provider")
				quota++
				continue
			}
			log.WithError(err).Warn("budget check failed, calling provider anyway")
		}

		text, err := g.call(ctx, r, prompt)
		if err == nil {
			return models.Answer{Text: text, Outcome: models.OutcomeSuccess}
		}

		kind := upstream.KindGeneric
		if upstream.IsQuota(err) {
			kind = upstream.KindQuota
			quota++
		}
		log.WithError(err).WithField("kind", kind.String()).Warn("generation failed")
	}

	if attempted > 0 && quota == attempted {
		return models.Answer{Text: QuotaApology, Outcome: models.OutcomeQuotaExceeded}
	}
	return models.Answer{Text: GenericApology, Outcome: models.OutcomeFailed}
}

// call runs one provider attempt under the per-call timeout and records it.
func (g *Generator) call(ctx context.Context, r route, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.breaker.Do(ctx, func(ctx context.Context) (string, error) {
		return r.provider.Complete(ctx, prompt)
	})
	if upstream.IsOpen(err) {
		return "", err
	}

	outcome := models.OutcomeSuccess
	switch {
	case upstream.IsQuota(err):
		outcome = models.OutcomeQuotaExceeded
	case err != nil:
		outcome = models.OutcomeFailed
	}
	g.record(models.UpstreamCall{
		Kind:      models.CallGeneration,
		Provider:  r.provider.Name(),
		Language:  models.SourceLanguage,
		Outcome:   outcome,
		Latency:   time.Since(start),
		CreatedAt: start.UTC(),
	})
	return text, err
}

func (g *Generator) record(call models.UpstreamCall) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.Record(context.Background(), call); err != nil {
		g.logger.WithError(err).Warn("failed to record upstream call")
	}
}

// Providers returns the provider names in the order they are tried.
func (g *Generator) Providers() []string {
	names := make([]string, len(g.routes))
	for i, r := range g.routes {
		names[i] = r.provider.Name()
	}
	return names
}
