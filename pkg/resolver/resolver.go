// Package resolver answers (query, language) pairs through the response
// cache, generating the source-language answer at most once per query and
// translating it at most once per target language.
package resolver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/campusdesk/campusdesk/pkg/cache"
	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/knowledge"
	"github.com/campusdesk/campusdesk/pkg/models"
)

// PromptForInput is returned for an empty query.
const PromptForInput = "Please enter a question."

// Generator produces source-language answers.
type Generator interface {
	Generate(ctx context.Context, query string, kb knowledge.Base) models.Answer
}

// Translator renders text into a target language.
type Translator interface {
	Translate(ctx context.Context, text string, target models.Language) models.Answer
}

// Options configures failure caching. The zero value caches failures
// until restart.
type Options struct {
	// FailurePolicy is config.FailureExpire, FailureSticky or FailureSkip.
	FailurePolicy string
	// FailureTTL bounds how long non-success entries are served under the
	// expire policy.
	FailureTTL time.Duration
	// Now overrides the clock.
	Now    func() time.Time
	Logger *logrus.Entry
}

// Result is a resolved answer.
type Result struct {
	Text     string          `json:"response"`
	Language models.Language `json:"language"`
	Outcome  models.Outcome  `json:"outcome"`
	// CacheHit is true when the full (query, language) pair was already
	// cached.
	CacheHit bool `json:"cache_hit"`
}

// Resolver runs the cache, generate, translate protocol.
type Resolver struct {
	cache      cache.Cache
	generator  Generator
	translator Translator
	kb         knowledge.Base
	policy     string
	ttl        time.Duration
	now        func() time.Time
	group      singleflight.Group
	logger     *logrus.Entry
}

// New creates a Resolver.
func New(c cache.Cache, g Generator, t Translator, kb knowledge.Base, opts Options) *Resolver {
	if kb == nil {
		kb = knowledge.Base{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	policy := opts.FailurePolicy
	if policy == "" {
		policy = config.FailureSticky
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "resolver")
	}
	return &Resolver{
		cache:      c,
		generator:  g,
		translator: t,
		kb:         kb,
		policy:     policy,
		ttl:        opts.FailureTTL,
		now:        now,
		logger:     logger,
	}
}

// Resolve answers query in lang. Unsupported languages resolve as the source
// language. It never fails; upstream problems surface as apology text or
// untranslated answers tagged with a non-success outcome.
func (r *Resolver) Resolve(ctx context.Context, query string, lang models.Language) Result {
	lang = lang.Normalize()
	if query == "" {
		return Result{Text: PromptForInput, Language: lang, Outcome: models.OutcomeSuccess}
	}

	fullKey := models.Key(query, lang)
	if e, ok := r.lookup(fullKey); ok {
		return Result{Text: e.Text, Language: lang, Outcome: e.Outcome, CacheHit: true}
	}

	source := r.source(ctx, query)
	if lang.IsSource() {
		return Result{Text: source.Text, Language: lang, Outcome: source.Outcome}
	}

	translated := r.translation(ctx, query, lang, source)
	return Result{Text: translated.Text, Language: lang, Outcome: translated.Outcome}
}

// source returns the cached source-language answer for query, generating
// and storing it on a miss. Concurrent misses share one generation.
func (r *Resolver) source(ctx context.Context, query string) models.Answer {
	key := models.Key(query, models.SourceLanguage)
	if e, ok := r.lookup(key); ok {
		return e.Answer()
	}

	v, _, shared := r.group.Do("source\x00"+query, func() (any, error) {
		if e, ok := r.lookup(key); ok {
			return e.Answer(), nil
		}
		ans := r.generator.Generate(context.WithoutCancel(ctx), query, r.kb)
		r.store(key, ans)
		return ans, nil
	})
	if shared {
		r.logger.WithField("language", models.SourceLanguage).Debug("joined in-flight generation")
	}
	return v.(models.Answer)
}

// translation returns the cached answer for (query, target), translating
// source and storing the result on a miss.
func (r *Resolver) translation(ctx context.Context, query string, target models.Language, source models.Answer) models.Answer {
	key := models.Key(query, target)
	v, _, _ := r.group.Do("translate\x00"+string(target)+"\x00"+query, func() (any, error) {
		if e, ok := r.lookup(key); ok {
			return e.Answer(), nil
		}
		tr := r.translator.Translate(context.WithoutCancel(ctx), source.Text, target)
		ans := models.Answer{Text: tr.Text, Outcome: models.Worst(source.Outcome, tr.Outcome)}
		r.store(key, ans)
		return ans, nil
	})
	return v.(models.Answer)
}

// lookup reads key, treating expired failure entries as misses.
func (r *Resolver) lookup(key models.CacheKey) (models.Entry, bool) {
	e, ok := r.cache.Get(key)
	if !ok {
		return models.Entry{}, false
	}
	if !e.Outcome.OK() && r.policy == config.FailureExpire && r.now().Sub(e.CreatedAt) >= r.ttl {
		r.logger.WithFields(logrus.Fields{
			"language": key.Language,
			"outcome":  e.Outcome,
		}).Debug("cached failure expired")
		return models.Entry{}, false
	}
	return e, true
}

func (r *Resolver) store(key models.CacheKey, ans models.Answer) {
	if !ans.Outcome.OK() && r.policy == config.FailureSkip {
		return
	}
	r.cache.Put(key, models.Entry{Text: ans.Text, Outcome: ans.Outcome, CreatedAt: r.now()})
}
