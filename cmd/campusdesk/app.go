package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/campusdesk/campusdesk/pkg/audit"
	"github.com/campusdesk/campusdesk/pkg/budget"
	"github.com/campusdesk/campusdesk/pkg/cache"
	"github.com/campusdesk/campusdesk/pkg/cache/lru"
	"github.com/campusdesk/campusdesk/pkg/cache/memory"
	"github.com/campusdesk/campusdesk/pkg/cache/sqlite"
	"github.com/campusdesk/campusdesk/pkg/config"
	"github.com/campusdesk/campusdesk/pkg/generator"
	"github.com/campusdesk/campusdesk/pkg/knowledge"
	"github.com/campusdesk/campusdesk/pkg/resolver"
	"github.com/campusdesk/campusdesk/pkg/router"
	"github.com/campusdesk/campusdesk/pkg/tracker"
	"github.com/campusdesk/campusdesk/pkg/translator"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

// loadConfig reads the config file, then applies env and flag overrides.
// With validate set, configs that cannot answer questions are rejected.
func loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if overrides.IsSet("listen") {
		cfg.Listen = overrides.GetString("listen")
	}
	if overrides.IsSet("db_path") {
		cfg.DBPath = overrides.GetString("db_path")
	}
	if overrides.IsSet("knowledge_path") {
		cfg.KnowledgePath = overrides.GetString("knowledge_path")
	}
	if overrides.IsSet("log_level") {
		cfg.LogLevel = overrides.GetString("log_level")
	}
	cfg.ApplyEnvDefaults(os.Getenv)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// app is the fully wired question-answering stack.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	tracker  *tracker.SQLiteTracker
	budget   *budget.Enforcer
	cache    cache.Cache
	stats    cache.Statter
	resolver *resolver.Resolver
	auditor  *audit.Logger
	closers  []func() error
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel)
	a := &app{cfg: cfg, log: log}

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	component := func(name string) *logrus.Entry {
		return a.log.WithField("component", name)
	}

	loader := &knowledge.Loader{Logger: component("knowledge")}
	if knowledge.NeedsS3(cfg.KnowledgePath) {
		client, err := knowledge.NewS3Client(ctx, "")
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		loader.S3 = client
	}
	kb, err := loader.Load(ctx, cfg.KnowledgePath)
	if err != nil {
		return err
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		return err
	}
	a.tracker = tr
	a.closers = append(a.closers, tr.Close)

	if cfg.Budget.Enabled {
		a.budget = budget.New(cfg.Budget.Policies, tr)
	}

	breaker := upstream.BreakerSettings{
		Failures: cfg.Breaker.Failures,
		Cooldown: cfg.Breaker.Cooldown,
	}

	routes, err := router.New(cfg.Generator).Resolve()
	if err != nil {
		return err
	}
	providers := make([]generator.Provider, 0, len(routes))
	for _, r := range routes {
		p, err := generator.NewProvider(ctx, r.Provider)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	gen := generator.New(providers, generator.Options{
		Timeout:  cfg.Generator.Timeout,
		Breaker:  breaker,
		Recorder: tr,
		Budget:   a.budget,
		Logger:   component("generator"),
	})

	backend, err := translator.NewBackend(cfg.Translator)
	if err != nil {
		return err
	}
	tl := translator.New(backend, translator.Options{
		Timeout:  cfg.Translator.Timeout,
		Breaker:  breaker,
		Recorder: tr,
		Budget:   a.budget,
		Logger:   component("translator"),
	})

	if err := a.openCache(component("cache")); err != nil {
		return err
	}

	a.resolver = resolver.New(a.cache, gen, tl, kb, resolver.Options{
		FailurePolicy: cfg.Cache.FailurePolicy,
		FailureTTL:    cfg.Cache.FailureTTL,
		Logger:        component("resolver"),
	})

	if cfg.Audit.Enabled {
		l, err := audit.New(cfg.Audit, component("audit"))
		if err != nil {
			return err
		}
		a.auditor = l
		a.closers = append(a.closers, l.Close)
	}

	a.log.WithFields(logrus.Fields{
		"providers":  gen.Providers(),
		"translator": backend.Name(),
		"cache":      cfg.Cache.Backend,
		"topics":     kb.Topics(),
	}).Info("campusdesk ready")
	return nil
}

func (a *app) openCache(log *logrus.Entry) error {
	switch a.cfg.Cache.Backend {
	case config.CacheLRU:
		c, err := lru.New(a.cfg.Cache.Size)
		if err != nil {
			return err
		}
		a.cache, a.stats = c, c
	case config.CacheSQLite:
		c, err := sqlite.New(a.cfg.DBPath, log)
		if err != nil {
			return err
		}
		a.cache, a.stats = c, c
		a.closers = append(a.closers, c.Close)
	default:
		c := memory.New()
		a.cache, a.stats = c, c
	}
	return nil
}

// Close releases everything opened by buildApp, most recent first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
