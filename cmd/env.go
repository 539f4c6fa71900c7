package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/metrics"
	"github.com/sells-group/enrich-cli/internal/notionstore"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/pkg/apify"
	"github.com/sells-group/enrich-cli/pkg/notion"
)

// enrichEnv holds the clients, stores and the enricher needed by the
// run/batch/serve commands.
type enrichEnv struct {
	Notion   notion.Client
	Gateway  *notionstore.Gateway
	Writer   *notionstore.Writer
	Cache    *notionstore.PeopleCache
	Registry *provider.Registry
	Breakers *resilience.ServiceBreakers
	Metrics  *metrics.Exporter
	Store    store.Store // nil when history is disabled
	Enricher *enrich.Enricher
}

// Close releases resources held by the environment.
func (e *enrichEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured attempt history. It returns (nil, nil)
// when the driver is "none".
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if st == nil {
		zap.L().Debug("attempt history disabled")
	}
	return st, nil
}

// newNotionClient builds the rate-limited Notion client shared by a command.
func newNotionClient() notion.Client {
	return notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
}

// initEnrich validates the config for mode and wires the enricher.
// Callers should defer env.Close().
func initEnrich(ctx context.Context, mode string) (*enrichEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	exporter := metrics.New(metrics.DefaultConfig())
	breakers := resilience.NewServiceBreakers(cfg.CircuitBreaker(), func(service string, from, to resilience.CircuitState) {
		zap.L().Warn("provider circuit changed",
			zap.String("provider", service),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		exporter.ObserveCircuit(service, from, to)
	})

	reg := provider.NewDefaultRegistry(cfg.ProviderSettings())
	notionClient := newNotionClient()
	cache := notionstore.NewPeopleCache(time.Duration(cfg.Notion.CacheTTLSecs) * time.Second)
	dbs := notionstore.Databases{People: cfg.Notion.PeopleDB, Enrichment: cfg.Notion.EnrichmentDB}
	gw := notionstore.NewGateway(notionClient, dbs, reg, cache)
	w := notionstore.NewWriter(notionClient, dbs, reg, cache)

	apifyClient := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))

	opts := []enrich.Option{
		enrich.WithStalenessThreshold(cfg.StalenessThreshold()),
		enrich.WithStatusRetry(cfg.StatusRetry()),
		enrich.WithBreakers(breakers),
		enrich.WithMetrics(exporter),
	}
	if st != nil {
		opts = append(opts, enrich.WithHistory(st))
	}

	enabled := make([]string, 0, 2)
	for _, d := range reg.Enabled() {
		enabled = append(enabled, string(d.ID))
	}
	zap.L().Info("enricher ready",
		zap.Strings("providers", enabled),
		zap.Duration("staleness", cfg.StalenessThreshold()),
		zap.Bool("history", st != nil),
	)

	return &enrichEnv{
		Notion:   notionClient,
		Gateway:  gw,
		Writer:   w,
		Cache:    cache,
		Registry: reg,
		Breakers: breakers,
		Metrics:  exporter,
		Store:    st,
		Enricher: enrich.New(gw, w, apifyClient, reg, opts...),
	}, nil
}
