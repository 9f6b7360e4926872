package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/cost"
	"github.com/sells-group/pubenrich/internal/extract"
	"github.com/sells-group/pubenrich/internal/fetcher"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/normalize"
	"github.com/sells-group/pubenrich/internal/resilience"
	"github.com/sells-group/pubenrich/internal/taxonomy"
)

// enrichEnv holds the clients an enrichment run needs.
type enrichEnv struct {
	Requester *extract.Requester
	Completer extract.Completer
	close     func() error
}

// Close releases provider resources.
func (e *enrichEnv) Close() {
	if e.close == nil {
		return
	}
	if err := e.close(); err != nil {
		zap.L().Warn("close completion client", zap.Error(err))
	}
}

// initEnrich builds the fetch → normalize → extract chain from config.
// Callers should defer env.Close().
func initEnrich(ctx context.Context, c *config.Config, profile model.Profile) (*enrichEnv, error) {
	completer, closeFn, err := extract.NewCompleter(ctx, c)
	if err != nil {
		return nil, err
	}

	maxChars := c.Normalize.MaxChars
	if maxChars <= 0 {
		maxChars = profile.Defaults().MaxExcerptChars
	}
	norm, err := normalize.New(c.Normalize.Strategy, maxChars)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	tax := taxonomy.Load(c.Taxonomy.ThemesPath, c.Taxonomy.TypesPath)
	if c.Taxonomy.MaxDistance > 0 {
		tax.MaxDistance = c.Taxonomy.MaxDistance
	}

	f := fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(c.Fetch, c.Resilience))

	req := extract.NewRequester(completer, f, norm, tax, extract.Options{
		Profile:      profile,
		Temperature:  c.LLM.Temperature,
		MaxTokens:    c.LLM.MaxTokens,
		SystemPrompt: c.LLM.SystemPrompt,
		ClampVocab:   c.LLM.ClampVocab,
		Retry:        resilience.RetryFromConfig(c.Resilience),
	}, resilience.BreakerFromConfig(completer.Name(), c.Resilience), cost.NewCalculator(c.Pricing))

	zap.L().Info("enrichment chain ready",
		zap.String("provider", completer.Name()),
		zap.String("profile", string(profile)),
		zap.String("normalize", c.Normalize.Strategy),
		zap.Int("themes", len(tax.Themes)),
		zap.Int("types", len(tax.Types)),
	)
	return &enrichEnv{Requester: req, Completer: completer, close: closeFn}, nil
}

// newRunID returns a sortable run identifier: UTC timestamp plus a short
// random suffix.
func newRunID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// resolveProfile prefers the flag value over config.
func resolveProfile(flag string, c *config.Config) (model.Profile, error) {
	if flag != "" {
		return model.ParseProfile(flag)
	}
	return model.ParseProfile(c.Enrich.Profile)
}
