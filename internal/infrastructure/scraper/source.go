package scraper

import (
	"context"
	"log/slog"

	"healthbrief/internal/config"
	"healthbrief/internal/domain"
	"healthbrief/internal/ports"
	"healthbrief/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner
// strategies. A failed site never aborts the run: its error is reported
// alongside whatever the other sites produced, and partial results from a
// rate-limited scan are kept.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchAll iterates over configured sites in their configured order and
// executes each site's scanner.
func (s *StrategySource) FetchAll(ctx context.Context) ([]domain.Article, []domain.SourceError) {
	var (
		aggregated []domain.Article
		failures   []domain.SourceError
	)

	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scraper)
		if err != nil {
			failures = append(failures, domain.SourceError{Source: site.Name, Message: err.Error()})
			s.warn("scanner missing", "site", site.Name, "scraper", site.Scraper)
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{SiteName: site.Name, URL: site.URL})
		for i := range results {
			if results[i].Source == "" {
				results[i].Source = site.Name
			}
		}
		aggregated = append(aggregated, results...)

		if err != nil {
			failures = append(failures, domain.SourceError{Source: site.Name, Message: err.Error()})
			s.warn("site fetch failed", "site", site.Name, "collected", len(results), "error", err)
			continue
		}
		s.debug("site fetched", "site", site.Name, "count", len(results))
	}

	s.debug("fetch done", "total_articles", len(aggregated), "failed_sites", len(failures))
	return aggregated, failures
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
