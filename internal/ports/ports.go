package ports

import (
	"context"
	"time"

	"healthbrief/internal/domain"
)

// ArticleSource pulls fresh articles from the configured sites. Failures of
// a single site must not fail the whole fetch; they are reported alongside
// the articles that did arrive.
type ArticleSource interface {
	FetchAll(ctx context.Context) ([]domain.Article, []domain.SourceError)
}

// Summarizer turns a draft into a formatted newsletter body. An error means
// the caller should fall back to deterministic template rendering.
type Summarizer interface {
	Summarize(ctx context.Context, draft domain.Draft) (string, error)
}

// Mailer delivers a finished document. Implementations receive content that
// has already passed the delivery gate.
type Mailer interface {
	Send(ctx context.Context, subject, htmlBody string, recipients []string) error
}

// Archive persists generated newsletters keyed by generation date together
// with per-run statistics records.
type Archive interface {
	SaveNewsletter(ctx context.Context, date time.Time, doc domain.Document) error
	SaveStats(ctx context.Context, stats domain.RunStats) error
	RecentStats(ctx context.Context, limit int) ([]domain.RunStats, error)
}

// Scheduler triggers recurring runs. Start must not block the caller.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
