package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"healthbrief/internal/dedup"
	"healthbrief/internal/delivery"
	"healthbrief/internal/domain"
	"healthbrief/internal/newsletter"
	"healthbrief/internal/ports"
	"healthbrief/internal/relevance"
	"healthbrief/internal/validate"
)

// PipelineDeps wires all collaborators into the generation pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Filter     *relevance.Filter
	Summarizer ports.Summarizer
	Gate       *delivery.Gate
	Archive    ports.Archive
	Logger     *slog.Logger

	Meta          newsletter.Meta
	SectionCap    int
	NewsletterDir string
	Recipients    []string
}

// Pipeline implements the weekly newsletter workflow: fetch, dedupe, score,
// assemble, summarize, persist, deliver. A failed collaborator downgrades
// the run (fallback body, skipped delivery) instead of aborting it; every
// such downgrade is recorded in the run's statistics.
type Pipeline struct {
	source     ports.ArticleSource
	filter     *relevance.Filter
	summarizer ports.Summarizer
	gate       *delivery.Gate
	archive    ports.Archive
	logger     *slog.Logger

	meta          newsletter.Meta
	sectionCap    int
	newsletterDir string
	recipients    []string

	now func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	sectionCap := deps.SectionCap
	if sectionCap <= 0 {
		sectionCap = newsletter.DefaultSectionCap
	}
	return &Pipeline{
		source:        deps.Source,
		filter:        deps.Filter,
		summarizer:    deps.Summarizer,
		gate:          deps.Gate,
		archive:       deps.Archive,
		logger:        deps.Logger,
		meta:          deps.Meta,
		sectionCap:    sectionCap,
		newsletterDir: deps.NewsletterDir,
		recipients:    deps.Recipients,
		now:           time.Now,
	}
}

// Run executes one full generation cycle and returns its statistics.
func (p *Pipeline) Run(ctx context.Context) (domain.RunStats, error) {
	doc, stats := p.generate(ctx)

	if err := p.persist(ctx, doc, stats.RunAt); err != nil {
		p.warn("persist failed", "error", err)
		stats.Errors = append(stats.Errors, domain.SourceError{Source: "archive", Message: err.Error()})
	}

	p.deliver(ctx, doc, &stats)

	if p.archive != nil {
		if err := p.archive.SaveStats(ctx, stats); err != nil {
			p.warn("save stats failed", "error", err)
		}
	}

	p.info("run finished",
		"fetched", stats.Fetched,
		"after_dedup", stats.AfterDedup,
		"scored", stats.Scored,
		"included", stats.Included,
		"delivered", stats.Delivered,
		"errors", len(stats.Errors),
		"body_source", string(doc.Source))

	return stats, ctx.Err()
}

// Preview executes the generation steps without persisting or delivering
// anything.
func (p *Pipeline) Preview(ctx context.Context) (domain.Document, domain.RunStats, error) {
	doc, stats := p.generate(ctx)
	return doc, stats, ctx.Err()
}

func (p *Pipeline) generate(ctx context.Context) (domain.Document, domain.RunStats) {
	now := p.now().UTC()
	stats := domain.RunStats{RunAt: now}

	articles, sourceErrs := p.source.FetchAll(ctx)
	stats.Fetched = len(articles)
	stats.Errors = append(stats.Errors, sourceErrs...)

	unique := dedup.Dedup(articles)
	stats.AfterDedup = len(unique)

	scored := p.filter.Score(unique)
	stats.Scored = len(scored)

	draft := newsletter.Assemble(scored, p.sectionCap)
	stats.Included = draft.Total()

	body, source := p.summarize(ctx, draft, now)
	full := newsletter.Compose(p.meta, body, now, stats.Included, stats.Fetched)

	return domain.Document{Body: full, Source: source}, stats
}

// summarize prefers the LLM body and falls back to deterministic rendering
// when the draft is empty, the summarizer is absent, or the call fails.
func (p *Pipeline) summarize(ctx context.Context, draft domain.Draft, now time.Time) (string, domain.DocumentSource) {
	if p.summarizer == nil || draft.Total() == 0 {
		return newsletter.RenderFallback(draft, now), domain.SourceFallback
	}

	body, err := p.summarizer.Summarize(ctx, draft)
	if err != nil {
		p.warn("summarizer failed, using fallback rendering", "error", err)
		return newsletter.RenderFallback(draft, now), domain.SourceFallback
	}
	return body, domain.SourceLLM
}

func (p *Pipeline) persist(ctx context.Context, doc domain.Document, runAt time.Time) error {
	if p.archive != nil {
		if err := p.archive.SaveNewsletter(ctx, runAt, doc); err != nil {
			return fmt.Errorf("archive newsletter: %w", err)
		}
	}

	if p.newsletterDir == "" {
		return nil
	}

	name, err := validate.Filename(
		fmt.Sprintf("healthcare_newsletter_%s.md", runAt.Format("20060102")),
		[]string{".md"},
	)
	if err != nil {
		return fmt.Errorf("newsletter filename: %w", err)
	}

	if err := os.MkdirAll(p.newsletterDir, 0o750); err != nil {
		return fmt.Errorf("create newsletter dir: %w", err)
	}
	path := filepath.Join(p.newsletterDir, name)
	if err := os.WriteFile(path, []byte(doc.Body), 0o640); err != nil {
		return fmt.Errorf("write newsletter file: %w", err)
	}

	p.info("newsletter saved", "path", path)
	return nil
}

// deliver sends the document when delivery is configured. A failed send is
// recorded, not escalated: the newsletter is already archived and a later
// manual send remains possible.
func (p *Pipeline) deliver(ctx context.Context, doc domain.Document, stats *domain.RunStats) {
	if p.gate == nil || len(p.recipients) == 0 {
		p.info("delivery not configured, skipping send")
		return
	}

	subject := fmt.Sprintf("%s - %s", p.subjectName(), stats.RunAt.Format("January 2, 2006"))
	if err := p.gate.Deliver(ctx, doc, subject, p.recipients); err != nil {
		p.warn("delivery failed", "error", err)
		stats.Errors = append(stats.Errors, domain.SourceError{Source: "delivery", Message: err.Error()})
		return
	}
	stats.Delivered = true
}

func (p *Pipeline) subjectName() string {
	if p.meta.Name != "" {
		return p.meta.Name
	}
	return "Healthcare Weekly Newsletter"
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
