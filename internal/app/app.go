package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"healthbrief/internal/config"
	"healthbrief/internal/delivery"
	"healthbrief/internal/domain"
	"healthbrief/internal/infrastructure/email"
	"healthbrief/internal/infrastructure/llm"
	"healthbrief/internal/infrastructure/scheduler"
	"healthbrief/internal/infrastructure/scraper"
	"healthbrief/internal/infrastructure/storage"
	"healthbrief/internal/logging"
	"healthbrief/internal/newsletter"
	"healthbrief/internal/ports"
	"healthbrief/internal/ratelimit"
	"healthbrief/internal/relevance"
	"healthbrief/internal/scanner"
	"healthbrief/internal/usecase"
)

// Application wires configuration to collaborators and owns their
// lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	archive  *storage.SQLiteArchive
	weekly   *scheduler.WeeklyScheduler
	gate     *delivery.Gate
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	limiter := ratelimit.New()

	registry := scanner.NewRegistry()
	registry.Register(scraper.NewHTMLScraper(scraper.Hospitalogy(), nil, limiter, cfg.RateLimits.ScrapePerHour))
	registry.Register(scraper.NewHTMLScraper(scraper.HealthcareITNews(), nil, limiter, cfg.RateLimits.ScrapePerHour))
	registry.Register(scraper.NewHTMLScraper(scraper.FierceHealthcare(), nil, limiter, cfg.RateLimits.ScrapePerHour))
	registry.Register(scraper.NewRSSScanner(nil, limiter, cfg.RateLimits.ScrapePerHour))

	source := scraper.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	var summarizer ports.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = llm.NewOpenAIClient(cfg.OpenAI)
	} else {
		baseLogger.Info("no OpenAI key configured, newsletters use fallback rendering")
	}

	var gate *delivery.Gate
	if cfg.Email.Configured() {
		mailer := email.NewSMTPMailer(cfg.Email, baseLogger.With("component", "mailer"))
		gate = delivery.NewGate(mailer, limiter, delivery.Config{
			MaxRecipients: cfg.Email.MaxRecipients,
			EmailLimit:    cfg.RateLimits.EmailPerHour,
		}, baseLogger.With("component", "delivery"))
	} else {
		baseLogger.Info("email not configured, delivery disabled")
	}

	archive, err := storage.Open(cfg.Archive.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	filter := relevance.NewFilter(cfg.Keywords.Payer, cfg.Keywords.Innovation)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Filter:     filter,
		Summarizer: summarizer,
		Gate:       gate,
		Archive:    archive,
		Logger:     baseLogger.With("component", "pipeline"),
		Meta: newsletter.Meta{
			Name:         cfg.Newsletter.Name,
			Organization: cfg.Newsletter.Organization,
		},
		SectionCap:    cfg.Newsletter.SectionCap,
		NewsletterDir: cfg.Archive.NewsletterDir,
		Recipients:    cfg.Email.To,
	})

	hour, minute := cfg.Scheduling.ClockTime()
	weekly := scheduler.NewWeeklyScheduler(
		cfg.Scheduling.Weekday(), hour, minute,
		cfg.Scheduling.Location(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		archive:  archive,
		weekly:   weekly,
		gate:     gate,
	}, nil
}

// RunOnce executes a single generation run.
func (a *Application) RunOnce(ctx context.Context) (domain.RunStats, error) {
	return a.pipeline.Run(ctx)
}

// Preview renders a newsletter without persisting or delivering it.
func (a *Application) Preview(ctx context.Context) (domain.Document, domain.RunStats, error) {
	return a.pipeline.Preview(ctx)
}

// Schedule blocks running the weekly schedule until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	job := func(at time.Time) {
		a.runScheduled(ctx, at)
	}
	if err := a.weekly.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.weekly.Stop(context.Background())
}

// runScheduled executes one run and escalates its failures. The pipeline
// downgrades archive and delivery errors into run statistics, so those are
// inspected here as well as the returned error.
func (a *Application) runScheduled(ctx context.Context, at time.Time) {
	stats, err := a.pipeline.Run(ctx)
	if err == nil {
		err = runFailure(stats, len(a.cfg.Email.To) > 0)
	}
	if err == nil {
		return
	}
	a.logger.Error("scheduled run failed", "at", at.Format(time.RFC1123), "error", err)
	a.notifyFailure(ctx, at, err)
}

// runFailure distills a notification-worthy error out of run statistics.
// Per-source scan errors degrade a run without failing it; a newsletter
// that was not archived or not delivered needs an operator.
func runFailure(stats domain.RunStats, wantDelivery bool) error {
	var problems []string
	for _, e := range stats.Errors {
		if e.Source == "archive" || e.Source == "delivery" {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Source, e.Message))
		}
	}
	if len(problems) == 0 && wantDelivery && !stats.Delivered {
		problems = append(problems, "newsletter was not delivered")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// notifyFailure emails the recipients when a scheduled run fails, so a
// silent scheduler does not go unnoticed for a week.
func (a *Application) notifyFailure(ctx context.Context, at time.Time, runErr error) {
	if a.gate == nil || len(a.cfg.Email.To) == 0 {
		return
	}

	subject := fmt.Sprintf("Newsletter Generation Error - %s", at.Format("2006-01-02"))
	body := fmt.Sprintf(`# Newsletter Generation Error

An error occurred during the scheduled newsletter generation:

**Time:** %s
**Error:** %s

Please check the logs for more details.

---
*Automated error notification from the newsletter system*
`, at.Format("2006-01-02 15:04:05"), runErr)

	doc := domain.Document{Body: body, Source: domain.SourceFallback}
	if err := a.gate.Deliver(ctx, doc, subject, a.cfg.Email.To); err != nil {
		a.logger.Error("error notification failed", "error", err)
	}
}

// NextRun reports when the next scheduled generation would fire.
func (a *Application) NextRun() time.Time {
	return a.weekly.NextRun(time.Now())
}

// RecentStats returns the latest run records, newest first.
func (a *Application) RecentStats(ctx context.Context, limit int) ([]domain.RunStats, error) {
	return a.archive.RecentStats(ctx, limit)
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.archive.Close()
}
