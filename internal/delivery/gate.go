// Package delivery enforces the recipient and content policies that every
// outbound newsletter must pass before it reaches the mail collaborator.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"healthbrief/internal/domain"
	"healthbrief/internal/ports"
	"healthbrief/internal/ratelimit"
	"healthbrief/internal/validate"
)

// DefaultMaxRecipients bounds a single send to prevent abuse.
const DefaultMaxRecipients = 50

const maxSubjectLength = 200

// ErrTooManyRecipients is returned when the recipient list exceeds the
// configured maximum.
var ErrTooManyRecipients = errors.New("too many recipients")

// Gate validates recipients, sanitizes content, and rate-limits sends
// before handing documents to the mailer.
type Gate struct {
	mailer        ports.Mailer
	limiter       *ratelimit.Limiter
	maxRecipients int
	emailLimit    int
	emailWindow   time.Duration
	logger        *slog.Logger
}

// Config tunes the gate's policies. Zero values fall back to defaults.
type Config struct {
	MaxRecipients int
	EmailLimit    int
	EmailWindow   time.Duration
}

// NewGate wires a gate in front of the given mailer, sharing the limiter
// with the rest of the run.
func NewGate(mailer ports.Mailer, limiter *ratelimit.Limiter, cfg Config, logger *slog.Logger) *Gate {
	if cfg.MaxRecipients <= 0 {
		cfg.MaxRecipients = DefaultMaxRecipients
	}
	if cfg.EmailLimit <= 0 {
		cfg.EmailLimit = 10
	}
	if cfg.EmailWindow <= 0 {
		cfg.EmailWindow = time.Hour
	}
	return &Gate{
		mailer:        mailer,
		limiter:       limiter,
		maxRecipients: cfg.MaxRecipients,
		emailLimit:    cfg.EmailLimit,
		emailWindow:   cfg.EmailWindow,
		logger:        logger,
	}
}

// Deliver sends doc to recipients after validating every address, capping
// the list size, and sanitizing subject and body. The summarizer's output
// is untrusted, so the body is sanitized here even when upstream inputs
// were already clean.
func (g *Gate) Deliver(ctx context.Context, doc domain.Document, subject string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("deliver: no recipients configured")
	}
	if len(recipients) > g.maxRecipients {
		return fmt.Errorf("deliver: %d recipients exceeds limit %d: %w",
			len(recipients), g.maxRecipients, ErrTooManyRecipients)
	}

	validated := make([]string, 0, len(recipients))
	for _, r := range recipients {
		email, err := validate.Email(r)
		if err != nil {
			return fmt.Errorf("deliver: recipient rejected: %w", err)
		}
		validated = append(validated, email)
	}

	cleanSubject := truncateSubject(validate.SanitizeHTML(subject))
	cleanBody := validate.SanitizeHTML(doc.Body)

	if g.limiter != nil {
		if err := g.limiter.Acquire("email", g.emailLimit, g.emailWindow); err != nil {
			return fmt.Errorf("deliver: %w", err)
		}
	}

	if err := g.mailer.Send(ctx, cleanSubject, cleanBody, validated); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	if g.logger != nil {
		g.logger.Info("newsletter delivered",
			"recipients", len(validated), "source", string(doc.Source))
	}
	return nil
}

// truncateSubject caps the sanitized subject without cutting through a
// multi-byte rune or an escape sequence like "&amp;".
func truncateSubject(s string) string {
	if len(s) <= maxSubjectLength {
		return s
	}
	cut := maxSubjectLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	// Every "&" in sanitized text starts an entity. A missing ";" before
	// the cut means the entity would be torn, so back off to the "&".
	if amp := strings.LastIndexByte(s[:cut], '&'); amp >= 0 && !strings.Contains(s[amp:cut], ";") {
		cut = amp
	}
	return s[:cut] + "..."
}
