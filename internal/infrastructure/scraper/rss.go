package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"healthbrief/internal/domain"
	"healthbrief/internal/ratelimit"
	"healthbrief/internal/scanner"
	"healthbrief/internal/validate"
)

// RSSScanner reads a syndication feed and converts its items to articles.
// Feeds that carry only short summaries still qualify as long as the
// summary clears the minimum body length.
type RSSScanner struct {
	parser      *gofeed.Parser
	limiter     *ratelimit.Limiter
	scrapeLimit int
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires a feed parser and the shared rate limiter.
func NewRSSScanner(client *http.Client, limiter *ratelimit.Limiter, scrapePerHour int) *RSSScanner {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if client != nil {
		parser.Client = client
	}
	return &RSSScanner{
		parser:      parser,
		limiter:     limiter,
		scrapeLimit: scrapePerHour,
	}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches the feed at req.URL and maps items to articles, up to the
// per-site article cap.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if r.limiter != nil {
		if err := r.limiter.Acquire("scrape", r.scrapeLimit, time.Hour); err != nil {
			return nil, err
		}
	}

	feed, err := r.parser.ParseURLWithContext(req.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.SiteName, err)
	}

	now := time.Now().UTC()
	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(articles) >= maxArticlesPerSite {
			break
		}
		if item == nil || item.Link == "" {
			continue
		}
		if _, err := validate.URL(item.Link); err != nil {
			continue
		}

		title := collapseSpace(item.Title)
		if len(title) < minTitleLength || len(title) > maxTitleLength {
			continue
		}

		body := collapseSpace(item.Content)
		if body == "" {
			body = collapseSpace(item.Description)
		}
		if len(body) < minBodyLength {
			continue
		}

		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		articles = append(articles, domain.Article{
			URL:         item.Link,
			Title:       title,
			Body:        excerpt(body, maxBodyExcerpt),
			PublishedAt: published,
			FetchedAt:   now,
		})
	}

	return articles, nil
}
