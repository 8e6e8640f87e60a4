package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"healthbrief/internal/domain"
	"healthbrief/internal/ratelimit"
	"healthbrief/internal/scanner"
	"healthbrief/internal/validate"
)

const (
	maxArticlesPerSite = 20
	maxBodyExcerpt     = 3000
	minBodyLength      = 50
	minTitleLength     = 10
	maxTitleLength     = 500

	userAgent = "healthbrief/1.0"
)

// Profile describes how to walk one publication: which anchors on the
// listing page lead to articles and where title and body live on an
// article page.
type Profile struct {
	Name string

	// LinkSelectors are tried in order against the listing page.
	LinkSelectors []string
	// HrefContains keeps only hrefs containing at least one substring.
	// Empty means every matched anchor qualifies.
	HrefContains []string

	TitleSelectors []string
	BodySelectors  []string
}

var skipPathPatterns = []string{
	"/category/", "/tag/", "/author/", "/page/",
	"/contact", "/about", "/privacy", "/terms",
	".pdf", ".jpg", ".png", ".gif",
}

// Hospitalogy covers hospitalogy.com.
func Hospitalogy() Profile {
	return Profile{
		Name: "hospitalogy",
		LinkSelectors: []string{
			`a[href*="/article"]`, `a[href*="/news"]`, `a[href*="/post"]`,
			".article-title a", ".post-title a", "h2 a", "h3 a",
		},
		TitleSelectors: []string{"h1", ".article-title", ".post-title", ".entry-title", "title"},
		BodySelectors:  []string{".article-content", ".post-content", ".entry-content", "article", ".content", "main"},
	}
}

// HealthcareITNews covers healthcareitnews.com.
func HealthcareITNews() Profile {
	return Profile{
		Name:           "healthcareitnews",
		LinkSelectors:  []string{"a[href]"},
		HrefContains:   []string{"/news/", "/article/"},
		TitleSelectors: []string{"h1", ".page-title", ".article-title", "title"},
		BodySelectors:  []string{".field-name-body", ".article-body", "article", "main"},
	}
}

// FierceHealthcare covers fiercehealthcare.com.
func FierceHealthcare() Profile {
	return Profile{
		Name:           "fiercehealthcare",
		LinkSelectors:  []string{"a[href]"},
		HrefContains:   []string{"/payer/", "/tech/", "/innovation/"},
		TitleSelectors: []string{"h1", ".article-title", "title"},
		BodySelectors:  []string{".article-content", ".field-name-body", "article", "main"},
	}
}

// HTMLScraper fetches a listing page, discovers article links through a
// site profile and scrapes each article. Every HTTP request consumes one
// slot of the scrape rate limit; when the window is exhausted the scan
// returns what it collected so far together with the limit error.
type HTMLScraper struct {
	profile     Profile
	client      *http.Client
	limiter     *ratelimit.Limiter
	scrapeLimit int
}

var _ scanner.Scanner = (*HTMLScraper)(nil)

// NewHTMLScraper wires an HTTP client and the shared rate limiter.
func NewHTMLScraper(profile Profile, client *http.Client, limiter *ratelimit.Limiter, scrapePerHour int) *HTMLScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScraper{
		profile:     profile,
		client:      client,
		limiter:     limiter,
		scrapeLimit: scrapePerHour,
	}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScraper) Name() string {
	return h.profile.Name
}

// Scan discovers article links on the site's listing page and scrapes each
// one, up to the per-site article cap.
func (h *HTMLScraper) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if err := h.acquire(); err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", req.SiteName, err)
	}

	links := h.collectLinks(doc, req.URL)

	now := time.Now().UTC()
	articles := make([]domain.Article, 0, len(links))
	for _, link := range links {
		if len(articles) >= maxArticlesPerSite {
			break
		}
		if err := h.acquire(); err != nil {
			return articles, err
		}

		article, err := h.scrapeArticle(ctx, link, now)
		if err != nil {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (h *HTMLScraper) acquire() error {
	if h.limiter == nil {
		return nil
	}
	return h.limiter.Acquire("scrape", h.scrapeLimit, time.Hour)
}

func (h *HTMLScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", h.profile.Name, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (h *HTMLScraper) collectLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := map[string]struct{}{}

	for _, selector := range h.profile.LinkSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return
			}
			if len(h.profile.HrefContains) > 0 && !containsAny(href, h.profile.HrefContains) {
				return
			}

			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			full := base.ResolveReference(ref).String()
			if !h.validLink(full, base.Host) {
				return
			}
			if _, ok := seen[full]; ok {
				return
			}
			seen[full] = struct{}{}
			links = append(links, full)
		})
	}

	return links
}

func (h *HTMLScraper) validLink(link, host string) bool {
	if _, err := validate.URL(link); err != nil {
		return false
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host != host {
		return false
	}
	return !containsAny(strings.ToLower(link), skipPathPatterns)
}

func (h *HTMLScraper) scrapeArticle(ctx context.Context, link string, fetchedAt time.Time) (domain.Article, error) {
	doc, err := h.fetchDocument(ctx, link)
	if err != nil {
		return domain.Article{}, err
	}

	title := firstText(doc, h.profile.TitleSelectors)
	if len(title) < minTitleLength || len(title) > maxTitleLength {
		return domain.Article{}, fmt.Errorf("title of %s out of bounds", link)
	}

	body := h.extractBody(doc)
	if len(body) < minBodyLength {
		return domain.Article{}, fmt.Errorf("body of %s too short", link)
	}

	return domain.Article{
		URL:         link,
		Title:       title,
		Body:        excerpt(body, maxBodyExcerpt),
		PublishedAt: extractDate(doc, fetchedAt),
		FetchedAt:   fetchedAt,
	}, nil
}

func (h *HTMLScraper) extractBody(doc *goquery.Document) string {
	for _, selector := range h.profile.BodySelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel.Find("script, style, nav, header, footer").Remove()
		if text := collapseSpace(sel.Text()); text != "" {
			return text
		}
	}

	// Fallback to joining every paragraph on the page.
	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return collapseSpace(strings.Join(parts, " "))
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := collapseSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractDate(doc *goquery.Document, fallback time.Time) time.Time {
	if raw, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed.UTC()
			}
		}
	}
	return fallback
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
