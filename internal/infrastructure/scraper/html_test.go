package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"healthbrief/internal/ratelimit"
	"healthbrief/internal/scanner"
)

// rewriteTransport redirects every request to the test server while the
// scraper keeps seeing the public https URLs it discovered.
type rewriteTransport struct {
	serverURL *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.serverURL.Scheme
	req.URL.Host = t.serverURL.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newRewriteClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return &http.Client{Transport: rewriteTransport{serverURL: parsed}}
}

func TestCollectLinks(t *testing.T) {
	t.Parallel()

	html := `
	<html><body>
	  <h2><a href="/news/payer-shift">Payer shift</a></h2>
	  <h3><a href="https://hospitalogy.com/news/ai-triage">AI triage</a></h3>
	  <h2><a href="/news/payer-shift">Payer shift again</a></h2>
	  <h2><a href="/category/payers">Category page</a></h2>
	  <h2><a href="https://other.example.org/news/offsite">Offsite</a></h2>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	sc := NewHTMLScraper(Hospitalogy(), nil, nil, 0)
	links := sc.collectLinks(doc, "https://hospitalogy.com/")

	want := []string{
		"https://hospitalogy.com/news/payer-shift",
		"https://hospitalogy.com/news/ai-triage",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("link %d = %s, want %s", i, links[i], want[i])
		}
	}
}

func TestHTMLScraperScan(t *testing.T) {
	t.Parallel()

	longBody := strings.Repeat("Medicare reimbursement rates shifted again. ", 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<html><body>
		  <h2><a href="/news/payer-shift">Payer shift</a></h2>
		  <h2><a href="/news/too-short">Too short</a></h2>
		</body></html>`))
	})
	mux.HandleFunc("/news/payer-shift", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<html><body>
		  <h1>Medicare payment overhaul lands</h1>
		  <article>` + longBody + `</article>
		  <time datetime="2026-08-20T10:00:00Z">Aug 20</time>
		</body></html>`))
	})
	mux.HandleFunc("/news/too-short", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>A headline long enough</h1><article>tiny</article></body></html>`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	sc := NewHTMLScraper(Hospitalogy(), newRewriteClient(t, server), nil, 0)

	articles, err := sc.Scan(context.Background(), scanner.Request{
		SiteName: "hospitalogy",
		URL:      "https://hospitalogy.com/",
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	got := articles[0]
	if got.Title != "Medicare payment overhaul lands" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
	if got.URL != "https://hospitalogy.com/news/payer-shift" {
		t.Fatalf("unexpected url: %s", got.URL)
	}
	if !strings.Contains(got.Body, "Medicare reimbursement rates") {
		t.Fatalf("unexpected body: %s", got.Body)
	}
	wantDate := time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)
	if !got.PublishedAt.Equal(wantDate) {
		t.Fatalf("unexpected published date: %v", got.PublishedAt)
	}
}

func TestHTMLScraperScanListingFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewHTMLScraper(Hospitalogy(), newRewriteClient(t, server), nil, 0)

	_, err := sc.Scan(context.Background(), scanner.Request{SiteName: "hospitalogy", URL: "https://hospitalogy.com/"})
	if err == nil {
		t.Fatal("expected an error for a failing listing page")
	}
}

func TestHTMLScraperScanKeepsPartialOnRateLimit(t *testing.T) {
	t.Parallel()

	longBody := strings.Repeat("Telehealth platform funding round closes. ", 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<html><body>
		  <h2><a href="/news/first">First</a></h2>
		  <h2><a href="/news/second">Second</a></h2>
		</body></html>`))
	})
	article := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Telehealth funding news</h1><article>` + longBody + `</article></body></html>`))
	}
	mux.HandleFunc("/news/first", article)
	mux.HandleFunc("/news/second", article)

	server := httptest.NewServer(mux)
	defer server.Close()

	// Budget of two requests: one listing fetch plus one article fetch.
	limiter := ratelimit.New()
	sc := NewHTMLScraper(Hospitalogy(), newRewriteClient(t, server), limiter, 2)

	articles, err := sc.Scan(context.Background(), scanner.Request{SiteName: "hospitalogy", URL: "https://hospitalogy.com/"})
	if !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 partial article, got %d", len(articles))
	}
}

func TestExcerptKeepsRuneBoundary(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("é", 100)
	got := excerpt(s, 101)
	if !strings.HasSuffix(got, "é") || len(got) > 101 {
		t.Fatalf("excerpt broke a rune boundary: %q", got[len(got)-2:])
	}
}
