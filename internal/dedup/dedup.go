// Package dedup collapses near-duplicate articles before scoring.
// Syndicated reposts often change the URL but not the title, or vice
// versa, so an article is a duplicate when either key was already seen.
package dedup

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"healthbrief/internal/domain"
)

var folder = cases.Fold()

// Dedup removes duplicate articles, preserving the relative order of first
// occurrences. Idempotent: applying twice equals applying once.
func Dedup(articles []domain.Article) []domain.Article {
	seenURLs := make(map[string]struct{}, len(articles))
	seenTitles := make(map[string]struct{}, len(articles))

	kept := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		urlKey := NormalizeURL(a.URL)
		titleKey := NormalizeTitle(a.Title)

		_, dupURL := seenURLs[urlKey]
		_, dupTitle := seenTitles[titleKey]
		if dupURL || dupTitle {
			continue
		}

		seenURLs[urlKey] = struct{}{}
		seenTitles[titleKey] = struct{}{}
		kept = append(kept, a)
	}
	return kept
}

// NormalizeURL lowercases scheme, host, and path and strips the trailing
// slash, query string, and fragment.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

// NormalizeTitle case-folds the title, strips punctuation, and collapses
// whitespace so cosmetic rewording does not defeat duplicate detection.
func NormalizeTitle(title string) string {
	folded := folder.String(title)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
