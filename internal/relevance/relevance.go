// Package relevance scores and classifies articles against configured
// keyword sets. Matching is plain contiguous phrase search over case-folded
// text; folding is locale-invariant so scores are reproducible across
// environments.
package relevance

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"healthbrief/internal/domain"
)

const titleWeight = 3

var folder = cases.Fold()

// Filter holds the keyword configuration for one run. Keywords are phrases:
// a multi-word keyword must appear contiguously to count.
type Filter struct {
	payer      []string
	innovation []string
}

// NewFilter folds and deduplicates both keyword sets.
func NewFilter(payerKeywords, innovationKeywords []string) *Filter {
	return &Filter{
		payer:      foldKeywords(payerKeywords),
		innovation: foldKeywords(innovationKeywords),
	}
}

func foldKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		folded := folder.String(strings.TrimSpace(kw))
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	return out
}

// Score ranks the deduplicated articles. Articles with zero keyword matches
// carry no signal and are dropped. The result is sorted descending by score;
// ties keep the original article order so repeated runs over identical input
// produce identical output.
func (f *Filter) Score(articles []domain.Article) []domain.ScoredArticle {
	scored := make([]domain.ScoredArticle, 0, len(articles))
	for _, a := range articles {
		sa, ok := f.scoreOne(a)
		if !ok {
			continue
		}
		scored = append(scored, sa)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func (f *Filter) scoreOne(a domain.Article) (domain.ScoredArticle, bool) {
	title := folder.String(a.Title)
	body := folder.String(a.Body)

	var (
		titleHits, bodyHits       int
		payerHits, innovationHits int
		matched                   []string
	)

	count := func(keywords []string) int {
		hits := 0
		for _, kw := range keywords {
			inTitle := strings.Count(title, kw)
			inBody := strings.Count(body, kw)
			if inTitle+inBody == 0 {
				continue
			}
			titleHits += inTitle
			bodyHits += inBody
			hits += inTitle + inBody
			matched = append(matched, kw)
		}
		return hits
	}

	payerHits = count(f.payer)
	innovationHits = count(f.innovation)

	score := float64(titleHits*titleWeight + bodyHits)
	if score == 0 {
		return domain.ScoredArticle{}, false
	}

	sort.Strings(matched)
	return domain.ScoredArticle{
		Article:         a,
		Score:           score,
		Category:        categorize(payerHits, innovationHits),
		MatchedKeywords: matched,
	}, true
}

// categorize picks the keyword family with more matches; a tie (including
// zero-zero) is uncategorized.
func categorize(payerHits, innovationHits int) domain.Category {
	switch {
	case payerHits > innovationHits:
		return domain.CategoryPayer
	case innovationHits > payerHits:
		return domain.CategoryInnovation
	default:
		return domain.CategoryUncategorized
	}
}
