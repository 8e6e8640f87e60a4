// Package newsletter turns scored articles into a sectioned draft and
// renders finished documents around it.
package newsletter

import (
	"healthbrief/internal/domain"
)

// DefaultSectionCap bounds each section to keep summarization cost down.
const DefaultSectionCap = 10

// sectionOrder fixes the section sequence in every draft.
var sectionOrder = []domain.Category{domain.CategoryPayer, domain.CategoryInnovation}

// Assemble groups scored articles into ordered payer and innovation
// sections, keeping the top sectionCap per section by relevance score.
// Uncategorized articles are excluded: the digest stays focused on the two
// configured keyword families. Empty sections are omitted.
func Assemble(scored []domain.ScoredArticle, sectionCap int) domain.Draft {
	if sectionCap <= 0 {
		sectionCap = DefaultSectionCap
	}

	byCategory := make(map[domain.Category][]domain.ScoredArticle)
	for _, sa := range scored {
		if sa.Category == domain.CategoryUncategorized {
			continue
		}
		if len(byCategory[sa.Category]) >= sectionCap {
			continue
		}
		// Input is already sorted descending by score, so appending in
		// order keeps the top-N per section.
		byCategory[sa.Category] = append(byCategory[sa.Category], sa)
	}

	var draft domain.Draft
	for _, cat := range sectionOrder {
		articles := byCategory[cat]
		if len(articles) == 0 {
			continue
		}
		draft.Sections = append(draft.Sections, domain.Section{
			Category: cat,
			Articles: articles,
		})
	}
	return draft
}
