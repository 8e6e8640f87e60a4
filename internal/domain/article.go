package domain

import "time"

// Article is a single scraped piece of content with its source metadata.
// Instances are built once by a source and never mutated afterwards.
type Article struct {
	URL         string
	Title       string
	Body        string
	Source      string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// Category buckets an article by the keyword family it matched.
type Category string

const (
	CategoryPayer         Category = "payer"
	CategoryInnovation    Category = "innovation"
	CategoryUncategorized Category = "uncategorized"
)

// ScoredArticle is an Article enriched with relevance metadata.
// Derived from exactly one Article and never mutated after scoring.
type ScoredArticle struct {
	Article         Article
	Score           float64
	Category        Category
	MatchedKeywords []string
}

// Section is one category block of a newsletter draft.
type Section struct {
	Category Category
	Articles []ScoredArticle
}

// Draft is the categorized, capped article set ready for summarization.
// Built once per run, consumed by the summarizer, then discarded.
type Draft struct {
	Sections []Section
}

// Total returns the number of articles across all sections.
func (d Draft) Total() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Articles)
	}
	return n
}

// DocumentSource records which rendering path produced a document.
type DocumentSource string

const (
	SourceLLM      DocumentSource = "llm"
	SourceFallback DocumentSource = "fallback"
)

// Document is a finished newsletter body together with its provenance,
// so callers can tell a rich summary from the deterministic fallback.
type Document struct {
	Body   string
	Source DocumentSource
}

// SourceError records one non-fatal per-source failure during a run.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// RunStats is the statistics record persisted after each generation run.
type RunStats struct {
	RunAt      time.Time
	Fetched    int
	AfterDedup int
	Scored     int
	Included   int
	Delivered  bool
	Errors     []SourceError
}
