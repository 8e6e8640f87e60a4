package relevance

import (
	"reflect"
	"testing"

	"healthbrief/internal/domain"
)

func testFilter() *Filter {
	return NewFilter(
		[]string{"payer", "medicare", "prior authorization"},
		[]string{"telehealth", "digital health", "artificial intelligence"},
	)
}

func TestTitleMatchScoresThree(t *testing.T) {
	t.Parallel()

	got := testFilter().Score([]domain.Article{
		{Title: "Telehealth expansion announced", Body: "Nothing relevant here."},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 scored article, got %d", len(got))
	}
	if got[0].Score != 3 {
		t.Fatalf("expected score 3 for single title match, got %v", got[0].Score)
	}
	if got[0].Category != domain.CategoryInnovation {
		t.Fatalf("expected innovation category, got %s", got[0].Category)
	}
}

func TestZeroMatchesDropped(t *testing.T) {
	t.Parallel()

	got := testFilter().Score([]domain.Article{
		{Title: "Hospital cafeteria menu update", Body: "New soup on Tuesdays."},
	})
	if len(got) != 0 {
		t.Fatalf("expected zero-score article dropped, got %d results", len(got))
	}
}

func TestPhraseMatchIsContiguous(t *testing.T) {
	t.Parallel()

	// "prior authorization" split across a sentence boundary must not match.
	got := testFilter().Score([]domain.Article{
		{Title: "Prior approval rules", Body: "The authorization process is separate."},
	})
	if len(got) != 0 {
		t.Fatalf("non-contiguous phrase should not match, got %d results", len(got))
	}

	got = testFilter().Score([]domain.Article{
		{Title: "News", Body: "Plans tighten prior authorization requirements."},
	})
	if len(got) != 1 || got[0].Score != 1 {
		t.Fatalf("expected single body match scoring 1, got %+v", got)
	}
}

func TestBodyAndTitleCombine(t *testing.T) {
	t.Parallel()

	got := testFilter().Score([]domain.Article{
		{Title: "Medicare payer shakeup", Body: "The payer market shifted; medicare enrollment grew."},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 scored article, got %d", len(got))
	}
	// Title: medicare + payer = 2 hits * 3; body: payer + medicare = 2 hits.
	if got[0].Score != 8 {
		t.Fatalf("expected score 8, got %v", got[0].Score)
	}
	if got[0].Category != domain.CategoryPayer {
		t.Fatalf("expected payer category, got %s", got[0].Category)
	}
}

func TestTieIsUncategorized(t *testing.T) {
	t.Parallel()

	got := testFilter().Score([]domain.Article{
		{Title: "Payer adopts telehealth", Body: ""},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 scored article, got %d", len(got))
	}
	if got[0].Category != domain.CategoryUncategorized {
		t.Fatalf("expected uncategorized on tie, got %s", got[0].Category)
	}
}

func TestSortDescendingStable(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{URL: "https://e.example.com/1", Title: "telehealth", Body: ""},          // 3
		{URL: "https://e.example.com/2", Title: "payer payer", Body: ""},         // 6
		{URL: "https://e.example.com/3", Title: "medicare", Body: ""},            // 3
		{URL: "https://e.example.com/4", Title: "", Body: "digital health news"}, // 1
	}

	got := testFilter().Score(articles)
	if len(got) != 4 {
		t.Fatalf("expected 4 scored articles, got %d", len(got))
	}

	urls := []string{got[0].Article.URL, got[1].Article.URL, got[2].Article.URL, got[3].Article.URL}
	want := []string{
		"https://e.example.com/2",
		"https://e.example.com/1", // ties keep input order
		"https://e.example.com/3",
		"https://e.example.com/4",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("unexpected order: %v", urls)
	}
}

func TestDeterministic(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{URL: "https://e.example.com/a", Title: "Medicare update", Body: "payer details"},
		{URL: "https://e.example.com/b", Title: "Telehealth pilots", Body: "digital health rollout"},
	}

	first := testFilter().Score(articles)
	second := testFilter().Score(articles)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated scoring produced different results")
	}
}

func TestMatchedKeywords(t *testing.T) {
	t.Parallel()

	got := testFilter().Score([]domain.Article{
		{Title: "Telehealth and Medicare", Body: "medicare changes"},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 scored article, got %d", len(got))
	}
	want := []string{"medicare", "telehealth"}
	if !reflect.DeepEqual(got[0].MatchedKeywords, want) {
		t.Fatalf("expected matched keywords %v, got %v", want, got[0].MatchedKeywords)
	}
}
