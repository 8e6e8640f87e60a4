package newsletter

import (
	"fmt"
	"strings"
	"time"

	"healthbrief/internal/domain"
)

// Meta carries the masthead settings printed on every issue.
type Meta struct {
	Name         string
	Organization string
}

// sectionHeadings maps categories to reader-facing section titles.
var sectionHeadings = map[domain.Category]string{
	domain.CategoryPayer:      "Payer News",
	domain.CategoryInnovation: "Innovation & Technology",
}

// Heading returns the reader-facing title for a category section.
func Heading(cat domain.Category) string {
	if h, ok := sectionHeadings[cat]; ok {
		return h
	}
	return "General Healthcare"
}

// RenderFallback produces a deterministic Markdown rendering of the draft:
// a dated report heading plus a bullet list per section. It is the document
// body used when the summarizer is unavailable or fails, so it must always
// yield something deliverable.
func RenderFallback(draft domain.Draft, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Healthcare Weekly: Payer & Innovation Report\n\n")
	fmt.Fprintf(&b, "**Week of %s**\n\n", now.Format("January 2, 2006"))

	if draft.Total() == 0 {
		b.WriteString("No relevant articles found this week.\n")
		return b.String()
	}

	for _, section := range draft.Sections {
		fmt.Fprintf(&b, "## %s\n\n", Heading(section.Category))
		for _, sa := range section.Articles {
			fmt.Fprintf(&b, "- **%s**\n", sa.Article.Title)
			fmt.Fprintf(&b, "  %s\n", excerpt(sa.Article.Body, 200))
			fmt.Fprintf(&b, "  [Read more](%s)\n\n", sa.Article.URL)
		}
	}
	return b.String()
}

// Compose wraps a rendered body with the issue masthead and footer.
func Compose(meta Meta, body string, now time.Time, included, fetched int) string {
	name := meta.Name
	if name == "" {
		name = "Healthcare Weekly Newsletter"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", name)
	if meta.Organization != "" {
		fmt.Fprintf(&b, "**%s**\n", meta.Organization)
	}
	fmt.Fprintf(&b, "**Generated on %s**\n", now.Format("Monday, January 2, 2006"))
	b.WriteString("**Focus: Payer News & Healthcare Innovation**\n\n---\n\n")

	b.WriteString(strings.TrimRight(body, "\n"))

	b.WriteString("\n\n---\n\n")
	b.WriteString("*This newsletter was automatically generated from healthcare industry sources.*\n")
	fmt.Fprintf(&b, "*Included %d articles from %d collected.*\n\n", included, fetched)
	fmt.Fprintf(&b, "**Next newsletter:** %s\n", now.AddDate(0, 0, 7).Format("January 2, 2006"))
	return b.String()
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
