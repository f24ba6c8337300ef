package press

import (
	"fmt"
	"time"
)

// DateFormat is the stable string form used for date fields at the
// validation and rendering boundary.
const DateFormat = "2006-01-02"

// Content holds the per-category item buckets plus the optional trends
// markup. Buckets keep input order and contain publication-form mappings.
type Content struct {
	Issues    []map[string]any
	Oops      []map[string]any
	Wins      []map[string]any
	News      []map[string]any
	TrendHTML string
}

// Context is the aggregate handed to the validator and renderer. One
// instance exists per publication run; it is not reused across runs.
type Context struct {
	PublishDate  time.Time
	EditionMonth time.Time
	Content      Content
}

// NewContext creates a publication context for a publish date. The edition
// month is the first day of the calendar month preceding the publish date;
// pinning day 1 avoids overflow (March 31 has no February 31), and a
// January publish date rolls back to December of the prior year.
func NewContext(publishDate time.Time) *Context {
	year, month, _ := publishDate.Date()
	editionMonth := time.Date(year, month, 1, 0, 0, 0, 0, publishDate.Location()).AddDate(0, -1, 0)
	return &Context{
		PublishDate:  publishDate,
		EditionMonth: editionMonth,
	}
}

// add appends an item's publication form to its category bucket.
func (c *Context) add(item Item) {
	form := item.PublicationForm()
	switch item.Type {
	case Issue:
		c.Content.Issues = append(c.Content.Issues, form)
	case Win:
		c.Content.Wins = append(c.Content.Wins, form)
	case Oops:
		c.Content.Oops = append(c.Content.Oops, form)
	case News:
		c.Content.News = append(c.Content.News, form)
	}
}

// Items returns the bucket for a category.
func (c *Context) Items(category Category) []map[string]any {
	switch category {
	case Issue:
		return c.Content.Issues
	case Win:
		return c.Content.Wins
	case Oops:
		return c.Content.Oops
	case News:
		return c.Content.News
	}
	return nil
}

// ValidationPayload serializes the context to plain JSON-compatible data
// for schema validation. Date fields become YYYY-MM-DD strings, and the
// content object always carries exactly its five keys.
func (c *Context) ValidationPayload() map[string]any {
	return map[string]any{
		"publish_date":  c.PublishDate.Format(DateFormat),
		"edition_month": c.EditionMonth.Format(DateFormat),
		"content": map[string]any{
			"issues":     genericItems(c.Content.Issues),
			"oops":       genericItems(c.Content.Oops),
			"wins":       genericItems(c.Content.Wins),
			"news":       genericItems(c.Content.News),
			"trend_html": c.Content.TrendHTML,
		},
	}
}

// genericItems converts a bucket to the []any shape of decoded JSON. The
// schema library only descends into []any arrays, so a typed slice would
// leave the per-item constraints unchecked.
func genericItems(items []map[string]any) []any {
	generic := make([]any, len(items))
	for i, item := range items {
		generic[i] = item
	}
	return generic
}

// Edition returns the filing token derived from the publish date: the
// zero-padded day of month. A numeric token keeps filenames stable across
// locales.
func (c *Context) Edition() string {
	return fmt.Sprintf("%02d", c.PublishDate.Day())
}

// RootFilename returns the extension-less base name both output artifacts
// share.
func (c *Context) RootFilename() string {
	return fmt.Sprintf("%d_support_mail_%s", c.PublishDate.Year(), c.Edition())
}
