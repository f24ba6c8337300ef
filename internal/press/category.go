// Package press models support mail editions: typed items, the publication
// context handed to the renderer, and the collation pass that buckets
// included records by category.
package press

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory reports a record whose type matches none of the four
// categories. Collation logs it and drops the record.
var ErrInvalidCategory = errors.New("invalid item category")

// Category classifies an item into its edition section.
type Category int

const (
	Issue Category = iota
	Win
	Oops
	News
)

var categoryLabels = [...]string{"Issue", "Win", "Oops", "News"}

// String returns the category's display label, as serialized into the
// publication context.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryLabels) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryLabels[c]
}

// Bucket returns the content key the category's items collect under.
func (c Category) Bucket() string {
	switch c {
	case Issue:
		return "issues"
	case Win:
		return "wins"
	case Oops:
		return "oops"
	case News:
		return "news"
	}
	return ""
}

// ParseCategory matches a type value against the four category labels,
// case-insensitively and ignoring surrounding whitespace. No fuzzy or
// partial matching.
func ParseCategory(value string) (Category, error) {
	trimmed := strings.TrimSpace(value)
	for i, label := range categoryLabels {
		if strings.EqualFold(trimmed, label) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}
