package press

import (
	"errors"
	"fmt"
	"log"
)

// CollateResult reports per-bucket counts after a collation pass.
type CollateResult struct {
	Submitted int
	Issues    int
	Wins      int
	Oops      int
	News      int
	Invalid   int
}

// Collated returns the total number of items placed into buckets.
func (r *CollateResult) Collated() int {
	return r.Issues + r.Wins + r.Oops + r.News
}

// Collate iterates records in input order and buckets the included ones by
// category. A record is included only when its include field is exactly
// boolean true; string "True" or numeric 1 never count. By this stage the
// field should already be a bool from normalization or a caller that sets
// it directly. Classification failures are logged and skip only that
// record. A record missing a required field aborts the whole pass: callers
// must treat a returned error as all-or-nothing, with no partial content
// trustworthy.
func (c *Context) Collate(records []map[string]any) (*CollateResult, error) {
	result := &CollateResult{Submitted: len(records)}

	for n, record := range records {
		included, ok := record["include"].(bool)
		if !ok || !included {
			continue
		}

		fields, err := requiredFields(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n+1, err)
		}

		item, err := NewItem(fields["title"], fields["topic_domain"], fields["summary"],
			fields["customer"], fields["type"], fields["url"])
		if err != nil {
			if errors.Is(err, ErrInvalidCategory) {
				log.Printf("Skipping record %d (%q): %v", n+1, fields["title"], err)
				result.Invalid++
				continue
			}
			return nil, fmt.Errorf("record %d: %w", n+1, err)
		}

		c.add(item)
		switch item.Type {
		case Issue:
			result.Issues++
		case Win:
			result.Wins++
		case Oops:
			result.Oops++
		case News:
			result.News++
		}
	}

	log.Printf("Collated %d of %d submitted record(s): %d issue(s), %d win(s), %d oops, %d news",
		result.Collated(), result.Submitted, result.Issues, result.Wins, result.Oops, result.News)
	return result, nil
}

// requiredFields extracts the string-valued canonical fields, failing when
// one is absent or not a string.
func requiredFields(record map[string]any) (map[string]string, error) {
	fields := make(map[string]string, 6)
	for _, key := range []string{"type", "topic_domain", "title", "customer", "summary", "url"} {
		value, ok := record[key]
		if !ok {
			return nil, fmt.Errorf("missing field %q", key)
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q is not a string (got %T)", key, value)
		}
		fields[key] = s
	}
	return fields, nil
}
