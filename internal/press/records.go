package press

import (
	"encoding/json"
	"fmt"
)

// bucketCategories maps content bucket names to the category label used
// when a pre-shaped item carries no item_type of its own.
var bucketCategories = map[string]Category{
	"issues": Issue,
	"oops":   Oops,
	"wins":   Win,
	"news":   News,
}

// ParseJSON decodes structured content input into canonical records ready
// for Collate. Two shapes are accepted: a flat JSON array of records, or a
// pre-shaped payload ({"publish_date": ..., "content": {"issues": [...],
// ...}}) whose bucket items are flattened back into records with include
// set to true.
func ParseJSON(data []byte) ([]map[string]any, error) {
	var asList []map[string]any
	if err := json.Unmarshal(data, &asList); err == nil {
		return asList, nil
	}

	var asPayload struct {
		Content map[string]json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &asPayload); err != nil {
		return nil, fmt.Errorf("parsing JSON content: %w", err)
	}
	if asPayload.Content == nil {
		return nil, fmt.Errorf("JSON content must be a record list or a payload with a content object")
	}

	var records []map[string]any
	for _, bucket := range []string{"issues", "oops", "wins", "news"} {
		raw, ok := asPayload.Content[bucket]
		if !ok {
			continue
		}
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("parsing content bucket %q: %w", bucket, err)
		}
		for _, item := range items {
			records = append(records, recordFromItem(bucket, item))
		}
	}
	return records, nil
}

// recordFromItem converts a pre-shaped bucket item back to a canonical
// record. Pre-shaped items are included by definition.
func recordFromItem(bucket string, item map[string]any) map[string]any {
	itemType := stringValue(item, "item_type")
	if itemType == "" {
		itemType = bucketCategories[bucket].String()
	}
	domain := stringValue(item, "topic_domain")
	if domain == "" {
		domain = stringValue(item, "domain")
	}
	url := stringValue(item, "url")
	if url == "" {
		url = stringValue(item, "ticket_url")
	}
	return map[string]any{
		"type":         itemType,
		"topic_domain": domain,
		"title":        stringValue(item, "title"),
		"customer":     stringValue(item, "customer"),
		"summary":      stringValue(item, "summary"),
		"url":          url,
		"include":      true,
	}
}

func stringValue(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
