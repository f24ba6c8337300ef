// Package normalize re-keys uploaded tabular rows to the fixed internal
// record shape the collation engine expects.
package normalize

import (
	"sort"
	"strings"
)

// Canonical record keys. Every normalized row carries exactly this set.
const (
	KeyType        = "type"
	KeyTopicDomain = "topic_domain"
	KeyTitle       = "title"
	KeyCustomer    = "customer"
	KeySummary     = "summary"
	KeyURL         = "url"
	KeyInclude     = "include"
)

// Keys lists all canonical record keys.
var Keys = []string{KeyType, KeyTopicDomain, KeyTitle, KeyCustomer, KeySummary, KeyURL, KeyInclude}

// columnAliases maps each internal key to the upload-template header
// spellings accepted for it. Real-world files arrive with varying header
// conventions (mixed case, punctuation, abbreviations); matching is
// case-insensitive and strips surrounding whitespace.
var columnAliases = map[string][]string{
	KeyType:        {"section", "type", "ticket_type"},
	KeyTopicDomain: {"topic_domain", "topic/domain"},
	KeyTitle:       {"title"},
	KeyCustomer:    {"customer"},
	KeySummary:     {"summary", "subject matter/summary"},
	KeyURL:         {"ticket_link", "link"},
	KeyInclude:     {"add_to_edition", "add_to_edition?", "include"},
}

// aliasLookup is the pre-flattened lowercased-alias -> internal key index.
var aliasLookup = buildAliasLookup()

func buildAliasLookup() map[string]string {
	lookup := make(map[string]string)
	for key, aliases := range columnAliases {
		for _, a := range aliases {
			lookup[strings.ToLower(strings.TrimSpace(a))] = key
		}
	}
	return lookup
}

// truthyStrings are the cell values accepted as true for the include column.
var truthyStrings = map[string]struct{}{
	"true": {},
	"1":    {},
	"yes":  {},
	"✅":    {},
}

// CoerceBool converts an include cell to a bool. Booleans pass through
// unchanged; strings match against the truthy set after lowercasing and
// trimming. Everything else is false.
func CoerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		_, ok := truthyStrings[strings.ToLower(strings.TrimSpace(v))]
		return ok
	default:
		return false
	}
}

// ResolveHeader maps a raw column header to its internal key. The second
// return is false for unrecognized headers.
func ResolveHeader(header string) (string, bool) {
	key, ok := aliasLookup[strings.ToLower(strings.TrimSpace(header))]
	return key, ok
}

// Rows re-keys each raw row to the canonical key set. Every output record
// has all seven keys, defaulting to "" (false for include). Unmapped
// columns are dropped silently; a nil cell maps to "" rather than
// propagating nil; rows keep their input order.
func Rows(rows []map[string]any) []map[string]any {
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, Row(row))
	}
	return normalized
}

// Row normalizes a single raw row. Map keys carry no order of their own,
// so headers overlay in sorted order to keep rows with duplicate aliases
// deterministic. CSV input goes through Table.Normalize instead, which
// overlays in column order.
func Row(row map[string]any) map[string]any {
	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}
	sort.Strings(headers)
	return normalizeRow(headers, row)
}

func normalizeRow(headers []string, row map[string]any) map[string]any {
	record := make(map[string]any, len(Keys))
	for _, key := range Keys {
		record[key] = ""
	}
	for _, header := range headers {
		key, ok := ResolveHeader(header)
		if !ok {
			continue
		}
		value := row[header]
		if value == nil {
			value = ""
		}
		record[key] = value
	}
	record[KeyInclude] = CoerceBool(record[KeyInclude])
	return record
}
