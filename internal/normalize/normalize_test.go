package normalize

import (
	"strings"
	"testing"
)

func TestResolveHeaderAliases(t *testing.T) {
	cases := map[string]string{
		"section":                "type",
		"Ticket_Type":            "type",
		"TYPE":                   "type",
		"Topic/Domain":           "topic_domain",
		"topic/domain":           "topic_domain",
		"  topic_domain  ":       "topic_domain",
		"Title":                  "title",
		"customer":               "customer",
		"Subject Matter/Summary": "summary",
		"summary":                "summary",
		"Ticket_Link":            "url",
		"link":                   "url",
		"Add_To_Edition?":        "include",
		"add_to_edition":         "include",
		"INCLUDE":                "include",
	}
	for header, want := range cases {
		got, ok := ResolveHeader(header)
		if !ok {
			t.Errorf("ResolveHeader(%q): not recognized", header)
			continue
		}
		if got != want {
			t.Errorf("ResolveHeader(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestResolveHeaderUnknown(t *testing.T) {
	for _, header := range []string{"owner", "notes", "client_number", ""} {
		if key, ok := ResolveHeader(header); ok {
			t.Errorf("ResolveHeader(%q) unexpectedly resolved to %q", header, key)
		}
	}
}

// Every canonical key must be reachable through at least one alias, and no
// alias may resolve to two different keys.
func TestAliasTableCoversAllKeys(t *testing.T) {
	seen := make(map[string]string)
	for key, aliases := range columnAliases {
		if len(aliases) == 0 {
			t.Errorf("key %q has no aliases", key)
		}
		for _, a := range aliases {
			norm := strings.ToLower(strings.TrimSpace(a))
			if prev, dup := seen[norm]; dup && prev != key {
				t.Errorf("alias %q maps to both %q and %q", a, prev, key)
			}
			seen[norm] = key
		}
	}
	for _, key := range Keys {
		if _, ok := columnAliases[key]; !ok {
			t.Errorf("canonical key %q missing from alias table", key)
		}
	}
}

func TestCoerceBool(t *testing.T) {
	trueCases := []any{true, "true", "TRUE", " True ", "1", "yes", "YES", "✅"}
	for _, v := range trueCases {
		if !CoerceBool(v) {
			t.Errorf("CoerceBool(%v) = false, want true", v)
		}
	}
	falseCases := []any{false, "", "false", "0", "no", "❌", "maybe", nil, 1, 1.0}
	for _, v := range falseCases {
		if CoerceBool(v) {
			t.Errorf("CoerceBool(%v) = true, want false", v)
		}
	}
}

func TestRowDefaultsAndOverlay(t *testing.T) {
	record := Row(map[string]any{
		"Section":        "Issue",
		"Topic/Domain":   "Authoring",
		"title":          "Editor freezes",
		"Ticket_Link":    "https://tickets.example.com/1",
		"Add_To_Edition": "yes",
		"owner":          "dropped",
	})

	if len(record) != len(Keys) {
		t.Fatalf("expected %d keys, got %d: %v", len(Keys), len(record), record)
	}
	if record["type"] != "Issue" {
		t.Errorf("expected type 'Issue', got %v", record["type"])
	}
	if record["topic_domain"] != "Authoring" {
		t.Errorf("expected topic_domain 'Authoring', got %v", record["topic_domain"])
	}
	if record["customer"] != "" {
		t.Errorf("expected empty customer default, got %v", record["customer"])
	}
	if record["summary"] != "" {
		t.Errorf("expected empty summary default, got %v", record["summary"])
	}
	if record["url"] != "https://tickets.example.com/1" {
		t.Errorf("unexpected url: %v", record["url"])
	}
	if record["include"] != true {
		t.Errorf("expected include true, got %v", record["include"])
	}
	if _, leaked := record["owner"]; leaked {
		t.Error("unmapped column leaked into record")
	}
}

func TestRowNilCellMapsToEmptyString(t *testing.T) {
	record := Row(map[string]any{"title": nil})
	if record["title"] != "" {
		t.Errorf("expected empty string for nil cell, got %v", record["title"])
	}
}

// Canonical keys are themselves valid aliases, so re-normalizing already
// canonical records must be a no-op.
func TestRowsIdempotent(t *testing.T) {
	canonical := []map[string]any{{
		"type":         "Win",
		"topic_domain": "Reporting",
		"title":        "Faster exports",
		"customer":     "Acme",
		"summary":      "Export time halved",
		"url":          "",
		"include":      true,
	}}

	once := Rows(canonical)
	twice := Rows(once)
	for _, key := range Keys {
		if once[0][key] != twice[0][key] {
			t.Errorf("key %q changed on re-normalization: %v -> %v", key, once[0][key], twice[0][key])
		}
		if once[0][key] != canonical[0][key] {
			t.Errorf("key %q changed from canonical input: %v -> %v", key, canonical[0][key], once[0][key])
		}
	}
}

func TestReadCSV(t *testing.T) {
	data := `Section,Topic/Domain,Title,Customer,Subject Matter/Summary,Ticket_Link,Add_To_Edition?
Issue,Items,Broken preview,Acme,Preview fails to load,https://t.example/1,yes
Win,Reports,Great feedback,Globex,Customer praised reports,,no
`
	table, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	records := table.Normalize()
	if records[0]["include"] != true {
		t.Errorf("expected first row included, got %v", records[0]["include"])
	}
	if records[1]["include"] != false {
		t.Errorf("expected second row excluded, got %v", records[1]["include"])
	}
	if records[1]["type"] != "Win" {
		t.Errorf("expected type 'Win', got %v", records[1]["type"])
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	data := "Title,Customer\nShort row\nLong row,Acme,extra\n"
	table, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0]["Customer"] != "" {
		t.Errorf("expected padded empty cell, got %v", table.Rows[0]["Customer"])
	}
	if table.Rows[1]["Customer"] != "Acme" {
		t.Errorf("expected 'Acme', got %v", table.Rows[1]["Customer"])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(table.Rows))
	}
}

// Spreadsheet exports often lead with a UTF-8 byte order mark; it must
// not stick to the first header.
func TestReadCSVStripsBOM(t *testing.T) {
	data := "\uFEFFTitle,Customer\nBroken preview,Acme\n"
	table, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Headers[0] != "Title" {
		t.Errorf("expected BOM stripped from first header, got %q", table.Headers[0])
	}
	records := table.Normalize()
	if records[0]["title"] != "Broken preview" {
		t.Errorf("expected title resolved, got %v", records[0]["title"])
	}
}

// Two columns aliasing the same canonical key overlay in column order,
// so the later column wins.
func TestNormalizeDuplicateAliasColumnOrder(t *testing.T) {
	data := "Section,Ticket_Type,Title\nIssue,Win,Dupe\n"
	table, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := table.Normalize()
	if records[0]["type"] != "Win" {
		t.Errorf("expected later column to win, got %v", records[0]["type"])
	}
}

// Duplicate aliases in a map row overlay in sorted header order, so the
// winner never depends on map iteration order.
func TestRowDuplicateAliasDeterministic(t *testing.T) {
	row := map[string]any{"section": "Issue", "ticket_type": "Win", "title": "Dupe"}
	for i := 0; i < 50; i++ {
		if got := Row(row)["type"]; got != "Win" {
			t.Fatalf("iteration %d: expected 'Win', got %v", i, got)
		}
	}
}
