package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func validPayload() map[string]any {
	return map[string]any{
		"publish_date":  "2025-03-15",
		"edition_month": "2025-02-01",
		"content": map[string]any{
			"issues": []any{map[string]any{
				"title":     "Broken preview",
				"customer":  "Acme",
				"summary":   "Preview fails to load",
				"item_type": "Issue",
			}},
			"oops":       []any{},
			"wins":       []any{},
			"news":       []any{},
			"trend_html": "",
		},
	}
}

// payloadItem returns the single issue item of validPayload for mutation.
func payloadItem(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	content := payload["content"].(map[string]any)
	return content["issues"].([]any)[0].(map[string]any)
}

func writeSchema(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "support_mail.schema.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}
	return path
}

func TestValidatePayload(t *testing.T) {
	loader := NewLoader(writeSchema(t, DefaultSchemaJSON), "")
	if !loader.Validate(context.Background(), validPayload()) {
		t.Error("expected valid payload to pass")
	}
}

func TestValidateRejectsMissingContent(t *testing.T) {
	loader := NewLoader(writeSchema(t, DefaultSchemaJSON), "")
	payload := validPayload()
	delete(payload, "content")
	if loader.Validate(context.Background(), payload) {
		t.Error("expected payload without content to fail")
	}
}

// Every per-item required field must actually be enforced, not just the
// top-level keys.
func TestValidateRejectsItemMissingField(t *testing.T) {
	for _, field := range []string{"title", "customer", "summary", "item_type"} {
		loader := NewLoader(writeSchema(t, DefaultSchemaJSON), "")
		payload := validPayload()
		delete(payloadItem(t, payload), field)
		if loader.Validate(context.Background(), payload) {
			t.Errorf("expected item without %s to fail", field)
		}
	}
}

func TestValidateRejectsUnknownItemType(t *testing.T) {
	loader := NewLoader(writeSchema(t, DefaultSchemaJSON), "")
	payload := validPayload()
	payloadItem(t, payload)["item_type"] = "Bug"
	if loader.Validate(context.Background(), payload) {
		t.Error("expected unknown item_type to fail")
	}
}

func TestLoadCachesLocalRead(t *testing.T) {
	loader := NewLoader(writeSchema(t, DefaultSchemaJSON), "")
	first, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("expected the same cached schema on repeated loads")
	}
}

func TestRemoteFallbackFetchesOnce(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(DefaultSchemaJSON)
	}))
	defer srv.Close()

	loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"), srv.URL)
	if !loader.Validate(context.Background(), validPayload()) {
		t.Error("expected validation to pass with remote schema")
	}
	if !loader.Validate(context.Background(), validPayload()) {
		t.Error("expected second validation to pass from cache")
	}
	if hits != 1 {
		t.Errorf("expected exactly 1 remote fetch, got %d", hits)
	}
}

func TestDegradedLoaderFailsClosed(t *testing.T) {
	loader := NewLoader(writeSchema(t, []byte("{not json")), "")
	if loader.Validate(context.Background(), validPayload()) {
		t.Error("expected degraded loader to reject every payload")
	}
	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("expected Load to report the cached failure")
	}
}

func TestBothSourcesUnavailableFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"), srv.URL)
	if loader.Validate(context.Background(), validPayload()) {
		t.Error("expected validation to fail with no usable schema source")
	}
}

func TestEnvOverridesSchemaPath(t *testing.T) {
	override := writeSchema(t, DefaultSchemaJSON)
	t.Setenv(EnvSchemaPath, override)

	loader := NewLoader(filepath.Join(t.TempDir(), "missing.json"), "")
	if !loader.Validate(context.Background(), validPayload()) {
		t.Error("expected env-overridden schema path to be used")
	}
}
