package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pressroom/supportmail/internal/press"
)

func testContext(t *testing.T) *press.Context {
	t.Helper()
	publish, err := time.Parse(press.DateFormat, "2025-03-15")
	if err != nil {
		t.Fatalf("bad test date: %v", err)
	}
	ctx := press.NewContext(publish)
	_, err = ctx.Collate([]map[string]any{
		{"type": "Issue", "topic_domain": "Items", "title": "Broken preview", "customer": "Acme",
			"summary": "Preview fails to load", "url": "https://t.example/1", "include": true},
		{"type": "Win", "topic_domain": "Reports", "title": "Faster exports", "customer": "Globex",
			"summary": "Export time halved", "url": "", "include": true},
	})
	if err != nil {
		t.Fatalf("collate failed: %v", err)
	}
	return ctx
}

func TestComposeMarkdown(t *testing.T) {
	ctx := testContext(t)
	ctx.Content.TrendHTML = "<p>ticket volume down 12%</p>"

	body := ComposeMarkdown(ctx)
	for _, want := range []string{
		"# Support Mail — February 2025",
		"_Published 2025-03-15_",
		"## Issues",
		"### Broken preview (Acme)",
		"[View ticket](https://t.example/1)",
		"## Wins",
		"**Reports** — Export time halved",
		"## Trends",
		"<p>ticket volume down 12%</p>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("markdown body missing %q", want)
		}
	}
	// Empty buckets get no section heading.
	if strings.Contains(body, "## News") {
		t.Error("expected empty news bucket to be omitted")
	}
}

func TestPublishWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	renderer, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	paths, err := renderer.Publish(testContext(t), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(paths), paths)
	}

	htmlPath := filepath.Join(dir, "2025_support_mail_15.html")
	mdPath := filepath.Join(dir, "2025_support_mail_15.md")
	if paths[0] != htmlPath || paths[1] != mdPath {
		t.Errorf("unexpected paths: %v", paths)
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("failed to read HTML artifact: %v", err)
	}
	for _, want := range []string{"<!DOCTYPE html>", "Broken preview", "Support Mail — February 2025"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("HTML artifact missing %q", want)
		}
	}
}

func TestPublishWithoutMarkdown(t *testing.T) {
	dir := t.TempDir()
	renderer, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	paths, err := renderer.Publish(testContext(t), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected only the HTML artifact, got %v", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "2025_support_mail_15.md")); !os.IsNotExist(err) {
		t.Error("expected no markdown artifact")
	}
}

func TestPublishPassesTrendHTMLThrough(t *testing.T) {
	dir := t.TempDir()
	renderer, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	ctx := testContext(t)
	ctx.Content.TrendHTML = "<table><tr><td>42</td></tr></table>"
	if _, err := renderer.Publish(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html, err := os.ReadFile(filepath.Join(dir, "2025_support_mail_15.html"))
	if err != nil {
		t.Fatalf("failed to read HTML artifact: %v", err)
	}
	if !strings.Contains(string(html), "<table>") {
		t.Error("expected raw trend HTML to survive markdown conversion")
	}
}
