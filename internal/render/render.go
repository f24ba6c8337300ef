// Package render turns a validated publication context into the two
// output artifacts: a rich HTML document and a lightweight markdown copy.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/pressroom/supportmail/internal/press"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders publication contexts and writes the artifacts to an
// output directory.
type Renderer struct {
	outputDir string
	markdown  goldmark.Markdown
	shell     *template.Template
}

// New creates a renderer writing into outputDir (created on demand).
// Raw HTML must pass through the markdown converter because the trends
// section arrives as HTML.
func New(outputDir string) (*Renderer, error) {
	shell, err := template.ParseFS(templateFS, "templates/shell.html")
	if err != nil {
		return nil, fmt.Errorf("parsing shell template: %w", err)
	}
	return &Renderer{
		outputDir: outputDir,
		markdown:  goldmark.New(goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe())),
		shell:     shell,
	}, nil
}

// Publish renders both document formats and writes them next to each
// other under the root filename. The HTML artifact is always written; the
// markdown copy only when includeMarkdown is set. Returns the paths of
// every file written.
func (r *Renderer) Publish(ctx *press.Context, includeMarkdown bool) ([]string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	body := ComposeMarkdown(ctx)
	html, err := r.renderHTML(ctx, body)
	if err != nil {
		return nil, err
	}

	root := ctx.RootFilename()
	htmlPath := filepath.Join(r.outputDir, root+".html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", htmlPath, err)
	}
	paths := []string{htmlPath}

	if includeMarkdown {
		mdPath := filepath.Join(r.outputDir, root+".md")
		if err := os.WriteFile(mdPath, []byte(body), 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", mdPath, err)
		}
		paths = append(paths, mdPath)
	}

	log.Printf("Generated %d output file(s) for %s", len(paths), root)
	return paths, nil
}

// ComposeMarkdown assembles the markdown body for an edition: a header,
// one section per non-empty category bucket, and the optional trends
// section as raw HTML at the end.
func ComposeMarkdown(ctx *press.Context) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("# Support Mail — %s",
		ctx.EditionMonth.Format("January 2006")))
	sections = append(sections, fmt.Sprintf("_Published %s_",
		ctx.PublishDate.Format(press.DateFormat)))

	for _, category := range []press.Category{press.Issue, press.Oops, press.Win, press.News} {
		items := ctx.Items(category)
		if len(items) == 0 {
			continue
		}
		var lines []string
		lines = append(lines, fmt.Sprintf("## %s", sectionHeading(category)))
		for _, item := range items {
			lines = append(lines, itemMarkdown(item))
		}
		sections = append(sections, strings.Join(lines, "\n\n"))
	}

	if ctx.Content.TrendHTML != "" {
		sections = append(sections, "## Trends\n\n"+ctx.Content.TrendHTML)
	}

	return strings.Join(sections, "\n\n") + "\n"
}

func sectionHeading(category press.Category) string {
	switch category {
	case press.Issue:
		return "Issues"
	case press.Win:
		return "Wins"
	case press.Oops:
		return "Oops"
	case press.News:
		return "News"
	}
	return category.String()
}

func itemMarkdown(item map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s", stringValue(item, "title"))
	if customer := stringValue(item, "customer"); customer != "" {
		fmt.Fprintf(&b, " (%s)", customer)
	}
	b.WriteString("\n\n")
	if domain := stringValue(item, "domain"); domain != "" {
		fmt.Fprintf(&b, "**%s** — ", domain)
	}
	b.WriteString(stringValue(item, "summary"))
	if url := stringValue(item, "ticket_url"); url != "" {
		fmt.Fprintf(&b, "\n\n[View ticket](%s)", url)
	}
	return b.String()
}

func stringValue(item map[string]any, key string) string {
	if s, ok := item[key].(string); ok {
		return s
	}
	return ""
}

func (r *Renderer) renderHTML(ctx *press.Context, markdownBody string) ([]byte, error) {
	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(markdownBody), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var out bytes.Buffer
	err := r.shell.Execute(&out, map[string]any{
		"Title": fmt.Sprintf("Support Mail — %s", ctx.EditionMonth.Format("January 2006")),
		"Body":  template.HTML(body.String()), //nolint: gosec
	})
	if err != nil {
		return nil, fmt.Errorf("rendering HTML shell: %w", err)
	}
	return out.Bytes(), nil
}
