// Package server is the local web front end: a single form that accepts
// JSON or CSV content and drives the publication pipeline. It replaces
// nothing in the core; every run goes through the same pipeline the CLI
// uses.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/pressroom/supportmail/internal/normalize"
	"github.com/pressroom/supportmail/internal/pipeline"
	"github.com/pressroom/supportmail/internal/press"
	"github.com/pressroom/supportmail/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New(goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()))

// placeholderJSON pre-fills the content textarea so users see the
// expected payload shape.
const placeholderJSON = `{
    "publish_date": "null",
    "content": {
        "issues": [],
        "oops": [],
        "wins": [],
        "news": []
    }
}`

// Server serves the publication form and runs submitted editions.
type Server struct {
	pipe      *pipeline.Pipeline
	outputDir string
	pages     map[string]*template.Template
	mux       *http.ServeMux
}

// New creates a new Server publishing into outputDir.
func New(pipe *pipeline.Pipeline, outputDir string) (*Server, error) {
	// Parse base template first
	base, err := template.New("base.html").ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the
	// clone so each page gets its own {{define "content"}}.
	pageNames := []string{"index.html", "result.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{pipe: pipe, outputDir: outputDir, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/publish", s.handlePublish)
	s.mux.Handle("/files/", http.StripPrefix("/files/",
		http.FileServer(http.Dir(s.outputDir))))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "index.html", map[string]any{
		"PlaceholderJSON": placeholderJSON,
		"Today":           time.Now().Format(press.DateFormat),
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "Bad form submission", http.StatusBadRequest)
		return
	}

	records, sourceErr := s.resolveRecords(r)
	if sourceErr != nil {
		s.render(w, "result.html", map[string]any{"SourceError": sourceErr.Error()})
		return
	}

	publishDate := time.Now()
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		parsed, err := time.Parse(press.DateFormat, raw)
		if err != nil {
			s.render(w, "result.html", map[string]any{
				"SourceError": fmt.Sprintf("Invalid date %q, use YYYY-MM-DD", raw),
			})
			return
		}
		publishDate = parsed
	}

	trendHTML := strings.TrimSpace(r.FormValue("trends"))
	includeMarkdown := r.FormValue("markdown") != ""

	result := s.pipe.Run(r.Context(), publishDate, records, trendHTML, includeMarkdown)
	s.render(w, "result.html", resultView(result))
}

// resolveRecords extracts records from exactly one of the JSON textarea
// or the CSV upload; the two sources are mutually exclusive.
func (s *Server) resolveRecords(r *http.Request) ([]map[string]any, error) {
	jsonText := strings.TrimSpace(r.FormValue("json"))
	if jsonText == strings.TrimSpace(placeholderJSON) {
		// Untouched placeholder is not content.
		jsonText = ""
	}

	file, header, fileErr := r.FormFile("csv")
	// Browsers submit an empty file part when no file is chosen.
	hasCSV := fileErr == nil && header.Filename != ""
	if fileErr == nil && !hasCSV {
		file.Close()
	}

	switch {
	case jsonText == "" && !hasCSV:
		return nil, fmt.Errorf("provide JSON content or upload a CSV file")
	case jsonText != "" && hasCSV:
		file.Close()
		return nil, fmt.Errorf("JSON content and CSV upload are mutually exclusive")
	case hasCSV:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		table, err := normalize.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return table.Normalize(), nil
	default:
		return press.ParseJSON([]byte(jsonText))
	}
}

type stepView struct {
	Name    string
	Summary string
	Err     string
}

type fileView struct {
	Name string
	Href string
}

func resultView(result *pipeline.Result) map[string]any {
	var steps []stepView
	for _, step := range result.Steps {
		view := stepView{Name: step.Name, Summary: step.Summary}
		if step.Err != nil {
			view.Err = step.Err.Error()
		}
		steps = append(steps, view)
	}

	var files []fileView
	for _, path := range result.OutputPaths {
		name := filepath.Base(path)
		files = append(files, fileView{Name: name, Href: "/files/" + name})
	}

	view := map[string]any{
		"Steps":    steps,
		"Files":    files,
		"Rendered": result.State == pipeline.Rendered,
	}
	if result.State == pipeline.Rendered {
		view["Preview"] = renderMarkdown(render.ComposeMarkdown(result.Context))
	}
	return view
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(pipe *pipeline.Pipeline, outputDir string, port int) error {
	srv, err := New(pipe, outputDir)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
