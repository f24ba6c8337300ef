// Package pipeline sequences a publication run: collate the records into
// a fresh context, validate the assembled payload against the schema, and
// hand the context to the renderer.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pressroom/supportmail/internal/config"
	"github.com/pressroom/supportmail/internal/press"
	"github.com/pressroom/supportmail/internal/render"
	"github.com/pressroom/supportmail/internal/schema"
)

// State is where a run ended.
type State int

const (
	// Rejected means collation or validation refused the content; no
	// artifacts were produced.
	Rejected State = iota
	// Rendered means the run passed validation and both artifacts were
	// written.
	Rendered
	// RenderFailed means the content validated but the renderer
	// reported an error. The collated context is preserved, so a retry
	// can reuse it instead of re-collating.
	RenderFailed
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a publication run.
type Result struct {
	State       State
	Steps       []StepResult
	Context     *press.Context
	Counts      *press.CollateResult
	OutputPaths []string
}

// Pipeline runs publications. Runs are serialized: only one run at a time
// builds an edition context, so two interleaved runs can never write into
// each other's buckets. The schema loader is shared and load-once.
type Pipeline struct {
	cfg      *config.Config
	schemas  *schema.Loader
	renderer *render.Renderer

	mu sync.Mutex
}

// New creates a pipeline from configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	renderer, err := render.New(cfg.GetOutputDir())
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	return &Pipeline{
		cfg:      cfg,
		schemas:  schema.NewLoader(cfg.GetSchemaPath(), cfg.Schema.URL),
		renderer: renderer,
	}, nil
}

// NewWithLoader creates a pipeline with an explicit schema loader.
func NewWithLoader(cfg *config.Config, loader *schema.Loader) (*Pipeline, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p.schemas = loader
	return p, nil
}

// Run executes one publication: collate -> validate -> render.
func (p *Pipeline) Run(ctx context.Context, publishDate time.Time, records []map[string]any, trendHTML string, includeMarkdown bool) *Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := &Result{Context: press.NewContext(publishDate)}
	r.Context.Content.TrendHTML = trendHTML

	// Step 1: Collate
	step := p.runCollate(r, records)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		r.State = Rejected
		return r
	}

	// Step 2: Validate
	step = p.runValidate(ctx, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		r.State = Rejected
		return r
	}

	// Step 3: Render
	step = p.runRender(r, includeMarkdown)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		r.State = RenderFailed
		return r
	}

	r.State = Rendered
	return r
}

func (p *Pipeline) runCollate(r *Result, records []map[string]any) StepResult {
	log.Println("Step 1/3: Collating records...")
	counts, err := r.Context.Collate(records)
	if err != nil {
		// All-or-nothing: a failed pass leaves no trustworthy content.
		return StepResult{Name: "Collate", Err: fmt.Errorf("content not ready for publishing: %w", err)}
	}
	r.Counts = counts
	return StepResult{
		Name: "Collate",
		Summary: fmt.Sprintf("Collated %d of %d record(s): %d issues, %d wins, %d oops, %d news",
			counts.Collated(), counts.Submitted, counts.Issues, counts.Wins, counts.Oops, counts.News),
	}
}

func (p *Pipeline) runValidate(ctx context.Context, r *Result) StepResult {
	log.Println("Step 2/3: Validating publication payload...")
	if !p.schemas.Validate(ctx, r.Context.ValidationPayload()) {
		return StepResult{
			Name: "Validate",
			Err:  fmt.Errorf("unable to publish due to validation failure"),
		}
	}
	return StepResult{Name: "Validate", Summary: "Payload conforms to the support mail schema"}
}

func (p *Pipeline) runRender(r *Result, includeMarkdown bool) StepResult {
	log.Println("Step 3/3: Rendering artifacts...")
	paths, err := p.renderer.Publish(r.Context, includeMarkdown)
	if err != nil {
		return StepResult{Name: "Render", Err: fmt.Errorf("rendering failed: %w", err)}
	}
	r.OutputPaths = paths
	return StepResult{Name: "Render", Summary: fmt.Sprintf("Wrote %d file(s)", len(paths))}
}
