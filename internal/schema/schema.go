// Package schema validates publication payloads against the support mail
// JSON Schema. The schema is loaded once per process from a local file,
// falling back to one remote fetch, and cached read-only after that.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kaptinlin/jsonschema"
)

// EnvSchemaPath overrides the configured local schema path when set.
const EnvSchemaPath = "SUPPORTMAIL_SCHEMA"

// DefaultSchemaJSON is the schema document shipped with the binary. The
// init command writes it out as the local copy.
//
//go:embed support_mail.schema.json
var DefaultSchemaJSON []byte

// Loader resolves, caches, and applies the validation schema. The load
// happens at most once for the loader's lifetime; a failed load is cached
// too, degrading every subsequent validation to a logged failure rather
// than a retry.
type Loader struct {
	path   string
	url    string
	client *resty.Client

	once     sync.Once
	compiled *jsonschema.Schema
	raw      []byte
	loadErr  error
}

// NewLoader creates a loader for a local path with a remote fallback URL.
func NewLoader(path, url string) *Loader {
	return &Loader{
		path:   path,
		url:    url,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

// Load returns the compiled schema, performing at most one underlying
// file read or network fetch per loader lifetime. When both the local
// file and the remote copy are unusable the loader degrades: Load returns
// the recorded error and validation fails closed from then on. The
// context bounds the remote fetch of the first call only.
func (l *Loader) Load(ctx context.Context) (*jsonschema.Schema, error) {
	l.once.Do(func() { l.load(ctx) })
	return l.compiled, l.loadErr
}

func (l *Loader) load(ctx context.Context) {
	raw, err := l.readLocal()
	if err != nil {
		if !os.IsNotExist(err) {
			l.loadErr = fmt.Errorf("reading schema: %w", err)
			log.Printf("Schema load failed: %v", l.loadErr)
			return
		}
		log.Printf("Schema file not found at %s, fetching %s", l.resolvePath(), l.url)
		raw, err = l.fetchRemote(ctx)
		if err != nil {
			l.loadErr = fmt.Errorf("fetching remote schema: %w", err)
			log.Printf("Schema load failed: %v", l.loadErr)
			return
		}
	}

	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		// The schema document exists but is not valid JSON Schema.
		// Keep the loader degraded so validation fails closed.
		l.loadErr = fmt.Errorf("compiling schema: %w", err)
		log.Printf("Schema load failed: %v", l.loadErr)
		return
	}

	l.raw = raw
	l.compiled = compiled
	log.Printf("Validation schema loaded and cached")
}

func (l *Loader) resolvePath() string {
	if override := os.Getenv(EnvSchemaPath); override != "" {
		return override
	}
	return l.path
}

func (l *Loader) readLocal() ([]byte, error) {
	path := l.resolvePath()
	if path == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(path)
}

func (l *Loader) fetchRemote(ctx context.Context) ([]byte, error) {
	if l.url == "" {
		return nil, fmt.Errorf("no remote schema URL configured")
	}
	resp, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("remote schema returned %s", resp.Status())
	}
	return resp.Body(), nil
}

// Raw returns the loaded schema document, or the embedded default when the
// loader is degraded or not yet loaded.
func (l *Loader) Raw() []byte {
	if l.raw != nil {
		return l.raw
	}
	return DefaultSchemaJSON
}

// Validate checks a publication payload against the schema. It never
// panics: a degraded loader, a schema mismatch, or an unexpected failure
// inside the validation library all log the reason and return false.
func (l *Loader) Validate(ctx context.Context, payload map[string]any) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Unexpected error during validation: %v", r)
			valid = false
		}
	}()

	compiled, err := l.Load(ctx)
	if err != nil || compiled == nil {
		log.Printf("Validation schema is not loaded, cannot validate input: %v", err)
		return false
	}

	result := compiled.Validate(payload)
	if !result.Valid {
		log.Printf("Validation failed: %v", result.Errors)
		return false
	}
	return true
}
