package mend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/mend/internal/platform"
	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

// --- Configuration ---

// Config is the operator configuration (see platform.Config).
type Config = platform.Config

// Option defines a functional option for configuring Open.
type Option = platform.Option

// Prompter asks the operator for a secret.
type Prompter = platform.Prompter

// WithLogger sets the logger for the adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore allows injecting a custom store.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithPrompter replaces the terminal prompter used when no token is configured.
func WithPrompter(p Prompter) Option {
	return platform.WithPrompter(p)
}

// WithHTTPClient sets the HTTP client used by the sanity adapter.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// --- Factory ---

// LoadConfig resolves the configuration from a file, the environment and
// explicit overrides, in increasing order of precedence.
func LoadConfig(path string, overrides Config) (Config, error) {
	return platform.Resolve(path, overrides, nil)
}

// Open builds the store described by cfg.
func Open(cfg Config, opts ...Option) (core.Store, error) {
	return platform.Open(cfg, opts...)
}

// New creates a core.Service around the store described by cfg.
func New(cfg Config, opts ...Option) (*core.Service, error) {
	return platform.New(cfg, opts...)
}

// --- Operations ---

// Normalize returns a copy of v in which every object inside an array has a unique _key.
func Normalize(v core.Value) core.Value {
	return core.Normalize(v)
}

// Repair runs the key fixer over the documents matched by query and
// writes back the ones that changed.
func Repair(ctx context.Context, store core.Store, query string, opts ...repair.Option) (repair.Report, error) {
	return repair.New(store, opts...).Run(ctx, query)
}

// FindRoot recursively looks upwards for a directory holding mend.yaml, .mend or .git.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
