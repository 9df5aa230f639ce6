package platform

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/mend/pkg/core"
)

// options holds the internal configuration for Open.
type options struct {
	store        core.Store
	logger       *slog.Logger
	prompter     Prompter
	httpClient   *http.Client
	baseURL      string
	errorHandler func(error)
}

// Option defines a functional option for configuring Open.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		prompter: TerminalPrompter{},
	}
}

// WithLogger sets the logger handed to the adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a store (e.g. a mock). The configured adapter is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithPrompter replaces the terminal prompter used when no token is
// configured. A nil prompter disables prompting.
func WithPrompter(p Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// WithHTTPClient sets the HTTP client of the sanity adapter.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithBaseURL points the sanity adapter at another host, such as a test server.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithWatcherErrorHandler registers a callback for errors of the fs watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
