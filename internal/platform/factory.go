// Package platform wires configuration, credentials and adapters into a
// ready core.Store.
package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/mend/pkg/adapters/fs"
	"github.com/aretw0/mend/pkg/adapters/sanity"
	"github.com/aretw0/mend/pkg/adapters/sqlite"
	"github.com/aretw0/mend/pkg/core"
)

// Open validates cfg and builds the configured store. No network request
// is made before the configuration, credential included, is complete.
func Open(cfg Config, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.store != nil {
		return o.store, nil
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Adapter {
	case AdapterSanity:
		return openSanity(cfg, o)
	case AdapterFS:
		return openFS(cfg, o)
	case AdapterSQLite:
		return sqlite.Open(cfg.Path,
			sqlite.WithReadOnly(cfg.ReadOnly),
			sqlite.WithMkdirAll(),
			sqlite.WithLogger(o.logger),
		)
	}
	return nil, fmt.Errorf("unknown adapter: %s", cfg.Adapter)
}

// New opens the store and wraps it in a core.Service.
func New(cfg Config, opts ...Option) (*core.Service, error) {
	store, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return core.NewService(store), nil
}

func openSanity(cfg Config, o *options) (core.Store, error) {
	check := sanity.Config{ProjectID: cfg.ProjectID, Dataset: cfg.Dataset, Token: "-"}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	cfg, err := resolveToken(cfg, o.prompter)
	if err != nil {
		return nil, err
	}
	return sanity.NewClient(sanity.Config{
		ProjectID:  cfg.ProjectID,
		Dataset:    cfg.Dataset,
		Token:      cfg.Token,
		APIVersion: cfg.APIVersion,
		BaseURL:    o.baseURL,
		HTTPClient: o.httpClient,
		Logger:     o.logger,
	})
}

func openFS(cfg Config, o *options) (core.Store, error) {
	store := fs.NewStore(fs.Config{
		Path:         cfg.Path,
		ReadOnly:     cfg.ReadOnly,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}
