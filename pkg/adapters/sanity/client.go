// Package sanity implements core.Store over the Sanity HTTP API
// (query, document and mutate endpoints).
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/mend/pkg/core"
)

// DefaultAPIVersion is the dated API version used when none is configured.
const DefaultAPIVersion = "2021-10-21"

// Config holds the connection settings of a Client.
type Config struct {
	ProjectID  string
	Dataset    string
	Token      string
	APIVersion string
	BaseURL    string // defaults to https://<project>.api.sanity.io
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Validate checks that the identity and credential are present.
func (c Config) Validate() error {
	if c.ProjectID == "" || c.Dataset == "" {
		return fmt.Errorf("%w: project id and dataset are required", core.ErrMissingIdentity)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: api token is required", core.ErrMissingCredential)
	}
	return nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sanity api: %d %s", e.StatusCode, e.Message)
}

// Client talks to one dataset.
type Client struct {
	config Config
	base   string
	http   *http.Client
	logger *slog.Logger

	requests atomic.Int64
	failures atomic.Int64
}

// NewClient creates a client. The configuration is validated first so
// that no request is ever sent without credentials.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = "https://" + config.ProjectID + ".api.sanity.io"
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		base:   base + "/v" + strings.TrimPrefix(config.APIVersion, "v"),
		http:   httpClient,
		logger: logger,
	}, nil
}

// Fetch runs a GROQ query. Object and null results are turned into a
// list; non-object array members are skipped.
func (c *Client) Fetch(ctx context.Context, query string) ([]core.Mapping, error) {
	endpoint := c.base + "/data/query/" + url.PathEscape(c.config.Dataset) + "?query=" + url.QueryEscape(query)

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}

	v, err := core.Decode(bytes.NewReader(resp.Result))
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case core.Sequence:
		docs := make([]core.Mapping, 0, len(t))
		for _, e := range t {
			if m, ok := e.(core.Mapping); ok {
				docs = append(docs, m)
			}
		}
		return docs, nil
	case core.Mapping:
		return []core.Mapping{t}, nil
	default:
		return nil, nil
	}
}

// Get fetches one document by id.
func (c *Client) Get(ctx context.Context, id string) (core.Mapping, bool, error) {
	endpoint := c.base + "/data/doc/" + url.PathEscape(c.config.Dataset) + "/" + url.PathEscape(id)

	var resp struct {
		Documents []core.Mapping `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, false, err
	}
	if len(resp.Documents) == 0 {
		return nil, false, nil
	}
	return resp.Documents[0], true, nil
}

// PutReplace sends a createOrReplace mutation and waits for it to be visible.
func (c *Client) PutReplace(ctx context.Context, doc core.Mapping) error {
	if doc.ID() == "" {
		return fmt.Errorf("%w: document has no _id", core.ErrInvalidDocument)
	}
	endpoint := c.base + "/data/mutate/" + url.PathEscape(c.config.Dataset) + "?visibility=sync"

	body := map[string]any{
		"mutations": []any{
			map[string]any{"createOrReplace": doc},
		},
	}
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

// TypeQuery implements core.TypeQuerier.
func (c *Client) TypeQuery(docType string) string {
	return fmt.Sprintf("*[_type == %q]", docType)
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.requests.Add(1)
	c.logger.Debug("sanity request", "method", method, "url", endpoint)

	res, err := c.http.Do(req)
	if err != nil {
		c.failures.Add(1)
		return fmt.Errorf("sanity request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		c.failures.Add(1)
		return fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.failures.Add(1)
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// errorMessage extracts the most useful message from an error body.
func errorMessage(data []byte) string {
	var payload struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error.Description != "" {
			return payload.Error.Description
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
