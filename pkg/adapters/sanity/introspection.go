package sanity

import (
	"github.com/aretw0/introspection"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	ProjectID  string `json:"project_id"`
	Dataset    string `json:"dataset"`
	APIVersion string `json:"api_version"`
	BaseURL    string `json:"base_url"`
	Requests   int64  `json:"requests"`
	Failures   int64  `json:"failures"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		ProjectID:  c.config.ProjectID,
		Dataset:    c.config.Dataset,
		APIVersion: c.config.APIVersion,
		BaseURL:    c.base,
		Requests:   c.requests.Load(),
		Failures:   c.failures.Load(),
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "sanity"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
