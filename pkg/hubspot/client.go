// Package hubspot is a minimal client for the HubSpot CRM objects API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/invoice-intake/internal/resilience"
)

const (
	defaultBaseURL = "https://api.hubapi.com"
	companiesPath  = "/crm/v3/objects/companies"
)

// Client defines the HubSpot operations used by the integration dispatcher.
type Client interface {
	CreateCompany(ctx context.Context, properties map[string]string) (*Object, error)
}

// Object is a created CRM object.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"createdAt"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a HubSpot client authenticating with a private app token.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type createRequest struct {
	Properties map[string]string `json:"properties"`
}

// CreateCompany creates one company object. Any status other than
// 201 Created is returned as a *resilience.StatusError.
func (c *httpClient) CreateCompany(ctx context.Context, properties map[string]string) (*Object, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limit")
	}

	body, err := json.Marshal(createRequest{Properties: properties})
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+companiesPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: read response")
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, resilience.NewStatusError(resp.StatusCode, string(respBody))
	}

	var obj Object
	if err := json.Unmarshal(respBody, &obj); err != nil {
		return nil, eris.Wrap(err, "hubspot: unmarshal response")
	}
	return &obj, nil
}
