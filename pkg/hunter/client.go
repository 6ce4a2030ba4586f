// Package hunter provides a client for the Hunter.io domain search API.
package hunter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.hunter.io/v2"
	defaultLimit   = 50
)

// Client looks up the email addresses published for a domain.
type Client interface {
	DomainSearch(ctx context.Context, req DomainSearchRequest) (*DomainSearchResponse, error)
}

// DomainSearchRequest holds the query parameters for GET /domain-search.
type DomainSearchRequest struct {
	Domain string
	Offset int
	Limit  int
}

// DomainSearchResponse is the response from GET /domain-search.
type DomainSearchResponse struct {
	Data DomainData `json:"data"`
	Meta Meta       `json:"meta"`
}

// DomainData holds the organization and its discovered emails.
type DomainData struct {
	Domain       string  `json:"domain"`
	Organization string  `json:"organization"`
	Pattern      string  `json:"pattern"`
	Emails       []Email `json:"emails"`
}

// Email is a single contact found for the domain.
type Email struct {
	Value       string  `json:"value"`
	Type        string  `json:"type"`
	Confidence  *int    `json:"confidence"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Position    *string `json:"position"`
	Seniority   *string `json:"seniority"`
	Department  *string `json:"department"`
	LinkedIn    *string `json:"linkedin"`
	Twitter     *string `json:"twitter"`
	PhoneNumber *string `json:"phone_number"`
}

// Meta reports pagination state.
type Meta struct {
	Results int `json:"results"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Hunter.io API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) DomainSearch(ctx context.Context, req DomainSearchRequest) (*DomainSearchResponse, error) {
	if req.Domain == "" {
		return nil, eris.New("hunter: domain is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	q := url.Values{}
	q.Set("domain", req.Domain)
	q.Set("limit", strconv.Itoa(limit))
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domain-search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// *url.Error repeats the request URL; keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, eris.Wrap(err, "hunter: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "hunter: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("hunter: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var result DomainSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "hunter: unmarshal response")
	}

	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
