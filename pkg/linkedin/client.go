// Package linkedin provides a client for the RapidAPI "Fresh LinkedIn Profile
// Data" service.
package linkedin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://fresh-linkedin-profile-data.p.rapidapi.com"
	defaultHost    = "fresh-linkedin-profile-data.p.rapidapi.com"
)

// Client fetches a public professional profile by URL.
type Client interface {
	GetProfile(ctx context.Context, profileURL string) (*Profile, error)
}

// Profile is the subset of the profile document the pipeline consumes.
type Profile struct {
	About               string       `json:"about,omitempty"`
	Experiences         []Experience `json:"experiences,omitempty"`
	Educations          []Education  `json:"educations,omitempty"`
	Languages           []Language   `json:"languages,omitempty"`
	FollowerCount       *int         `json:"follower_count,omitempty"`
	ConnectionCount     *int         `json:"connection_count,omitempty"`
	Location            string       `json:"location,omitempty"`
	Company             string       `json:"company,omitempty"`
	JobTitle            string       `json:"job_title,omitempty"`
	CurrentCompanyStart string       `json:"current_company_start,omitempty"`
}

// Experience is one position on the profile.
type Experience struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	IsCurrent   bool   `json:"is_current,omitempty"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
}

// Education is one school entry on the profile.
type Education struct {
	School       string `json:"school,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	DateRange    string `json:"date_range,omitempty"`
}

// Language is a language the person lists.
type Language struct {
	Name        string `json:"name,omitempty"`
	Proficiency string `json:"proficiency,omitempty"`
}

type profileEnvelope struct {
	Data    *Profile `json:"data"`
	Message string   `json:"message"`
}

// excludedSections are requested off to keep the payload small.
var excludedSections = []string{
	"include_skills",
	"include_certifications",
	"include_publications",
	"include_honors",
	"include_volunteers",
	"include_projects",
	"include_patents",
	"include_courses",
	"include_organizations",
	"include_profile_status",
	"include_company_public_url",
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHost overrides the X-RapidAPI-Host header.
func WithHost(host string) Option {
	return func(c *httpClient) {
		c.host = host
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
	host    string
	http    *http.Client
}

// NewClient creates a profile API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		host:    defaultHost,
		http: &http.Client{
			Timeout: 45 * time.Second,
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

func (c *httpClient) GetProfile(ctx context.Context, profileURL string) (*Profile, error) {
	if profileURL == "" {
		return nil, eris.New("linkedin: profile url is required")
	}

	q := url.Values{}
	q.Set("linkedin_url", profileURL)
	for _, s := range excludedSections {
		q.Set(s, "false")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-linkedin-profile?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("linkedin: unexpected status %d for %s", resp.StatusCode, profileURL)
	}

	var env profileEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "linkedin: unmarshal response")
	}
	if env.Data == nil {
		return nil, eris.Errorf("linkedin: empty profile for %s: %s", profileURL, env.Message)
	}

	return env.Data, nil
}
