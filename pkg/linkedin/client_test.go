package linkedin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `{
	"data": {
		"about": "Builds data platforms.",
		"experiences": [
			{"title": "CTO", "company": "Acme", "date_range": "2021 - Present", "is_current": true, "start_year": 2021},
			{"title": "Engineer", "company": "Initech", "start_year": 2015, "end_year": 2021}
		],
		"educations": [{"school": "NTNU", "degree": "Master", "field_of_study": "Computer Science"}],
		"languages": [{"name": "Norwegian"}],
		"follower_count": 1200,
		"connection_count": 500,
		"location": "Oslo",
		"company": "Acme",
		"job_title": "CTO",
		"current_company_start": "2021-03"
	}
}`

func TestGetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get-linkedin-profile", r.URL.Path)
		assert.Equal(t, "https://www.linkedin.com/in/annlee", r.URL.Query().Get("linkedin_url"))
		assert.Equal(t, "false", r.URL.Query().Get("include_skills"))
		assert.Equal(t, "false", r.URL.Query().Get("include_company_public_url"))
		assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "example.rapidapi.com", r.Header.Get("X-RapidAPI-Host"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleProfile))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithHost("example.rapidapi.com"))
	p, err := client.GetProfile(context.Background(), "https://www.linkedin.com/in/annlee")
	require.NoError(t, err)

	assert.Equal(t, "Builds data platforms.", p.About)
	assert.Len(t, p.Experiences, 2)
	assert.True(t, p.Experiences[0].IsCurrent)
	assert.Equal(t, "Master", p.Educations[0].Degree)
	require.NotNil(t, p.FollowerCount)
	assert.Equal(t, 1200, *p.FollowerCount)
	require.NotNil(t, p.ConnectionCount)
	assert.Equal(t, 500, *p.ConnectionCount)
	assert.Equal(t, "2021-03", p.CurrentCompanyStart)
}

func TestGetProfile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "not_found", status: http.StatusNotFound, body: `{"message":"no profile"}`, wantErr: "unexpected status 404"},
		{name: "rate_limit", status: http.StatusTooManyRequests, body: `{}`, wantErr: "unexpected status 429"},
		{name: "malformed", status: http.StatusOK, body: `<html>`, wantErr: "unmarshal response"},
		{name: "missing_data", status: http.StatusOK, body: `{"message":"profile is private"}`, wantErr: "empty profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("k", WithBaseURL(srv.URL))
			p, err := client.GetProfile(context.Background(), "https://www.linkedin.com/in/x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, p)
		})
	}
}

func TestGetProfile_EmptyURL(t *testing.T) {
	client := NewClient("k")
	_, err := client.GetProfile(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile url is required")
}
