// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/internal/logging"
)

func newClient(url string) *Client {
	return &Client{
		Token:   "pat-test",
		BaseURL: url,
		Logger:  logging.Discard(),
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestCleanDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.TorchysTacos.com/menu", "torchystacos.com"},
		{"http://taq.com?x=1", "taq.com"},
		{"taq.com", "taq.com"},
		{" www.taq.com/ ", "taq.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanDomain(tt.in), tt.in)
	}
}

func TestFindCompanyByDomain(t *testing.T) {
	var got searchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm/v3/objects/companies/search", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results":[{"id":"101","properties":{"name":"Taq","domain":"taq.com"}}]}`))
	}))
	defer ts.Close()

	company, err := newClient(ts.URL).FindCompanyByDomain(context.Background(), "https://www.taq.com/menu")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "101", company.ID)
	assert.Equal(t, "Taq", company.Properties["name"])

	require.Len(t, got.FilterGroups, 1)
	assert.Equal(t, []searchFilter{{PropertyName: "domain", Operator: "CONTAINS_TOKEN", Value: "taq.com"}}, got.FilterGroups[0].Filters)
	assert.Equal(t, 1, got.Limit)
}

func TestFindCompanyByDomainNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer ts.Close()

	company, err := newClient(ts.URL).FindCompanyByDomain(context.Background(), "taq.com")
	require.NoError(t, err)
	assert.Nil(t, company)
}

func TestWriteExtraction(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		data  string
		check func(t *testing.T, props map[string]string)
	}{
		{
			name: "menu",
			kind: "menu",
			data: `{"menuSections":[{"sectionName":"Tacos","items":[]},{"sectionName":"Drinks","items":[]}]}`,
			check: func(t *testing.T, props map[string]string) {
				assert.Equal(t, "Menu extracted with 2 sections", props["sf_enrichment_notes"])
				assert.Contains(t, props["sf_research_notes"], "\n  \"menuSections\"")
			},
		},
		{
			name: "business info",
			kind: "business-info",
			data: `{"ownerName":"Ana Ruiz","ownerTitle":"Chef","city":"Austin","phone":""}`,
			check: func(t *testing.T, props map[string]string) {
				assert.Equal(t, "Ana Ruiz", props["sf_best_contact_name"])
				assert.Equal(t, "Chef", props["sf_best_contact_role"])
				assert.Equal(t, "Austin", props["city"])
				assert.NotContains(t, props, "phone")
			},
		},
		{
			name: "custom",
			kind: "custom",
			data: `{"hours":"11-9"}`,
			check: func(t *testing.T, props map[string]string) {
				assert.Equal(t, "Extracted custom data at 2026-03-01T12:00:00Z", props["sf_enrichment_notes"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Properties map[string]string `json:"properties"`
			}
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPatch, r.Method)
				assert.Equal(t, "/crm/v3/objects/companies/101", r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.Write([]byte(`{"id":"101"}`))
			}))
			defer ts.Close()

			err := newClient(ts.URL).WriteExtraction(context.Background(), "101", json.RawMessage(tt.data), tt.kind)
			require.NoError(t, err)
			assert.Equal(t, "success", body.Properties["sf_enrichment_status"])
			assert.Equal(t, "2026-03-01T12:00:00Z", body.Properties["sf_last_enriched_at"])
			tt.check(t, body.Properties)
		})
	}
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer ts.Close()

	err := newClient(ts.URL).WriteExtraction(context.Background(), "101", json.RawMessage(`{}`), "custom")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Len(t, apiErr.Body, errorSnippet)
}

func TestNoToken(t *testing.T) {
	c := &Client{}
	_, err := c.FindCompanyByDomain(context.Background(), "taq.com")
	assert.ErrorIs(t, err, ErrNoToken)
}
