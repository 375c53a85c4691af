// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crm writes extraction results to HubSpot company records. It is
// used only by the extract-and-write entry point; the menu pipeline itself
// never touches the CRM.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/menu-hunter/internal/httputil"
)

// DefaultBaseURL is the HubSpot API endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// errorSnippet bounds how much of an error body is kept in messages.
const errorSnippet = 400

// ErrNoToken is returned when the client has no access token.
var ErrNoToken = errors.New("crm: no access token configured")

// Client calls the HubSpot CRM v3 API with a private-app token.
type Client struct {
	Token      string
	BaseURL    string
	HTTP       *http.Client
	Logger     *slog.Logger
	MaxRetries int

	// Now stamps sf_last_enriched_at. Defaults to time.Now.
	Now func() time.Time
}

// Company is a HubSpot company record.
type Company struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// APIError is a non-2xx HubSpot response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HubSpot API %d: %s", e.Status, e.Body)
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value,omitempty"`
}

type filterGroup struct {
	Filters []searchFilter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type searchResponse struct {
	Results []Company `json:"results"`
}

// CleanDomain reduces a URL or hostname to a bare lowercase domain without
// scheme, "www." or path.
func CleanDomain(raw string) string {
	d := strings.TrimSpace(raw)
	d = strings.TrimPrefix(strings.TrimPrefix(d, "https://"), "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.ToLower(d)
}

// FindCompanyByDomain returns the first company whose domain contains the
// domain of rawURL, or nil when none matches.
func (c *Client) FindCompanyByDomain(ctx context.Context, rawURL string) (*Company, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{Filters: []searchFilter{{
			PropertyName: "domain",
			Operator:     "CONTAINS_TOKEN",
			Value:        CleanDomain(rawURL),
		}}}},
		Properties: []string{"name", "domain", "website", "sf_research_notes"},
		Limit:      1,
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/companies/search", req, &resp); err != nil {
		return nil, fmt.Errorf("searching companies: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// WriteExtraction stores data on the company as research notes and marks
// the record enriched. kind names the preset that produced data; business
// info also fills the matching standard and contact properties.
func (c *Client) WriteExtraction(ctx context.Context, companyID string, data json.RawMessage, kind string) error {
	if companyID == "" {
		return errors.New("crm: company ID is required")
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("formatting extraction data: %w", err)
	}

	now := c.now().UTC().Format(time.RFC3339)
	props := map[string]string{
		"sf_research_notes":    pretty.String(),
		"sf_last_enriched_at":  now,
		"sf_enrichment_status": "success",
		"sf_enrichment_notes":  fmt.Sprintf("Extracted %s data at %s", kind, now),
	}
	switch kind {
	case "menu":
		var menu struct {
			MenuSections []json.RawMessage `json:"menuSections"`
		}
		if json.Unmarshal(data, &menu) == nil {
			props["sf_enrichment_notes"] = fmt.Sprintf("Menu extracted with %d sections", len(menu.MenuSections))
		}
	case "business-info":
		mapBusinessInfo(data, props)
	}

	body := map[string]any{"properties": props}
	if err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/companies/"+companyID, body, nil); err != nil {
		return fmt.Errorf("updating company %s: %w", companyID, err)
	}
	c.logger().Info("crm.write.done", "company_id", companyID, "kind", kind)
	return nil
}

// mapBusinessInfo copies known business-info fields onto CRM properties.
func mapBusinessInfo(data json.RawMessage, props map[string]string) {
	var info map[string]any
	if json.Unmarshal(data, &info) != nil {
		return
	}
	fields := map[string]string{
		"ownerName":   "sf_best_contact_name",
		"ownerTitle":  "sf_best_contact_role",
		"email":       "sf_best_contact_email",
		"phone":       "phone",
		"description": "description",
		"city":        "city",
		"state":       "state",
	}
	for from, to := range fields {
		if s, ok := info[from].(string); ok && s != "" {
			props[to] = s
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.Token == "" {
		return ErrNoToken
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.client(), req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("HubSpot request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > errorSnippet {
			snippet = snippet[:errorSnippet]
		}
		return &APIError{Status: resp.StatusCode, Body: snippet}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
