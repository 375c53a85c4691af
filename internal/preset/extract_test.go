// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preset

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/internal/browser/browsertest"
	"github.com/pdiddy/menu-hunter/internal/crm"
	"github.com/pdiddy/menu-hunter/internal/logging"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

const site = "https://taq.com"

// extractingLauncher serves site and answers Extract with data.
func extractingLauncher(data string) *browsertest.Launcher {
	return &browsertest.Launcher{New: func() *browsertest.Page {
		p := browsertest.NewPage(map[string]browsertest.Doc{
			site:                 {Text: "Tacos $3.50"},
			"https://broken.com": {Status: 500},
		})
		p.OnExtract = func(_ *browsertest.Page, _ string, _ json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(data), nil
		}
		return p
	}}
}

func newExtractor(launchers map[string]browser.Launcher) *Extractor {
	return &Extractor{Launchers: launchers, Logger: logging.Discard()}
}

func TestExtractFromURL(t *testing.T) {
	chrome := extractingLauncher(validMenu)
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome})

	res := e.ExtractFromURL(context.Background(), site, types.ExtractOptions{Preset: Menu})
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, validMenu, string(res.Data))
	assert.Equal(t, Menu, res.Preset)
	assert.Equal(t, site, res.FinalURL)
	assert.Equal(t, types.EnvChrome, res.Metadata.BrowserEnv)
	assert.Equal(t, 1, res.Metadata.Attempts)
	assert.False(t, res.Metadata.ExtractedAt.IsZero())

	pages := chrome.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, []string{site}, pages[0].Gotos())
	assert.True(t, pages[0].Closed())
}

func TestExtractFromURLFallsBackToSecondEnvironment(t *testing.T) {
	chrome := &browsertest.Launcher{Err: errors.New("chrome not installed")}
	httpEnv := extractingLauncher(validMenu)
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome, types.EnvHTTP: httpEnv})

	res := e.ExtractFromURL(context.Background(), site, types.ExtractOptions{
		Preset:      Menu,
		FallbackEnv: types.EnvHTTP,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, types.EnvHTTP, res.Metadata.BrowserEnv)
	assert.Equal(t, 3, res.Metadata.Attempts)
}

func TestExtractFromURLFailures(t *testing.T) {
	tests := []struct {
		name      string
		launchers map[string]browser.Launcher
		url       string
		opts      types.ExtractOptions
		want      []string
	}{
		{
			name:      "invalid data on every attempt",
			launchers: map[string]browser.Launcher{types.EnvChrome: extractingLauncher(`{"restaurantName":"Taq"}`)},
			url:       site,
			opts:      types.ExtractOptions{Preset: Menu, Retries: 3},
			want:      []string{"extraction failed after 3 attempts", "json does not match schema"},
		},
		{
			name:      "HTTP error status",
			launchers: map[string]browser.Launcher{types.EnvChrome: extractingLauncher(validMenu)},
			url:       "https://broken.com",
			opts:      types.ExtractOptions{Preset: Menu},
			want:      []string{"extraction failed after 2 attempts", "HTTP 500"},
		},
		{
			name:      "no launcher",
			launchers: map[string]browser.Launcher{},
			url:       site,
			opts:      types.ExtractOptions{Preset: Menu},
			want:      []string{"extraction failed after 0 attempts", `no launcher for browser environment "chrome"`},
		},
		{
			name: "fallback fails too",
			launchers: map[string]browser.Launcher{
				types.EnvChrome: &browsertest.Launcher{Err: errors.New("chrome not installed")},
				types.EnvHTTP:   extractingLauncher(`not json`),
			},
			url:  site,
			opts: types.ExtractOptions{Preset: Menu, FallbackEnv: types.EnvHTTP},
			want: []string{"extraction failed after 4 attempts", "unmarshal data"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newExtractor(tt.launchers).ExtractFromURL(context.Background(), tt.url, tt.opts)
			assert.False(t, res.Success)
			assert.Nil(t, res.Data)
			for _, w := range tt.want {
				assert.Contains(t, res.Error, w)
			}
		})
	}
}

func TestExtractBatch(t *testing.T) {
	chrome := &browsertest.Launcher{New: func() *browsertest.Page {
		p := browsertest.NewPage(map[string]browsertest.Doc{
			"https://one.com":   {Text: "one"},
			"https://two.com":   {Text: "two"},
			"https://three.com": {Status: 404},
		})
		p.OnExtract = func(_ *browsertest.Page, _ string, _ json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"hours":"11-9"}`), nil
		}
		return p
	}}
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome})

	var mu sync.Mutex
	var indices []int
	urls := []string{"https://one.com", "https://three.com", "https://two.com"}
	out := e.ExtractBatch(context.Background(), urls, types.ExtractOptions{Concurrency: 2}, func(index, total int, res *types.ExtractionResult) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		assert.Equal(t, urls[index], res.URL)
		indices = append(indices, index)
	})

	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Successful)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "https://one.com", out.Results[0].URL)
	assert.Equal(t, "https://two.com", out.Results[1].URL)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "https://three.com", out.Errors[0].URL)
	assert.Contains(t, out.Errors[0].Error, "HTTP 404")
	assert.Equal(t, 2, out.Metadata.Concurrency)
	assert.GreaterOrEqual(t, out.Metadata.AvgDurationMs, int64(0))

	sort.Ints(indices)
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestExtractBatchEmpty(t *testing.T) {
	out := newExtractor(nil).ExtractBatch(context.Background(), nil, types.ExtractOptions{}, nil)
	assert.Equal(t, 0, out.Total)
	assert.Empty(t, out.Results)
	assert.Empty(t, out.Errors)
	assert.Zero(t, out.Metadata.AvgDurationMs)
	assert.Equal(t, DefaultConcurrency, out.Metadata.Concurrency)
}

type fakeWriter struct {
	company  *crm.Company
	findErr  error
	writeErr error

	found   bool
	written string
	kind    string
}

func (f *fakeWriter) FindCompanyByDomain(_ context.Context, _ string) (*crm.Company, error) {
	f.found = true
	return f.company, f.findErr
}

func (f *fakeWriter) WriteExtraction(_ context.Context, id string, _ json.RawMessage, kind string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = id
	f.kind = kind
	return nil
}

func TestExtractAndWrite(t *testing.T) {
	tests := []struct {
		name        string
		writer      *fakeWriter
		companyID   string
		url         string
		wantWritten string
		wantFind    bool
		wantErr     string
	}{
		{name: "company found by domain", writer: &fakeWriter{company: &crm.Company{ID: "101"}}, url: site, wantWritten: "101", wantFind: true},
		{name: "explicit company", writer: &fakeWriter{}, companyID: "202", url: site, wantWritten: "202"},
		{name: "no token", url: site, wantErr: "No HubSpot token provided"},
		{name: "no match", writer: &fakeWriter{}, url: site, wantFind: true, wantErr: "No matching company found in HubSpot"},
		{name: "search error", writer: &fakeWriter{findErr: errors.New("HubSpot API 401: bad token")}, url: site, wantFind: true, wantErr: "HubSpot API 401: bad token"},
		{name: "write error", writer: &fakeWriter{writeErr: errors.New("HubSpot API 500: oops")}, companyID: "303", url: site, wantErr: "HubSpot API 500: oops"},
		{name: "extraction failure skips CRM", writer: &fakeWriter{}, companyID: "404", url: "https://broken.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExtractor(map[string]browser.Launcher{types.EnvChrome: extractingLauncher(validMenu)})
			var w CompanyWriter
			if tt.writer != nil {
				w = tt.writer
			}

			res := e.ExtractAndWrite(context.Background(), tt.url, types.ExtractOptions{Preset: Menu}, w, tt.companyID)
			assert.Equal(t, tt.wantErr, res.CRMError)
			assert.Equal(t, tt.wantWritten != "", res.CRMWritten)
			assert.Equal(t, tt.wantWritten, res.CRMCompanyID)
			if tt.writer != nil {
				assert.Equal(t, tt.wantFind, tt.writer.found)
				assert.Equal(t, tt.wantWritten, tt.writer.written)
				if tt.wantWritten != "" {
					assert.Equal(t, Menu, tt.writer.kind)
				}
			}
		})
	}
}

func TestExtractWithNavigation(t *testing.T) {
	chrome := &browsertest.Launcher{New: func() *browsertest.Page {
		p := browsertest.NewPage(map[string]browsertest.Doc{site: {Text: "Welcome"}})
		p.OnAct = func(p *browsertest.Page, instruction string) error {
			if instruction == "open the hours page" {
				p.SetText("Hours: 11-9 daily")
				return nil
			}
			return browser.ErrNoAction
		}
		p.OnExtract = func(p *browsertest.Page, _ string, _ json.RawMessage) (json.RawMessage, error) {
			text, _ := p.Text(context.Background())
			return json.Marshal(map[string]string{"hours": strings.TrimPrefix(text, "Hours: ")})
		}
		return p
	}}
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome})

	res := e.ExtractWithNavigation(context.Background(), NavigatedOptions{
		StartURL: site,
		Steps:    []string{"close the newsletter popup", "open the hours page"},
	})
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, `{"hours":"11-9 daily"}`, string(res.Data))
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, Custom, res.Preset)

	page := chrome.Pages()[0]
	assert.Equal(t, []string{"close the newsletter popup", "open the hours page"}, page.Acts())
	assert.True(t, page.Closed())
}

func TestExtractWithNavigationRawContent(t *testing.T) {
	long := strings.Repeat("é", rawContentLimit+50)
	chrome := &browsertest.Launcher{New: func() *browsertest.Page {
		return browsertest.NewPage(map[string]browsertest.Doc{site: {Text: long}})
	}}
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome})

	res := e.ExtractWithNavigation(context.Background(), NavigatedOptions{StartURL: site})
	require.True(t, res.Success, res.Error)

	var data map[string]string
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, strings.Repeat("é", rawContentLimit), data["rawContent"])
}

func TestExtractWithNavigationLoadFailure(t *testing.T) {
	chrome := &browsertest.Launcher{New: func() *browsertest.Page {
		return browsertest.NewPage(map[string]browsertest.Doc{site: {Err: errors.New("net::ERR_NAME_NOT_RESOLVED")}})
	}}
	res := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome}).
		ExtractWithNavigation(context.Background(), NavigatedOptions{StartURL: site})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "ERR_NAME_NOT_RESOLVED")
}

func TestExtractOrderingMenu(t *testing.T) {
	menu := "Tacos\nCarnitas Taco\n$3.50\nDrinks\nHorchata\n$2.75"
	chrome := &browsertest.Launcher{New: func() *browsertest.Page {
		p := browsertest.NewPage(map[string]browsertest.Doc{site: {Text: "Welcome to Taq"}})
		p.OnAct = func(p *browsertest.Page, instruction string) error {
			if strings.HasPrefix(instruction, "click on Order Pickup") && p.URL() == site {
				p.SetText(menu)
			}
			return nil
		}
		return p
	}}
	e := newExtractor(map[string]browser.Launcher{types.EnvChrome: chrome})

	res := e.ExtractOrderingMenu(context.Background(), site+"/", "Round Rock", nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Steps)

	var got OrderingMenu
	require.NoError(t, json.Unmarshal(res.Data, &got))
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "Carnitas Taco", got.Sections[0].Items[0].Name)
	assert.Equal(t, "$2.75", got.Sections[1].Items[0].Price)

	pages := chrome.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, []string{site + "/locations"}, pages[0].Gotos())
	assert.Equal(t, "type Round Rock in the location or search field and press Enter", pages[0].Acts()[0])
	assert.Equal(t, "click on Order or Pickup button", pages[1].Acts()[0])
}
