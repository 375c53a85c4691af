// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/menu-hunter/internal/httputil"
)

const (
	interactiveSelector = `a[href], button, input:not([type="hidden"]), select, textarea, [role="button"], [role="tab"], [role="link"]`
	maxBodyBytes        = 5 << 20
)

// HTTPPage fetches documents over plain HTTP and parses them with goquery.
// Scripts do not run, so it suits server-rendered sites. Clicking a link
// follows it and typing into a GET form submits the form; other interactions
// return ErrUnsupported.
type HTTPPage struct {
	client    *http.Client
	userAgent string
	agent     *Agent

	url string
	doc *goquery.Document
}

// NewHTTPPage returns a page with an empty document.
func NewHTTPPage(client *http.Client, userAgent string, agent *Agent) *HTTPPage {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPage{client: client, userAgent: userAgent, agent: agent}
}

// Goto fetches rawURL and replaces the current document. Non-200 responses
// still become the current document so callers can inspect the status.
func (p *HTTPPage) Goto(ctx context.Context, rawURL string, opts GotoOptions) (Response, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := httputil.Get(ctx, p.client, rawURL, p.userAgent)
	if err != nil {
		return Response{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	p.doc = doc
	p.url = resp.Request.URL.String()
	return Response{Status: resp.StatusCode}, nil
}

// URL returns the URL of the current document after redirects.
func (p *HTTPPage) URL() string {
	return p.url
}

// Text renders the document body as text, one line per block element.
func (p *HTTPPage) Text(_ context.Context) (string, error) {
	if p.doc == nil {
		return "", nil
	}
	body := p.doc.Find("body")
	if body.Length() == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, n := range body.Nodes {
		renderText(&b, n)
	}
	return collapseLines(b.String()), nil
}

// Links returns anchors with absolute hrefs.
func (p *HTTPPage) Links(_ context.Context) ([]Link, error) {
	if p.doc == nil {
		return nil, nil
	}
	var links []Link
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := p.resolve(href)
		if abs == "" {
			return
		}
		class, _ := s.Attr("class")
		links = append(links, Link{
			Href:    abs,
			Text:    strings.Join(strings.Fields(s.Text()), " "),
			Classes: class,
		})
	})
	return links, nil
}

// Scroll is a no-op: static documents are fully loaded.
func (p *HTTPPage) Scroll(_ context.Context, _ float64) error {
	return nil
}

// Categories returns short labels of elements matching selectors.
func (p *HTTPPage) Categories(_ context.Context, selectors []string, limit int) ([]string, error) {
	if p.doc == nil || len(selectors) == 0 {
		return nil, nil
	}
	var out []string
	p.doc.Find(strings.Join(selectors, ", ")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" && len(text) < 30 {
			out = append(out, text)
		}
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// Elements lists interactive elements in document order.
func (p *HTTPPage) Elements(_ context.Context) ([]Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	var out []Element
	p.doc.Find(interactiveSelector).Each(func(i int, s *goquery.Selection) {
		e := Element{ID: i, Tag: goquery.NodeName(s)}
		e.Role, _ = s.Attr("role")
		e.Text = truncate(strings.Join(strings.Fields(s.Text()), " "), 80)
		for _, attr := range []string{"aria-label", "placeholder", "name", "value"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				e.Label = v
				break
			}
		}
		if href, ok := s.Attr("href"); ok {
			e.Href = p.resolve(href)
		}
		out = append(out, e)
	})
	return out, nil
}

// Click follows a link element.
func (p *HTTPPage) Click(ctx context.Context, id int) error {
	s, err := p.element(id)
	if err != nil {
		return err
	}
	href, ok := s.Attr("href")
	if !ok {
		return fmt.Errorf("clicking <%s>: %w", goquery.NodeName(s), ErrUnsupported)
	}
	target := p.resolve(href)
	if target == "" {
		return fmt.Errorf("clicking link %q: %w", href, ErrUnsupported)
	}
	_, err = p.Goto(ctx, target, GotoOptions{})
	return err
}

// Fill submits the enclosing GET form with text in the chosen input.
// Without submit there is nothing observable to do on a static page.
func (p *HTTPPage) Fill(ctx context.Context, id int, text string, submit bool) error {
	s, err := p.element(id)
	if err != nil {
		return err
	}
	name, _ := s.Attr("name")
	form := s.Closest("form")
	if !submit || name == "" || form.Length() == 0 {
		return fmt.Errorf("typing into <%s>: %w", goquery.NodeName(s), ErrUnsupported)
	}
	if method, _ := form.Attr("method"); method != "" && !strings.EqualFold(method, http.MethodGet) {
		return fmt.Errorf("submitting %s form: %w", method, ErrUnsupported)
	}

	values := url.Values{}
	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		n, _ := in.Attr("name")
		v, _ := in.Attr("value")
		values.Set(n, v)
	})
	values.Set(name, text)

	action, _ := form.Attr("action")
	target := p.resolve(action)
	if target == "" {
		target = p.url
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("form action %q: %w", action, err)
	}
	u.RawQuery = values.Encode()
	_, err = p.Goto(ctx, u.String(), GotoOptions{})
	return err
}

// Act performs a natural-language interaction through the agent.
func (p *HTTPPage) Act(ctx context.Context, instruction string) error {
	return p.agent.Act(ctx, p, instruction)
}

// Observe describes page affordances through the agent.
func (p *HTTPPage) Observe(ctx context.Context, instruction string) ([]Observation, error) {
	return p.agent.Observe(ctx, p, instruction)
}

// Extract returns structured data through the agent.
func (p *HTTPPage) Extract(ctx context.Context, instruction string, schema json.RawMessage) (json.RawMessage, error) {
	return p.agent.Extract(ctx, p, instruction, schema)
}

// Close drops the current document.
func (p *HTTPPage) Close() error {
	p.doc = nil
	return nil
}

func (p *HTTPPage) element(id int) (*goquery.Selection, error) {
	if p.doc == nil {
		return nil, ErrNoAction
	}
	s := p.doc.Find(interactiveSelector).Eq(id)
	if s.Length() == 0 {
		return nil, fmt.Errorf("element %d: %w", id, ErrNoAction)
	}
	return s, nil
}

// resolve returns href as an absolute http(s) URL, or "" for fragments,
// javascript: and mailto: links.
func (p *HTTPPage) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if p.url != "" {
		base, err := url.Parse(p.url)
		if err == nil {
			ref = base.ResolveReference(ref)
		}
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// HTTPLauncher opens HTTPPages that share one client.
type HTTPLauncher struct {
	Client    *http.Client
	UserAgent string
	Agent     *Agent
}

// Launch returns a new HTTPPage.
func (l *HTTPLauncher) Launch(_ context.Context) (Page, error) {
	return NewHTTPPage(l.Client, l.UserAgent, l.Agent), nil
}

// skipText lists elements whose content is never visible text.
var skipText = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Svg: true, atom.Head: true, atom.Iframe: true,
}

// blockText lists elements rendered on their own line.
var blockText = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Main: true, atom.Aside: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Tr: true, atom.Table: true, atom.Br: true, atom.Hr: true, atom.Form: true,
	atom.Button: true, atom.Figure: true, atom.Figcaption: true, atom.Blockquote: true,
	atom.Td: true, atom.Th: true, atom.Label: true, atom.Option: true,
}

// inlineSpace folds source line breaks inside text nodes, which HTML renders as spaces.
var inlineSpace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(inlineSpace.Replace(n.Data))
		return
	case html.ElementNode:
		if skipText[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Input {
			return
		}
	}
	block := n.Type == html.ElementNode && blockText[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// collapseLines normalizes whitespace within lines and drops blank lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
