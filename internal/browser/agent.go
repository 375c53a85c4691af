// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pdiddy/menu-hunter/internal/llm"
)

// Element is an interactive element on the current document, numbered in
// document order.
type Element struct {
	ID    int    `json:"id"`
	Tag   string `json:"tag"`
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
	Label string `json:"label,omitempty"`
	Href  string `json:"href,omitempty"`
}

// Driver is the low-level surface the agent needs from a page.
type Driver interface {
	Elements(ctx context.Context) ([]Element, error)
	Click(ctx context.Context, id int) error
	Fill(ctx context.Context, id int, text string, submit bool) error
	Text(ctx context.Context) (string, error)
	URL() string
}

const (
	defaultMaxElements = 150
	defaultMaxText     = 20000
)

// Agent turns natural-language instructions into element interactions by
// asking a language model to pick from the page's interactive elements.
type Agent struct {
	LLM    llm.Completer
	Model  string
	Logger *slog.Logger

	// MaxElements bounds the element list sent per request.
	MaxElements int

	// MaxText bounds the page text sent for observe and extract.
	MaxText int
}

var actPromptTmpl = template.Must(template.New("act").Parse(`Instruction: {{.Instruction}}

Current page: {{.URL}}

Interactive elements (id, tag, text, label):
{{range .Elements}}[{{.ID}}] <{{.Tag}}{{if .Role}} role={{.Role}}{{end}}> {{.Text}}{{if .Label}} ({{.Label}}){{end}}{{if .Href}} -> {{.Href}}{{end}}
{{end}}
Choose the single element that carries out the instruction.
Respond with a JSON object:
{"action": "click" | "type" | "none", "id": <element id>, "text": "<text to type, for type>", "submit": <true to press Enter after typing>}
Use "none" when no element matches.`))

var observePromptTmpl = template.Must(template.New("observe").Parse(`{{.Instruction}}

Current page: {{.URL}}

Interactive elements:
{{range .Elements}}[{{.ID}}] <{{.Tag}}> {{.Text}}{{if .Label}} ({{.Label}}){{end}}{{if .Href}} -> {{.Href}}{{end}}
{{end}}
Visible page text:
{{.Text}}

Respond with a JSON object {"observations": [{"description": "...", "element_id": <id or -1>}]}, most relevant first.`))

var extractPromptTmpl = template.Must(template.New("extract").Parse(`{{.Instruction}}

Return a JSON value that conforms to this JSON Schema:
{{.Schema}}

Page content:
{{.Text}}`))

type promptData struct {
	Instruction string
	URL         string
	Elements    []Element
	Text        string
	Schema      string
}

type actDecision struct {
	Action string `json:"action"`
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Submit bool   `json:"submit"`
}

// Act performs the instruction on d. It returns ErrNoAction when the model
// finds no matching element and ErrUnsupported when no model is configured.
func (a *Agent) Act(ctx context.Context, d Driver, instruction string) error {
	if a == nil || a.LLM == nil {
		return ErrUnsupported
	}
	elements, err := d.Elements(ctx)
	if err != nil {
		return fmt.Errorf("listing elements: %w", err)
	}
	if len(elements) == 0 {
		return ErrNoAction
	}
	elements = a.limitElements(elements)

	prompt, err := render(actPromptTmpl, promptData{Instruction: instruction, URL: d.URL(), Elements: elements})
	if err != nil {
		return err
	}
	resp, err := a.LLM.Complete(ctx, llm.Request{
		System: "You operate a web browser for a user. You output only valid JSON.",
		User:   prompt,
		Model:  a.Model,
		JSON:   true,
	})
	if err != nil {
		return fmt.Errorf("act %q: %w", instruction, err)
	}

	var dec actDecision
	if err := llm.DecodeJSON(resp.Text, &dec); err != nil {
		return fmt.Errorf("act %q: parsing decision: %w", instruction, err)
	}
	if !knownElement(elements, dec.ID) && dec.Action != "none" {
		return fmt.Errorf("act %q: model chose unknown element %d: %w", instruction, dec.ID, ErrNoAction)
	}

	a.logger().Debug("browser.act", "instruction", instruction, "action", dec.Action, "element", dec.ID)
	switch dec.Action {
	case "click":
		return d.Click(ctx, dec.ID)
	case "type", "fill":
		return d.Fill(ctx, dec.ID, dec.Text, dec.Submit)
	default:
		return ErrNoAction
	}
}

// Observe asks the model to describe affordances relevant to instruction.
func (a *Agent) Observe(ctx context.Context, d Driver, instruction string) ([]Observation, error) {
	if a == nil || a.LLM == nil {
		return nil, ErrUnsupported
	}
	elements, err := d.Elements(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing elements: %w", err)
	}
	text, err := d.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page text: %w", err)
	}
	prompt, err := render(observePromptTmpl, promptData{
		Instruction: instruction,
		URL:         d.URL(),
		Elements:    a.limitElements(elements),
		Text:        truncate(text, a.maxText()/4),
	})
	if err != nil {
		return nil, err
	}
	resp, err := a.LLM.Complete(ctx, llm.Request{
		System: "You describe web pages for a user. You output only valid JSON.",
		User:   prompt,
		Model:  a.Model,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	var out struct {
		Observations []Observation `json:"observations"`
	}
	if err := llm.DecodeJSON(resp.Text, &out); err != nil {
		return nil, fmt.Errorf("observe: parsing response: %w", err)
	}
	return out.Observations, nil
}

// Extract asks the model for data matching schema from the page text.
func (a *Agent) Extract(ctx context.Context, d Driver, instruction string, schema json.RawMessage) (json.RawMessage, error) {
	if a == nil || a.LLM == nil {
		return nil, ErrUnsupported
	}
	text, err := d.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page text: %w", err)
	}
	schemaText := "{}"
	if len(schema) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, schema, "", "  "); err == nil {
			schemaText = buf.String()
		} else {
			schemaText = string(schema)
		}
	}
	prompt, err := render(extractPromptTmpl, promptData{
		Instruction: instruction,
		Schema:      schemaText,
		Text:        truncate(text, a.maxText()),
	})
	if err != nil {
		return nil, err
	}
	resp, err := a.LLM.Complete(ctx, llm.Request{
		System:      "You extract structured data from web pages. You output only valid JSON, no explanations or markdown.",
		User:        prompt,
		Model:       a.Model,
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	var data json.RawMessage
	if err := llm.DecodeJSON(resp.Text, &data); err != nil {
		return nil, fmt.Errorf("extract: parsing response: %w", err)
	}
	return data, nil
}

func (a *Agent) limitElements(elements []Element) []Element {
	limit := a.MaxElements
	if limit <= 0 {
		limit = defaultMaxElements
	}
	if len(elements) > limit {
		return elements[:limit]
	}
	return elements
}

func (a *Agent) maxText() int {
	if a.MaxText > 0 {
		return a.MaxText
	}
	return defaultMaxText
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func knownElement(elements []Element, id int) bool {
	for _, e := range elements {
		if e.ID == id {
			return true
		}
	}
	return false
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "\n[Content truncated...]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
