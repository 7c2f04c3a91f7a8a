package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
	"time"

	live "riftcoach/internal/livegame/domain"
	tips "riftcoach/internal/tips/domain"
)

const DefaultTemplate = `[{{.SeverityLabel}}] {{.Title}}
{{ if .Body }}{{.Body}}
{{ end }}Game time: {{.GameClock}}
Rule: {{.Rule}} ({{.Module}})`

// TemplateData provides fields for rendering tip content.
type TemplateData struct {
	Rule          string
	Module        string
	Title         string
	Body          string
	Icon          string
	Severity      string
	SeverityLabel string
	GameTime      float64
	GameClock     string
	EmittedAt     string
}

// Template renders tip content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a tip template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("tip-notification").Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("tip template: %w", err)
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("tip template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildTemplateData(tip tips.Tip) TemplateData {
	module, _ := tip.Metadata[tips.MetaModule].(string)
	return TemplateData{
		Rule:          tip.ID,
		Module:        module,
		Title:         tip.Title,
		Body:          tip.Body,
		Icon:          tip.Icon,
		Severity:      string(tip.Severity),
		SeverityLabel: severityLabel(tip.Severity),
		GameTime:      tip.GameTime,
		GameClock:     live.FormatClock(tip.GameTime),
		EmittedAt:     tip.EmittedAt.UTC().Format(time.RFC3339),
	}
}

func severityLabel(severity tips.Severity) string {
	switch severity {
	case tips.SeverityCritical:
		return "CRITICAL"
	case tips.SeverityWarning:
		return "Warning"
	default:
		return "Tip"
	}
}
