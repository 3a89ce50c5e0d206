package notifier

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// Templates holds parsed email templates.
type Templates struct {
	html  *template.Template
	plain *template.Template
}

// TemplateData contains escalation data for template rendering.
type TemplateData struct {
	Title             string
	SubjectID         string
	TriggerRule       string
	Level             string
	Urgency           string
	UrgencyColor      string
	Reason            string
	RecommendedAction string
	CreatedAt         string
	EscalationID      string
}

const plainTemplate = `PULSEWATCH ESCALATION: {{.Title}}

Urgency:   {{upper .Urgency}}
Routed to: {{.Level}}
Subject:   {{.SubjectID}}
Created:   {{.CreatedAt}}

Reason: {{.Reason}}
{{if .RecommendedAction}}
Recommended action: {{.RecommendedAction}}
{{end}}
Trigger: {{.TriggerRule}}
ID: {{.EscalationID}}
`

const htmlTemplate = `<html>
<body style="font-family: sans-serif; color: #212121;">
  <h2 style="color: {{.UrgencyColor}};">{{.Title}}</h2>
  <table cellpadding="4">
    <tr><td><b>Urgency</b></td><td style="color: {{.UrgencyColor}};">{{upper .Urgency}}</td></tr>
    <tr><td><b>Routed to</b></td><td>{{.Level}}</td></tr>
    <tr><td><b>Subject</b></td><td>{{.SubjectID}}</td></tr>
    <tr><td><b>Created</b></td><td>{{.CreatedAt}}</td></tr>
  </table>
  <p><b>Reason:</b> {{.Reason}}</p>
{{if .RecommendedAction}}  <p><b>Recommended action:</b> {{.RecommendedAction}}</p>
{{end}}  <p style="color: #757575; font-size: 12px;">Trigger: {{.TriggerRule}} | ID: {{.EscalationID}}</p>
</body>
</html>
`

// LoadTemplates parses the built-in email templates.
func LoadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	htmlTmpl, err := template.New("escalation.html").Funcs(funcs).Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}

	plainTmpl, err := template.New("escalation.txt").Funcs(funcs).Parse(plainTemplate)
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// RenderHTML renders the HTML email body.
func (t *Templates) RenderHTML(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlain renders the plain text email body.
func (t *Templates) RenderPlain(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.plain.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// urgencyColor returns the display color for an urgency level.
func urgencyColor(u models.Urgency) string {
	switch u {
	case models.UrgencyImmediate:
		return "#d32f2f" // red
	case models.UrgencyUrgent:
		return "#f57c00" // orange
	case models.UrgencyRoutine:
		return "#fbc02d" // yellow
	default:
		return "#757575" // gray
	}
}

// EscalationToTemplateData converts an escalation to template data.
func EscalationToTemplateData(e *models.Escalation) TemplateData {
	return TemplateData{
		Title:             e.Title,
		SubjectID:         e.SubjectID,
		TriggerRule:       e.TriggerRule,
		Level:             string(e.Level),
		Urgency:           string(e.Urgency),
		UrgencyColor:      urgencyColor(e.Urgency),
		Reason:            e.Reason,
		RecommendedAction: e.RecommendedAction,
		CreatedAt:         e.CreatedAt.Format("2006-01-02 15:04:05 MST"),
		EscalationID:      e.ID,
	}
}
