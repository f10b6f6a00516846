package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

const layout = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <div style="border-left: 4px solid {{.Accent}}; padding: 12px 16px;">
    <h2 style="margin: 0 0 8px 0;">{{.Title}}</h2>
    <p style="margin: 0 0 16px 0;">{{.Body}}</p>
    {{if .Link}}<a href="{{.Link}}" style="color: {{.Accent}};">{{.LinkText}}</a>{{end}}
  </div>
  <p style="font-size: 12px; color: #7b8794;">You are receiving this because of your notification settings.</p>
</body>
</html>`

var page = template.Must(template.New("notification").Parse(layout))

type categoryStyle struct {
	subjectPrefix string
	accent        string
	linkText      string
}

var styles = map[domain.Category]categoryStyle{
	domain.CategoryDeadline:        {"[Deadline]", "#d97706", "Open task"},
	domain.CategoryAssignment:      {"[Assignment]", "#2563eb", "Open task"},
	domain.CategoryTaskUpdate:      {"[Task]", "#2563eb", "Open task"},
	domain.CategoryStatusUpdate:    {"[Status]", "#059669", "Open task"},
	domain.CategoryBugReport:       {"[Bug]", "#dc2626", "Open bug"},
	domain.CategoryBugUpdate:       {"[Bug]", "#dc2626", "Open bug"},
	domain.CategoryBugStatusUpdate: {"[Bug status]", "#059669", "Open bug"},
	domain.CategoryOverdue:         {"[Overdue]", "#b91c1c", "Open bug"},
}

var fallbackStyle = categoryStyle{"[Notification]", "#52606d", "Open tracker"}

// Renderer turns a classified message into an email subject and HTML body.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: baseURL}
}

func (r *Renderer) Render(m domain.Message) (subject, body string, err error) {
	style, ok := styles[m.Category]
	if !ok {
		style = fallbackStyle
	}

	var link string
	if r.baseURL != "" {
		link = r.baseURL + "/notifications"
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title, Body, Accent, Link, LinkText string
	}{m.Title, m.Body, style.accent, link, style.linkText})
	if err != nil {
		return "", "", fmt.Errorf("render %s email: %w", m.Category, err)
	}
	return style.subjectPrefix + " " + m.Title, buf.String(), nil
}
