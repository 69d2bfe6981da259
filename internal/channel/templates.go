package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/school-notify/internal/domain"
)

// Message is rendered channel content.
type Message struct {
	Subject string
	Body    string
}

// TemplateSource yields named template bodies, e.g. from object storage.
type TemplateSource interface {
	Templates(ctx context.Context) (map[string]string, error)
}

// TemplateStore compiles and renders named templates for notification content.
//
// Names follow "<type>.<channel>.<part>" with fallbacks to "<type>.<part>" and
// "default.<part>", where part is subject or body.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewTemplateStore seeds the store with the built-in templates.
func NewTemplateStore() *TemplateStore {
	s := &TemplateStore{templates: make(map[string]*template.Template)}
	for name, body := range builtinTemplates {
		_ = s.Register(name, body)
	}
	return s
}

var builtinTemplates = map[string]string{
	"default.subject":          `{{with .title}}{{.}}{{else}}New notification{{end}}`,
	"default.body":             `{{with .body}}{{.}}{{else}}{{with .message}}{{.}}{{else}}You have a new notification.{{end}}{{end}}`,
	"exam.reminder.subject":    `Exam reminder{{with .subject}}: {{.}}{{end}}`,
	"exam.reminder.body":       `{{with .recipient_name}}Hi {{.}}, {{end}}your {{with .subject}}{{.}} {{end}}exam is on {{with .date}}{{.}}{{else}}the scheduled date{{end}}.`,
	"exam.reminder.sms.body":   `Reminder: {{with .subject}}{{.}} {{end}}exam {{with .date}}on {{.}}{{else}}soon{{end}}.`,
	"fee.due.subject":          `Fee payment due`,
	"fee.due.body":             `{{with .recipient_name}}Dear {{.}}, {{end}}a payment{{with .amount}} of {{.}}{{end}} is due{{with .due_date}} by {{.}}{{end}}.`,
	"attendance.alert.subject": `Attendance alert`,
	"attendance.alert.body":    `{{with .student}}{{.}}{{else}}Your child{{end}} was marked {{with .status}}{{.}}{{else}}absent{{end}}{{with .date}} on {{.}}{{end}}.`,
}

// Register adds or replaces a template definition.
func (s *TemplateStore) Register(name, body string) error {
	tmpl, err := template.New(name).Parse(body)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = tmpl
	return nil
}

// Load registers every template provided by src. Invalid templates abort the load.
func (s *TemplateStore) Load(ctx context.Context, src TemplateSource) (int, error) {
	bodies, err := src.Templates(ctx)
	if err != nil {
		return 0, err
	}
	for name, body := range bodies {
		if err := s.Register(name, body); err != nil {
			return 0, err
		}
	}
	return len(bodies), nil
}

// Render executes the template with the provided data.
func (s *TemplateStore) Render(name string, data any) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out.String(), nil
}

// Compose renders the subject and body of p for channel ch.
func (s *TemplateStore) Compose(ch domain.Channel, r *domain.Recipient, p Payload) (Message, error) {
	vars := make(map[string]any, len(p.Data)+2)
	for k, v := range p.Data {
		vars[k] = v
	}
	vars["type"] = p.Type
	if r != nil && r.Name != "" {
		vars["recipient_name"] = r.Name
	}
	subject, err := s.render(p.Type, ch, "subject", vars)
	if err != nil {
		return Message{}, err
	}
	body, err := s.render(p.Type, ch, "body", vars)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, Body: body}, nil
}

func (s *TemplateStore) render(typ string, ch domain.Channel, part string, vars map[string]any) (string, error) {
	for _, name := range []string{
		typ + "." + string(ch) + "." + part,
		typ + "." + part,
		"default." + part,
	} {
		s.mu.RLock()
		_, ok := s.templates[name]
		s.mu.RUnlock()
		if ok {
			return s.Render(name, vars)
		}
	}
	return "", fmt.Errorf("no %s template for %s", part, typ)
}
