package email

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/viralforge/intranet/credential-service/internal/ports"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	elementSubject = "subject"
	elementBody    = "body"
)

// Rendered is a message ready for delivery.
type Rendered struct {
	Subject string
	Body    string
}

// Renderer renders the subject and body elements of the embedded templates.
// Every template is parsed once at construction.
type Renderer struct {
	templates map[ports.EmailTemplate]*template.Template
}

func NewRenderer() (*Renderer, error) {
	return newRendererFS(templateFS, "templates")
}

func newRendererFS(fsys fs.FS, dir string) (*Renderer, error) {
	names := []ports.EmailTemplate{
		ports.EmailTemplatePasswordReset,
		ports.EmailTemplateEmailConfirmation,
		ports.EmailTemplateWelcome,
	}
	r := &Renderer{templates: make(map[ports.EmailTemplate]*template.Template, len(names))}
	for _, name := range names {
		filename := fmt.Sprintf("%s/%s.tmpl", dir, name)
		tmpl, err := template.New(string(name)).Option("missingkey=error").ParseFS(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		for _, element := range []string{elementSubject, elementBody} {
			if tmpl.Lookup(element) == nil {
				return nil, fmt.Errorf("email template %s: missing %s element", name, element)
			}
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(msg ports.EmailMessage) (Rendered, error) {
	tmpl, ok := r.templates[msg.Template]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template %q", msg.Template)
	}
	data := map[string]any{"Email": msg.To}
	for k, v := range msg.Data {
		data[k] = v
	}

	var subject, body strings.Builder
	if err := tmpl.ExecuteTemplate(&subject, elementSubject, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", msg.Template, err)
	}
	if err := tmpl.ExecuteTemplate(&body, elementBody, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s body: %w", msg.Template, err)
	}
	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()),
	}, nil
}
