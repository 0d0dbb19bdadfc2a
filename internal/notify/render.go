package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Email is a rendered Message.
type Email struct {
	To      string
	Subject string
	Body    string
}

type Branding struct {
	ProgramName  string
	BaseURL      string
	SupportEmail string
	SupportPhone string
}

type Renderer struct {
	branding  Branding
	templates map[Kind]*template.Template
}

func NewRenderer(branding Branding) (*Renderer, error) {
	kinds := []Kind{KindApplicationReceived, KindApplicationApproved, KindApplicationRejected, KindPasswordReset}
	templates := make(map[Kind]*template.Template, len(kinds))
	for _, kind := range kinds {
		tmpl, err := template.New(string(kind)).
			Option("missingkey=error").
			ParseFS(templateFS, "templates/_signature.txt", "templates/"+string(kind)+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		templates[kind] = tmpl
	}
	branding.BaseURL = strings.TrimRight(branding.BaseURL, "/")
	return &Renderer{branding: branding, templates: templates}, nil
}

type templateData struct {
	Branding
	Message Message
}

func (r *Renderer) Render(msg Message) (Email, error) {
	if err := msg.Validate(); err != nil {
		return Email{}, err
	}
	tmpl := r.templates[msg.Kind]
	data := templateData{Branding: r.branding, Message: msg}

	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Email{}, fmt.Errorf("render %s subject: %w", msg.Kind, err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
		return Email{}, fmt.Errorf("render %s body: %w", msg.Kind, err)
	}
	return Email{To: msg.To, Subject: subject.String(), Body: body.String()}, nil
}
