package email

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"virtualexpo/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Every notification is three files: <name>_subject.txt, <name>.txt and <name>.html.
var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
)

type templateRenderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// NewTemplateRenderer returns the renderer for the embedded lifecycle notification templates.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{text: textTemplates, html: htmlTemplates}
}

func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	var sb, hb, tb strings.Builder
	if err := r.execText(&sb, templateName+"_subject.txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", templateName, err)
	}
	if err := r.execText(&tb, templateName+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", templateName, err)
	}
	html := r.html.Lookup(templateName + ".html")
	if html == nil {
		return "", "", "", fmt.Errorf("render %s html: unknown template", templateName)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", templateName, err)
	}
	return strings.TrimSpace(sb.String()), hb.String(), tb.String(), nil
}

func (r *templateRenderer) execText(b *strings.Builder, name string, data any) error {
	t := r.text.Lookup(name)
	if t == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.Execute(b, data)
}
