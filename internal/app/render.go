package app

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"

	"github.com/meridianlaw/intake/internal/cases"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed content/*.md
var contentFiles embed.FS

// renderer adapts html/template to echo's Renderer interface. All view
// templates are embedded and parsed once at startup.
type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"statusName": cases.StatusName,
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &renderer{templates: t}, nil
}

// Render satisfies [echo.Renderer].
func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// renderPage converts an embedded markdown content file to HTML for the
// informational pages.
func renderPage(name string) (template.HTML, error) {
	src, err := contentFiles.ReadFile("content/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("failed to read content page %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to render content page %q: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // trusted embedded content
}
