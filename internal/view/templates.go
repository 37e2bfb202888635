package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/web"
)

// ErrNoEngine is returned when rendering through a nil Engine.
var ErrNoEngine = errors.New("view: template engine not initialised")

// Engine renders the embedded HTML templates. Output is buffered so a failing
// template never leaves a half-written page behind.
type Engine struct {
	templates *template.Template
	buffers   sync.Pool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Data        any
}

// NavItem is one entry of the sidebar.
type NavItem struct {
	Label string
	Path  string
}

// Navigation lists the sidebar entries.
var Navigation = []NavItem{
	{Label: "Dashboard", Path: "/"},
	{Label: "Staff Roles", Path: "/roles"},
	{Label: "Permissions", Path: "/permissions"},
}

// NewEngine parses every embedded layout, partial and page.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"navigation": func() []NavItem { return Navigation },
		"activeNav": func(current, path string) bool {
			if path == "/" {
				return current == "/"
			}
			return current == path || strings.HasPrefix(current, path+"/")
		},
		"lower": strings.ToLower,
		// dict returns an empty lookup so templates can default optional maps.
		"dict": func() map[string]string { return map[string]string{} },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/layouts/*.html",
		"templates/partials/*.html",
		"templates/pages/*/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{
		templates: tpl,
		buffers:   sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}, nil
}

// Render executes the named template and copies the result to w.
func (e *Engine) Render(w io.Writer, name string, data TemplateData) error {
	if e == nil {
		return ErrNoEngine
	}
	buf := e.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer e.buffers.Put(buf)

	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
