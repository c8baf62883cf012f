package app

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

type TemplateRegistry struct {
	templates *template.Template
}

// Implement e.Renderer interface
func (t *TemplateRegistry) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	// duration renders track length in m:ss from milliseconds.
	"duration": func(ms int) string {
		s := ms / 1000
		return fmt.Sprintf("%d:%02d", s/60, s%60)
	},
}

func NewTemplateRegistry(glob string) *TemplateRegistry {
	return &TemplateRegistry{
		templates: template.Must(template.New("").Funcs(templateFuncs).ParseGlob(glob)),
	}
}
