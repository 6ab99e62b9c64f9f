package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePage() (*template.Template, error) {
	return template.New("index.html").ParseFS(templateFS, "templates/index.html")
}
