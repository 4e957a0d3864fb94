package console

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
)

// Embed templates
//
//go:embed templates/*
var templateAssets embed.FS

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// parsePages builds one template per page, each combined with the base layout.
func parsePages(names ...string) (map[string]*template.Template, error) {
	templates, err := fs.Sub(templateAssets, "templates")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templates, "base.html", name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}
