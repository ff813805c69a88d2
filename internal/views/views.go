// Package views holds the console's HTML templates. Every page template is
// parsed together with the shared layout and renders through "layout".
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/render"
)

//go:embed all:templates
var files embed.FS

const (
	layoutFile = "templates/_layout.html"
	rootName   = "layout"
)

// Renderer implements gin's render.HTMLRender over the embedded page set.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page template against the layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	err := fs.WalkDir(files, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" || strings.HasPrefix(path.Base(p), "_") {
			return nil
		}
		name := strings.TrimPrefix(p, "templates/")
		tmpl, err := template.New(rootName).Funcs(Funcs()).ParseFS(files, layoutFile, p)
		if err != nil {
			return fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for program start-up.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Names lists the registered page names.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	return names
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		tmpl = template.Must(template.New(rootName).Parse(`missing template ` + template.HTMLEscapeString(name)))
	}
	return render.HTML{Template: tmpl, Name: rootName, Data: data}
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"pageURL": func(base string, page int) string {
			return base + "?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
		},
		"studentURL": func(base string, id int64) string {
			if id == 0 {
				return base
			}
			return base + "?" + url.Values{"studentId": {strconv.FormatInt(id, 10)}}.Encode()
		},
		"field": func(errs map[string]string, name string) string {
			return errs[name]
		},
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd argument count")
			}
			out := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				out[key] = pairs[i+1]
			}
			return out, nil
		},
	}
}
