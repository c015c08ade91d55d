// Package layout wraps rendered bodies in the gateway's visual templates.
package layout

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/mailerr"
)

// skeletonFile is the file each template directory must provide.
const skeletonFile = "html.tmpl"

//go:embed templates
var embedded embed.FS

// Bundled returns the skeletons shipped with the binary.
func Bundled() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Engine holds parsed skeletons. It is built once at startup and only read
// afterwards.
type Engine struct {
	skeletons map[email.Template]*template.Template
}

// Load parses <name>/html.tmpl from fsys for every template except none.
// Skeletons receive the body as {{.Content}}.
func Load(fsys fs.FS) (*Engine, error) {
	e := &Engine{skeletons: make(map[email.Template]*template.Template)}

	for _, name := range email.Templates {
		if name == email.TemplateNone {
			continue
		}
		file := path.Join(string(name), skeletonFile)
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", file, err)
		}
		tmpl, err := template.New(string(name)).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		e.skeletons[name] = tmpl
	}

	return e, nil
}

// skeletonData is what a skeleton can reference.
type skeletonData struct {
	Content template.HTML
}

// Wrap substitutes body into the named skeleton. TemplateNone returns body
// unchanged.
func (e *Engine) Wrap(body string, name email.Template) (string, error) {
	if name == email.TemplateNone {
		return body, nil
	}

	tmpl, ok := e.skeletons[name]
	if !ok {
		return "", mailerr.New(mailerr.CodeUnknownTemplate, "unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, skeletonData{Content: template.HTML(body)}); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
