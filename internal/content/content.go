// Package content resolves the request's content/html fields into the final
// HTML body.
package content

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/shineum/mailgate/internal/mailerr"
)

// HTMLMode controls how a caller-supplied html field is treated.
type HTMLMode int

const (
	// HTMLVerbatim uses the html field as the final body.
	HTMLVerbatim HTMLMode = iota
	// HTMLRoundTrip converts the html field to markdown and renders it back.
	// This canonicalizes arbitrary markup and drops whatever markdown
	// cannot express.
	HTMLRoundTrip
)

func (m HTMLMode) String() string {
	switch m {
	case HTMLVerbatim:
		return "verbatim"
	case HTMLRoundTrip:
		return "roundtrip"
	default:
		return fmt.Sprintf("HTMLMode(%d)", int(m))
	}
}

// Resolver turns markdown and HTML input into a body. It holds no per-call
// state and is safe for concurrent use.
type Resolver struct {
	md   goldmark.Markdown
	conv *md.Converter
}

// NewResolver creates a Resolver. Raw HTML inside markdown is passed
// through untouched and single newlines become <br>. The HTML to markdown
// direction understands the same GFM constructs the renderer emits.
func NewResolver() *Resolver {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	// A <br> becomes a single newline, which hard wraps render back as <br>.
	conv.AddRules(md.Rule{
		Filter: []string{"br"},
		Replacement: func(_ string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String("\n")
		},
	})

	return &Resolver{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
				html.WithHardWraps(),
			),
		),
		conv: conv,
	}
}

// Resolve picks the final body. html wins over content when both are set;
// blank values count as absent.
func (r *Resolver) Resolve(content, htmlBody *string, mode HTMLMode) (string, error) {
	var (
		out string
		err error
	)

	switch {
	case present(htmlBody) && mode == HTMLRoundTrip:
		out, err = r.RoundTrip(*htmlBody)
	case present(htmlBody):
		out = *htmlBody
	case present(content):
		out, err = r.Render(*content)
	default:
		return "", mailerr.New(mailerr.CodeMissingContent, "no 'html' or 'content' field provided")
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(out) == "" {
		return "", mailerr.New(mailerr.CodeMissingContent, "content rendered to an empty body")
	}
	return out, nil
}

// Render converts markdown to HTML.
func (r *Resolver) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// ToMarkdown converts HTML to markdown.
func (r *Resolver) ToMarkdown(htmlBody string) (string, error) {
	out, err := r.conv.ConvertString(htmlBody)
	if err != nil {
		return "", fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	return out, nil
}

// RoundTrip renders the markdown form of htmlBody.
func (r *Resolver) RoundTrip(htmlBody string) (string, error) {
	markdown, err := r.ToMarkdown(htmlBody)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
