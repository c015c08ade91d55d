package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shineum/mailgate/internal/mailerr"
)

func ptr(s string) *string { return &s }

func TestResolve_ContentOnlyRendersMarkdown(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	for _, mode := range []HTMLMode{HTMLVerbatim, HTMLRoundTrip} {
		out, err := r.Resolve(ptr("**hi**"), nil, mode)
		require.NoError(t, err)
		require.Contains(t, out, "<strong>hi</strong>")
	}
}

func TestResolve_MissingContent(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	tests := []struct {
		name          string
		content, html *string
	}{
		{"both nil", nil, nil},
		{"both blank", ptr(""), ptr("  \n")},
		{"html renders empty", nil, ptr("<div></div>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := r.Resolve(tt.content, tt.html, HTMLRoundTrip)
			require.ErrorIs(t, err, mailerr.ErrMissingContent)
		})
	}
}

func TestResolve_VerbatimHTML(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	body := `<table style="width:100%"><tr><td>x</td></tr></table>`

	out, err := r.Resolve(nil, &body, HTMLVerbatim)
	require.NoError(t, err)
	require.Equal(t, body, out)
}

func TestResolve_HTMLWinsOverContent(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	out, err := r.Resolve(ptr("ignored"), ptr("<p>kept</p>"), HTMLVerbatim)
	require.NoError(t, err)
	require.Equal(t, "<p>kept</p>", out)

	out, err = r.Resolve(ptr("ignored"), ptr("<p>kept</p>"), HTMLRoundTrip)
	require.NoError(t, err)
	require.Contains(t, out, "kept")
	require.NotContains(t, out, "ignored")
}

func TestResolve_RoundTripEqualsRenderOfMarkdown(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	in := `<div style="color:red"><h2>News</h2><b>bold</b> and <a href="https://example.com">a link</a></div>`

	markdown, err := r.ToMarkdown(in)
	require.NoError(t, err)
	want, err := r.Render(markdown)
	require.NoError(t, err)

	got, err := r.Resolve(nil, &in, HTMLRoundTrip)
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Styling markdown cannot express is dropped.
	require.NotContains(t, got, "style=")
	require.Contains(t, got, "<strong>bold</strong>")
	require.Contains(t, got, `<a href="https://example.com">a link</a>`)
}

func TestRoundTrip_IdempotentOnRendererOutput(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	sources := []string{
		"# Title\n\nHello **world**",
		"- one\n- two\n- three",
		"Some *emphasis* and a [link](https://example.com).",
	}
	for _, src := range sources {
		rendered, err := r.Render(src)
		require.NoError(t, err)

		once, err := r.RoundTrip(rendered)
		require.NoError(t, err)
		twice, err := r.RoundTrip(once)
		require.NoError(t, err)

		require.Equal(t, once, twice, src)
	}
}

func TestRoundTrip_KeepsGFMConstructs(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	table := `<table><thead><tr><th>Name</th><th>Room</th></tr></thead>` +
		`<tbody><tr><td>Ada</td><td>E1</td></tr></tbody></table>`
	got, err := r.Resolve(nil, &table, HTMLRoundTrip)
	require.NoError(t, err)
	require.Contains(t, got, "<table>")
	require.Contains(t, got, "<th>Name</th>")
	require.Contains(t, got, "<th>Room</th>")
	require.Contains(t, got, "<td>Ada</td>")
	require.Contains(t, got, "<td>E1</td>")

	struck := "<p><del>cancelled</del> moved</p>"
	got, err = r.Resolve(nil, &struck, HTMLRoundTrip)
	require.NoError(t, err)
	require.Equal(t, "<p><del>cancelled</del> moved</p>\n", got)

	broken := "<p>first line<br>second line</p>"
	got, err = r.Resolve(nil, &broken, HTMLRoundTrip)
	require.NoError(t, err)
	require.Equal(t, "<p>first line<br>\nsecond line</p>\n", got)

	for _, in := range []string{table, struck, broken} {
		once, err := r.RoundTrip(in)
		require.NoError(t, err)
		twice, err := r.RoundTrip(once)
		require.NoError(t, err)
		require.Equal(t, once, twice, in)
	}
}

func TestRender_MarkdownFeatures(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	out, err := r.Render("# Heading\n\n*em* **strong**\n\n1. first\n2. second\n\n[site](https://example.com)\nnext line")
	require.NoError(t, err)

	require.Contains(t, out, "<h1>Heading</h1>")
	require.Contains(t, out, "<em>em</em>")
	require.Contains(t, out, "<strong>strong</strong>")
	require.Contains(t, out, "<ol>")
	require.Contains(t, out, "<li>first</li>")
	require.Contains(t, out, `<a href="https://example.com">site</a>`)
	require.Contains(t, out, "<br>")
}

func TestRender_RawHTMLPassesThrough(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	out, err := r.Render(`Hello <span class="tag">there</span> **you**`)
	require.NoError(t, err)
	require.Contains(t, out, `<span class="tag">there</span>`)
	require.Contains(t, out, "<strong>you</strong>")
	require.NotContains(t, out, "&lt;span")
}

func TestHTMLMode_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "verbatim", HTMLVerbatim.String())
	require.Equal(t, "roundtrip", HTMLRoundTrip.String())
	require.Equal(t, "HTMLMode(7)", HTMLMode(7).String())
}
