package layout

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/mailerr"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"default/html.tmpl":    &fstest.MapFile{Data: []byte(`<html><body>{{.Content}}</body></html>`)},
		"metaspexet/html.tmpl": &fstest.MapFile{Data: []byte(`<main class="meta">{{.Content}}</main>`)},
	}
}

func TestWrap_None(t *testing.T) {
	t.Parallel()

	e, err := Load(testFS())
	require.NoError(t, err)

	body := "<p>Hi & <b>bye</b></p>\n"
	out, err := e.Wrap(body, email.TemplateNone)
	require.NoError(t, err)
	require.Equal(t, body, out)
}

func TestWrap_DefaultEmbedsAtSubstitutionPoint(t *testing.T) {
	t.Parallel()

	e, err := Load(testFS())
	require.NoError(t, err)

	out, err := e.Wrap("<p>Hello</p>", email.TemplateDefault)
	require.NoError(t, err)
	require.Equal(t, "<html><body><p>Hello</p></body></html>", out)
}

func TestWrap_Metaspexet(t *testing.T) {
	t.Parallel()

	e, err := Load(testFS())
	require.NoError(t, err)

	out, err := e.Wrap("<p>Premiär!</p>", email.TemplateMetaspexet)
	require.NoError(t, err)
	require.Equal(t, `<main class="meta"><p>Premiär!</p></main>`, out)
}

func TestWrap_UnknownTemplate(t *testing.T) {
	t.Parallel()

	e, err := Load(testFS())
	require.NoError(t, err)

	_, err = e.Wrap("<p>x</p>", email.Template("fancy"))
	require.ErrorIs(t, err, mailerr.ErrUnknownTemplate)
}

func TestLoad_MissingSkeleton(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	delete(fsys, "metaspexet/html.tmpl")

	_, err := Load(fsys)
	require.Error(t, err)
	require.Contains(t, err.Error(), "metaspexet/html.tmpl")
}

func TestLoad_InvalidSkeleton(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	fsys["default/html.tmpl"] = &fstest.MapFile{Data: []byte(`{{.Content`)}

	_, err := Load(fsys)
	require.Error(t, err)
}

func TestBundled(t *testing.T) {
	t.Parallel()

	e, err := Load(Bundled())
	require.NoError(t, err)

	for _, name := range []email.Template{email.TemplateDefault, email.TemplateMetaspexet} {
		out, err := e.Wrap("<p>marker-body</p>", name)
		require.NoError(t, err)
		require.Equal(t, 1, strings.Count(out, "<p>marker-body</p>"), name)
		require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"), name)
	}
}
