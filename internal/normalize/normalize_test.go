package normalize

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/shineum/mailgate/internal/address"
	"github.com/shineum/mailgate/internal/attachment"
	"github.com/shineum/mailgate/internal/content"
	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/layout"
	"github.com/shineum/mailgate/internal/mailerr"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()

	layouts, err := layout.Load(fstest.MapFS{
		"default/html.tmpl":    &fstest.MapFile{Data: []byte(`<div id="default">{{.Content}}</div>`)},
		"metaspexet/html.tmpl": &fstest.MapFile{Data: []byte(`<div id="meta">{{.Content}}</div>`)},
	})
	require.NoError(t, err)

	return New(
		address.NewSenderPolicy([]string{"datasektionen.se", "metaspexet.se", "ddagen.se"}),
		content.NewResolver(),
		layouts,
		attachment.NewValidator(5, attachment.DefaultMaxSize),
	)
}

func decode(t *testing.T, body string) *Request {
	t.Helper()

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestNormalize_LegacyScenario(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"key":"k","from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"hi"}`)

	msg, err := n.Normalize(Legacy, req)
	require.NoError(t, err)

	require.Equal(t, email.Address{Address: "a@datasektionen.se"}, msg.From)
	require.Equal(t, []email.Address{{Address: "b@x.com"}}, msg.To)
	require.Equal(t, "S", msg.Subject)
	require.Equal(t, email.TemplateDefault, msg.Template)
	require.True(t, strings.HasPrefix(msg.HTML, `<div id="default">`))
	require.Contains(t, msg.HTML, "<p>hi</p>")
	require.Equal(t, "hi", msg.Text)
	require.Empty(t, msg.Attachments)
}

func TestNormalize_DialectTemplateDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, email.TemplateDefault, Legacy.DefaultTemplate)
	require.Equal(t, email.TemplateDefault, Current.DefaultTemplate)

	n := newTestNormalizer(t)
	for _, d := range []Dialect{Legacy, Current} {
		req := decode(t, `{"from":"a@datasektionen.se","to":"b@x.com","subject":"S","content":"x"}`)
		msg, err := n.Normalize(d, req)
		require.NoError(t, err, d.Name)
		require.Equal(t, email.TemplateDefault, msg.Template, d.Name)
	}
}

func TestNormalize_TemplateSelection(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	req := decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"**hi**","template":"none"}`)
	msg, err := n.Normalize(Legacy, req)
	require.NoError(t, err)
	require.Equal(t, "<p><strong>hi</strong></p>\n", msg.HTML)

	req = decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"hi","template":"metaspexet"}`)
	msg, err = n.Normalize(Legacy, req)
	require.NoError(t, err)
	require.Equal(t, "<div id=\"meta\"><p>hi</p>\n</div>", msg.HTML)

	req = decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"hi","template":"fancy"}`)
	_, err = n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrUnknownTemplate)
}

func TestNormalize_LegacyHTMLVerbatim(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","html":"<h1 style=\"color:red\">Hi</h1>","content":"ignored","template":"none"}`)

	msg, err := n.Normalize(Legacy, req)
	require.NoError(t, err)
	require.Equal(t, `<h1 style="color:red">Hi</h1>`, msg.HTML)
}

func TestNormalize_CurrentHTMLRoundTrip(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"from":"a@gmail.com","to":["b@x.com"],"subject":"S","html":"<h1 style=\"color:red\">Hi</h1>","template":"none"}`)

	msg, err := n.Normalize(Current, req)
	require.NoError(t, err)

	r := content.NewResolver()
	markdown, err := r.ToMarkdown(`<h1 style="color:red">Hi</h1>`)
	require.NoError(t, err)
	want, err := r.Render(markdown)
	require.NoError(t, err)

	require.Equal(t, want, msg.HTML)
	require.NotContains(t, msg.HTML, "style")
}

func TestNormalize_MissingContent(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S"}`)

	msg, err := n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrMissingContent)
	require.Nil(t, msg)
}

func TestNormalize_MissingRequiredFieldsAggregated(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"content":"hi"}`)

	_, err := n.Normalize(Current, req)
	require.ErrorIs(t, err, mailerr.ErrMissingRequiredField)
	require.Contains(t, err.Error(), "from, to, subject")
}

func TestNormalize_InvalidRecipientAllOrNothing(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{"from":"a@datasektionen.se","to":["ok@x.com","broken"],"subject":"S","content":"hi"}`)

	msg, err := n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrInvalidAddress)
	require.Nil(t, msg)
}

func TestNormalize_InvalidCcAndReplyTo(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	req := decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"cc":["nope"],"subject":"S","content":"hi"}`)
	_, err := n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrInvalidAddress)

	req = decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"replyTo":"nope","subject":"S","content":"hi"}`)
	_, err = n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrInvalidAddress)
}

func TestNormalize_SenderDomainOnlyInLegacy(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	body := `{"from":{"name":"Someone","address":"someone@gmail.com"},"to":["b@x.com"],"subject":"S","content":"hi"}`

	_, err := n.Normalize(Legacy, decode(t, body))
	require.ErrorIs(t, err, mailerr.ErrUnauthorizedSender)

	msg, err := n.Normalize(Current, decode(t, body))
	require.NoError(t, err)
	require.Equal(t, email.Address{Name: "Someone", Address: "someone@gmail.com"}, msg.From)
}

func TestNormalize_AllAddressFields(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	req := decode(t, `{
		"from": {"name": "Spam", "address": "spam@datasektionen.se"},
		"replyTo": "Ordf <ordf@datasektionen.se>",
		"to": ["a@x.com", {"name": "B", "address": "b@x.com"}],
		"cc": "c@x.com",
		"bcc": ["d@x.com"],
		"subject": "  Hello  ",
		"content": "hi"
	}`)

	msg, err := n.Normalize(Legacy, req)
	require.NoError(t, err)

	require.Equal(t, email.Address{Name: "Spam", Address: "spam@datasektionen.se"}, msg.From)
	require.Equal(t, &email.Address{Name: "Ordf", Address: "ordf@datasektionen.se"}, msg.ReplyTo)
	require.Equal(t, []email.Address{{Address: "a@x.com"}, {Name: "B", Address: "b@x.com"}}, msg.To)
	require.Equal(t, []email.Address{{Address: "c@x.com"}}, msg.Cc)
	require.Equal(t, []email.Address{{Address: "d@x.com"}}, msg.Bcc)
	require.Equal(t, "Hello", msg.Subject)
}

func TestNormalize_TooManyAttachmentsRegardlessOfOtherFields(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	att := `{"originalname":"a.txt","mimetype":"text/plain","buffer":"aGk="}`
	atts := strings.Repeat(att+",", 5) + att

	// Every other field is invalid too.
	req := decode(t, `{"from":"nope","to":["broken"],"attachments[]":[`+atts+`]}`)

	_, err := n.Normalize(Current, req)
	require.ErrorIs(t, err, mailerr.ErrTooManyAttachments)

	_, err = n.Normalize(Legacy, req)
	require.ErrorIs(t, err, mailerr.ErrTooManyAttachments)
}

func TestNormalize_Attachments(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	payload := base64.StdEncoding.EncodeToString([]byte("pdf bytes"))
	req := decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"hi",
		"attachments[]":[{"originalname":"a.pdf","mimetype":"application/pdf","buffer":"`+payload+`","encoding":"base64"}],
		"attachments":[{"originalname":"b.txt","mimetype":"text/plain","buffer":"plain","encoding":"utf-8"}]}`)

	msg, err := n.Normalize(Legacy, req)
	require.NoError(t, err)
	require.Equal(t, []email.Attachment{
		{Filename: "a.pdf", ContentType: "application/pdf", Content: []byte("pdf bytes")},
		{Filename: "b.txt", ContentType: "text/plain", Content: []byte("plain")},
	}, msg.Attachments)
}

func TestNormalize_AttachmentErrorsComeLast(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	bad := `"attachments[]":[{"originalname":"a.txt","mimetype":"text/plain","buffer":"%%%"}]`

	// An address error wins over a decode error.
	_, err := n.Normalize(Legacy, decode(t, `{"from":"a@datasektionen.se","to":["broken"],"subject":"S","content":"hi",`+bad+`}`))
	require.ErrorIs(t, err, mailerr.ErrInvalidAddress)

	_, err = n.Normalize(Legacy, decode(t, `{"from":"a@datasektionen.se","to":["b@x.com"],"subject":"S","content":"hi",`+bad+`}`))
	require.ErrorIs(t, err, mailerr.ErrAttachmentDecodeError)
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	got := n.plainText("<h1>Title</h1>\n<p>Hello <strong>world</strong> &amp; friends</p>\n\n\n<ul>\n<li>one</li>\n</ul>\n")
	require.Equal(t, "Title\nHello world & friends\n\none", got)
}
