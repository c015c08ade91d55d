package normalize

import (
	"github.com/shineum/mailgate/internal/content"
	"github.com/shineum/mailgate/internal/email"
)

// Dialect is the fixed set of rules an API route applies. It is chosen by
// the route that was called, never by inspecting the payload.
type Dialect struct {
	Name string

	// DefaultTemplate applies when the request omits template.
	DefaultTemplate email.Template

	// HTMLMode controls how the html field is processed.
	HTMLMode content.HTMLMode

	// CheckSenderDomain enables the verified-domain check on from. The
	// current dialect leaves sender authorization to the key check.
	CheckSenderDomain bool

	// AllowMultipart permits multipart/form-data bodies.
	AllowMultipart bool
}

var (
	// Legacy is the /api/legacy dialect.
	Legacy = Dialect{
		Name:              "legacy",
		DefaultTemplate:   email.TemplateDefault,
		HTMLMode:          content.HTMLVerbatim,
		CheckSenderDomain: true,
		AllowMultipart:    false,
	}

	// Current is the /api dialect.
	Current = Dialect{
		Name:              "current",
		DefaultTemplate:   email.TemplateDefault,
		HTMLMode:          content.HTMLRoundTrip,
		CheckSenderDomain: false,
		AllowMultipart:    true,
	}
)
