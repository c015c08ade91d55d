// Package email defines the canonical outbound message produced by the
// normalizer and consumed by delivery providers.
package email

import (
	"net/mail"
	"strings"

	"github.com/shineum/mailgate/internal/mailerr"
)

// Template names a visual skeleton the body is wrapped in.
type Template string

const (
	TemplateDefault    Template = "default"
	TemplateMetaspexet Template = "metaspexet"
	TemplateNone       Template = "none"
)

// Templates lists every template name the gateway understands.
var Templates = []Template{TemplateDefault, TemplateMetaspexet, TemplateNone}

// ParseTemplate maps a request value to a Template. Matching is
// case-insensitive.
func ParseTemplate(s string) (Template, error) {
	t := Template(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Templates {
		if t == known {
			return t, nil
		}
	}
	return "", mailerr.New(mailerr.CodeUnknownTemplate, "unknown template %q", s)
}

// Address is a validated mailbox with an optional display name.
type Address struct {
	Name    string
	Address string
}

// String formats the address per RFC 5322, encoding non-ASCII names.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return (&mail.Address{Name: a.Name, Address: a.Address}).String()
}

// Domain returns the lower-cased part after the last '@'.
func (a Address) Domain() string {
	i := strings.LastIndexByte(a.Address, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(a.Address[i+1:])
}

// Strings formats each address with String.
func Strings(addrs []Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// Message is a fully resolved email ready for dispatch. It is built once by
// the normalizer and must not be modified afterwards.
type Message struct {
	From        Address
	ReplyTo     *Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	Subject     string
	HTML        string
	Text        string
	Template    Template
	Attachments []Attachment
}

// Attachment is a decoded file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
