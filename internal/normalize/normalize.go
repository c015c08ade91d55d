// Package normalize turns a decoded send request of either API dialect into
// one canonical email.Message.
package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/shineum/mailgate/internal/address"
	"github.com/shineum/mailgate/internal/attachment"
	"github.com/shineum/mailgate/internal/content"
	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/layout"
	"github.com/shineum/mailgate/internal/mailerr"
)

// Normalizer validates requests and builds outbound messages. All fields are
// read-only after construction, so one Normalizer serves every request.
type Normalizer struct {
	senders     address.SenderPolicy
	resolver    *content.Resolver
	layouts     *layout.Engine
	attachments attachment.Validator
	text        *bluemonday.Policy
}

// New creates a Normalizer.
func New(senders address.SenderPolicy, resolver *content.Resolver, layouts *layout.Engine, attachments attachment.Validator) *Normalizer {
	return &Normalizer{
		senders:     senders,
		resolver:    resolver,
		layouts:     layouts,
		attachments: attachments,
		text:        bluemonday.StrictPolicy(),
	}
}

// Normalize validates req under dialect d and returns the finished message.
// Cheap checks run first: attachment count, required fields, addresses;
// then content rendering, template wrapping and attachment decoding.
func (n *Normalizer) Normalize(d Dialect, req *Request) (*email.Message, error) {
	raws := req.RawAttachments()
	if err := n.attachments.CheckCount(len(raws)); err != nil {
		return nil, err
	}

	if err := requireFields(req); err != nil {
		return nil, err
	}

	msg := &email.Message{Subject: strings.TrimSpace(req.Subject)}

	from, err := address.Parse("from", *req.From)
	if err != nil {
		return nil, err
	}
	if d.CheckSenderDomain {
		if err := n.senders.Check(from); err != nil {
			return nil, err
		}
	}
	msg.From = from

	if req.ReplyTo != nil && !req.ReplyTo.Empty() {
		replyTo, err := address.Parse("replyTo", *req.ReplyTo)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = &replyTo
	}
	if msg.To, err = address.ParseList("to", req.To); err != nil {
		return nil, err
	}
	if msg.Cc, err = address.ParseList("cc", req.Cc); err != nil {
		return nil, err
	}
	if msg.Bcc, err = address.ParseList("bcc", req.Bcc); err != nil {
		return nil, err
	}

	body, err := n.resolver.Resolve(req.Content, req.HTML, d.HTMLMode)
	if err != nil {
		return nil, err
	}

	msg.Template = d.DefaultTemplate
	if req.Template != nil && strings.TrimSpace(*req.Template) != "" {
		if msg.Template, err = email.ParseTemplate(*req.Template); err != nil {
			return nil, err
		}
	}
	if msg.HTML, err = n.layouts.Wrap(body, msg.Template); err != nil {
		return nil, err
	}
	msg.Text = n.plainText(body)

	if msg.Attachments, err = n.attachments.Validate(raws); err != nil {
		return nil, err
	}

	return msg, nil
}

// requireFields reports every missing required field at once.
func requireFields(req *Request) error {
	var missing []string
	if req.From == nil || req.From.Empty() {
		missing = append(missing, "from")
	}
	if len(req.To) == 0 {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if len(missing) > 0 {
		return mailerr.New(mailerr.CodeMissingRequiredField, "missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// plainText strips markup from the unwrapped body for the text/plain part.
func (n *Normalizer) plainText(body string) string {
	stripped := n.text.Sanitize(body)
	stripped = html.UnescapeString(stripped)

	lines := strings.Split(stripped, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
