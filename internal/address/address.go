// Package address parses and validates the address fields of a send request.
package address

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/mailerr"
)

// Raw is an address as it arrives on the wire: either a bare string
// ("user@domain" or "Name <user@domain>") or a {name, address} object.
type Raw struct {
	Name    string `json:"name"`
	Address string `json:"address"`

	// bare is set when the value came in as a plain string.
	bare bool
}

// Bare returns a Raw holding a plain string value.
func Bare(s string) Raw {
	return Raw{Address: s, bare: true}
}

// UnmarshalJSON accepts a string or an object.
func (r *Raw) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Bare(s)
		return nil
	}

	var obj struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("address must be a string or {name, address} object: %w", err)
	}
	*r = Raw{Name: obj.Name, Address: obj.Address}
	return nil
}

// FromForm interprets a form field value. Values that look like a JSON
// object are decoded as {name, address}; anything else is a bare string.
func FromForm(v string) (Raw, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "{") {
		var r Raw
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return Raw{}, err
		}
		return r, nil
	}
	return Bare(v), nil
}

// Empty reports whether no address was supplied.
func (r Raw) Empty() bool {
	return strings.TrimSpace(r.Address) == ""
}

// List is a recipient list. On the wire it may be an array or a single value.
type List []Raw

// UnmarshalJSON accepts an array, a single string/object, or null.
func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []Raw
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		var one Raw
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = List{one}
		return nil
	}
}

// Parse validates a single address. field is used in error messages.
func Parse(field string, raw Raw) (email.Address, error) {
	value := strings.TrimSpace(raw.Address)
	if value == "" {
		return email.Address{}, mailerr.New(mailerr.CodeInvalidAddress, "%s: empty address", field)
	}

	parsed, err := mail.ParseAddress(value)
	if err != nil {
		return email.Address{}, mailerr.Wrap(mailerr.CodeInvalidAddress, err, "%s: %q", field, value)
	}

	if !raw.bare {
		// The object form carries the name separately; its address part
		// must be a plain mailbox.
		if parsed.Name != "" || parsed.Address != value {
			return email.Address{}, mailerr.New(mailerr.CodeInvalidAddress, "%s: %q is not a plain address", field, value)
		}
		return email.Address{Name: strings.TrimSpace(raw.Name), Address: parsed.Address}, nil
	}

	return email.Address{Name: parsed.Name, Address: parsed.Address}, nil
}

// ParseList validates every element of a list. A single invalid element fails
// the whole list.
func ParseList(field string, raws List) ([]email.Address, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]email.Address, 0, len(raws))
	for i, raw := range raws {
		addr, err := Parse(fmt.Sprintf("%s[%d]", field, i), raw)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// SenderPolicy restricts which domains may appear in the from field.
type SenderPolicy struct {
	domains []string
}

// NewSenderPolicy returns a policy allowing the given domains. An empty list
// allows every domain.
func NewSenderPolicy(domains []string) SenderPolicy {
	clean := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			clean = append(clean, d)
		}
	}
	return SenderPolicy{domains: clean}
}

// Check fails with UnauthorizedSender when addr's domain is not allowed.
func (p SenderPolicy) Check(addr email.Address) error {
	if len(p.domains) == 0 {
		return nil
	}
	domain := addr.Domain()
	if !slices.Contains(p.domains, domain) {
		return mailerr.New(mailerr.CodeUnauthorizedSender, "domain %q is not a verified sender domain", domain)
	}
	return nil
}
