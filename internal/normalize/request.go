package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shineum/mailgate/internal/address"
	"github.com/shineum/mailgate/internal/attachment"
	"github.com/shineum/mailgate/internal/mailerr"
)

// Request is a send request as decoded from the wire, before validation.
type Request struct {
	Key      string       `json:"key"`
	Template *string      `json:"template"`
	From     *address.Raw `json:"from"`
	ReplyTo  *address.Raw `json:"replyTo"`
	To       address.List `json:"to"`
	Cc       address.List `json:"cc"`
	Bcc      address.List `json:"bcc"`
	Subject  string       `json:"subject"`
	Content  *string      `json:"content"`
	HTML     *string      `json:"html"`

	// Attachments may be sent as "attachments[]" (the multer field name
	// older clients use) or "attachments".
	Attachments      []attachment.Encoded `json:"attachments[]"`
	AttachmentsPlain []attachment.Encoded `json:"attachments"`

	// Uploads holds multipart file parts.
	Uploads []attachment.Upload `json:"-"`
}

// RawAttachments returns every attachment source in request order.
func (r *Request) RawAttachments() []attachment.Raw {
	n := len(r.Attachments) + len(r.AttachmentsPlain) + len(r.Uploads)
	if n == 0 {
		return nil
	}
	out := make([]attachment.Raw, 0, n)
	for _, a := range r.Attachments {
		out = append(out, a)
	}
	for _, a := range r.AttachmentsPlain {
		out = append(out, a)
	}
	for _, u := range r.Uploads {
		out = append(out, u)
	}
	return out
}

// DefaultMaxMemory is the portion of a multipart body kept in memory; the
// rest spills to temporary files.
const DefaultMaxMemory = 8 << 20

// ReadRequest decodes r's body according to its content type. The returned
// cleanup function releases multipart temporary files and must always be
// called.
func ReadRequest(r *http.Request, d Dialect, maxMemory int64) (*Request, func(), error) {
	noop := func() {}

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, noop, mailerr.Wrap(mailerr.CodeInvalidContentType, err, "unparseable content type %q", ct)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		req, err := decodeJSON(r.Body)
		return req, noop, err
	case "multipart/form-data":
		if !d.AllowMultipart {
			return nil, noop, mailerr.New(mailerr.CodeInvalidContentType, "multipart/form-data is not supported by the %s API", d.Name)
		}
		if maxMemory <= 0 {
			maxMemory = DefaultMaxMemory
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, noop, mailerr.Wrap(mailerr.CodeMalformedRequest, err, "invalid multipart body")
		}
		cleanup := func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}
		req, err := decodeForm(r)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return req, cleanup, nil
	default:
		return nil, noop, mailerr.New(mailerr.CodeInvalidContentType, "unsupported content type %q", mediaType)
	}
}

func decodeJSON(body io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, mailerr.Wrap(mailerr.CodeMalformedRequest, err, "request body too large")
		}
		return nil, mailerr.Wrap(mailerr.CodeMalformedRequest, err, "invalid JSON body")
	}
	return &req, nil
}

// decodeForm maps multipart fields onto a Request. List fields may repeat
// and may use a trailing "[]".
func decodeForm(r *http.Request) (*Request, error) {
	form := r.MultipartForm
	value := func(name string) (string, bool) {
		vs := form.Value[name]
		if len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}
	values := func(name string) []string {
		return append(append([]string(nil), form.Value[name]...), form.Value[name+"[]"]...)
	}

	req := &Request{}
	req.Key, _ = value("key")
	req.Subject, _ = value("subject")
	if v, ok := value("template"); ok {
		req.Template = &v
	}
	if v, ok := value("content"); ok {
		req.Content = &v
	}
	if v, ok := value("html"); ok {
		req.HTML = &v
	}

	single := func(field string) (*address.Raw, error) {
		v, ok := value(field)
		if !ok {
			return nil, nil
		}
		raw, err := address.FromForm(v)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.CodeInvalidAddress, err, "%s: malformed address object", field)
		}
		return &raw, nil
	}
	list := func(field string) (address.List, error) {
		var out address.List
		for i, v := range values(field) {
			raw, err := address.FromForm(v)
			if err != nil {
				return nil, mailerr.Wrap(mailerr.CodeInvalidAddress, err, "%s[%d]: malformed address object", field, i)
			}
			out = append(out, raw)
		}
		return out, nil
	}

	var err error
	if req.From, err = single("from"); err != nil {
		return nil, err
	}
	if req.ReplyTo, err = single("replyTo"); err != nil {
		return nil, err
	}
	if req.To, err = list("to"); err != nil {
		return nil, err
	}
	if req.Cc, err = list("cc"); err != nil {
		return nil, err
	}
	if req.Bcc, err = list("bcc"); err != nil {
		return nil, err
	}

	for _, field := range []string{"attachments[]", "attachments"} {
		for _, fh := range form.File[field] {
			req.Uploads = append(req.Uploads, attachment.Upload{Header: fh})
		}
	}

	return req, nil
}

// String summarizes the request for logs without leaking the key or body.
func (r *Request) String() string {
	var b strings.Builder
	b.WriteString("Request{")
	if r.From != nil {
		fmt.Fprintf(&b, "from=%s ", r.From.Address)
	}
	fmt.Fprintf(&b, "to=%d cc=%d bcc=%d attachments=%d}", len(r.To), len(r.Cc), len(r.Bcc),
		len(r.Attachments)+len(r.AttachmentsPlain)+len(r.Uploads))
	return b.String()
}
