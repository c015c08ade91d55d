// Package attachment validates and decodes request attachments from either
// base64/utf-8 encoded JSON fields or multipart file uploads.
package attachment

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/mailerr"
)

const (
	// DefaultMaxCount is the maximum number of attachments per message.
	DefaultMaxCount = 5

	// DefaultMaxSize is the per-attachment limit, 10 MB in bytes.
	DefaultMaxSize = 10485760
)

// Raw is an attachment that has not been decoded yet.
type Raw interface {
	// Decode validates the source and returns its bytes, failing when they
	// exceed maxSize.
	Decode(maxSize int64) (email.Attachment, error)
}

// Encoded is an attachment carried inside a JSON body.
type Encoded struct {
	OriginalName string  `json:"originalname"`
	MimeType     string  `json:"mimetype"`
	Buffer       *string `json:"buffer"`
	Encoding     string  `json:"encoding"`
}

// Decode implements Raw.
func (e Encoded) Decode(maxSize int64) (email.Attachment, error) {
	name := strings.TrimSpace(e.OriginalName)
	var missing []string
	if name == "" {
		missing = append(missing, "originalname")
	}
	if e.Buffer == nil {
		missing = append(missing, "buffer")
	}
	if strings.TrimSpace(e.MimeType) == "" {
		missing = append(missing, "mimetype")
	}
	if len(missing) > 0 {
		return email.Attachment{}, mailerr.New(mailerr.CodeInvalidAttachment,
			"attachment %q is missing %s", name, strings.Join(missing, ", "))
	}

	contentType, err := mediaType(name, e.MimeType)
	if err != nil {
		return email.Attachment{}, err
	}

	var data []byte
	switch normalizeEncoding(e.Encoding) {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(*e.Buffer)
		if int64(base64.StdEncoding.DecodedLen(len(cleaned))) > maxSize+2 {
			return email.Attachment{}, tooLarge(name, maxSize)
		}
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return email.Attachment{}, mailerr.Wrap(mailerr.CodeAttachmentDecodeError, err,
				"failed to decode attachment %q", name)
		}
		data = decoded
	case "utf8":
		data = []byte(*e.Buffer)
	default:
		return email.Attachment{}, mailerr.New(mailerr.CodeUnsupportedEncoding,
			"unsupported attachment encoding %q for %q", e.Encoding, name)
	}

	if int64(len(data)) > maxSize {
		return email.Attachment{}, tooLarge(name, maxSize)
	}

	return email.Attachment{
		Filename:    name,
		ContentType: contentType,
		Content:     data,
	}, nil
}

// normalizeEncoding maps accepted spellings to "base64" or "utf8". An empty
// value means base64.
func normalizeEncoding(enc string) string {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "base64":
		return "base64"
	case "utf-8", "utf8":
		return "utf8"
	default:
		return ""
	}
}

// Upload is a file received through a multipart form. Its bytes are already
// raw, so there is no encoding step.
type Upload struct {
	Header *multipart.FileHeader
}

// Decode implements Raw.
func (u Upload) Decode(maxSize int64) (email.Attachment, error) {
	if u.Header == nil {
		return email.Attachment{}, mailerr.New(mailerr.CodeInvalidAttachment, "empty upload")
	}

	name := filepath.Base(strings.TrimSpace(u.Header.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return email.Attachment{}, mailerr.New(mailerr.CodeInvalidAttachment, "upload is missing originalname")
	}

	contentType := strings.TrimSpace(u.Header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		return email.Attachment{}, mailerr.New(mailerr.CodeInvalidAttachment, "attachment %q is missing mimetype", name)
	}
	contentType, err := mediaType(name, contentType)
	if err != nil {
		return email.Attachment{}, err
	}

	if u.Header.Size > maxSize {
		return email.Attachment{}, tooLarge(name, maxSize)
	}

	f, err := u.Header.Open()
	if err != nil {
		return email.Attachment{}, mailerr.Wrap(mailerr.CodeInvalidAttachment, err, "failed to open upload %q", name)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return email.Attachment{}, mailerr.Wrap(mailerr.CodeInvalidAttachment, err, "failed to read upload %q", name)
	}
	if int64(len(data)) > maxSize {
		return email.Attachment{}, tooLarge(name, maxSize)
	}

	return email.Attachment{
		Filename:    name,
		ContentType: contentType,
		Content:     data,
	}, nil
}

// mediaType parses raw as a MIME media type and returns it re-serialized,
// so only a well-formed value ever reaches a MIME header.
func mediaType(name, raw string) (string, error) {
	mt, params, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err == nil && strings.ContainsAny(raw, "\r\n") {
		err = fmt.Errorf("line break in media type")
	}
	var formatted string
	if err == nil {
		formatted = mime.FormatMediaType(mt, params)
	}
	if formatted == "" {
		if err == nil {
			err = fmt.Errorf("unrepresentable media type")
		}
		return "", mailerr.Wrap(mailerr.CodeInvalidAttachment, err, "attachment %q has invalid mimetype %q", name, raw)
	}
	return formatted, nil
}

func tooLarge(name string, maxSize int64) error {
	return mailerr.New(mailerr.CodeAttachmentTooLarge, "attachment %q exceeds %s", name, formatSize(maxSize))
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Validator bounds and decodes a request's attachments.
type Validator struct {
	MaxCount int
	MaxSize  int64
}

// NewValidator returns a Validator, substituting defaults for zero limits.
func NewValidator(maxCount int, maxSize int64) Validator {
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return Validator{MaxCount: maxCount, MaxSize: maxSize}
}

// CheckCount fails with TooManyAttachments when n exceeds the limit.
func (v Validator) CheckCount(n int) error {
	if n > v.MaxCount {
		return mailerr.New(mailerr.CodeTooManyAttachments, "%d attachments given, at most %d allowed", n, v.MaxCount)
	}
	return nil
}

// Validate decodes every attachment. The first failure aborts.
func (v Validator) Validate(raws []Raw) ([]email.Attachment, error) {
	if err := v.CheckCount(len(raws)); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}

	out := make([]email.Attachment, 0, len(raws))
	for _, raw := range raws {
		att, err := raw.Decode(v.MaxSize)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}
