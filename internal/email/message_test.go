package email

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shineum/mailgate/internal/mailerr"
)

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Template
	}{
		{"default", TemplateDefault},
		{"Metaspexet", TemplateMetaspexet},
		{" none ", TemplateNone},
	}
	for _, tt := range tests {
		got, err := ParseTemplate(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}

	_, err := ParseTemplate("fancy")
	require.ErrorIs(t, err, mailerr.ErrUnknownTemplate)
}

func TestAddress_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a@example.com", Address{Address: "a@example.com"}.String())
	require.Equal(t, `"Ada Lovelace" <ada@example.com>`, Address{Name: "Ada Lovelace", Address: "ada@example.com"}.String())
	require.Equal(t, "=?utf-8?q?G=C3=B6ran?= <g@example.se>", Address{Name: "Göran", Address: "g@example.se"}.String())
}

func TestAddress_Domain(t *testing.T) {
	t.Parallel()

	require.Equal(t, "datasektionen.se", Address{Address: "x@DataSektionen.se"}.Domain())
	require.Equal(t, "", Address{Address: "nodomain"}.Domain())
}

func TestStrings(t *testing.T) {
	t.Parallel()

	require.Nil(t, Strings(nil))
	require.Equal(t, []string{"a@x.com", `"B" <b@x.com>`}, Strings([]Address{
		{Address: "a@x.com"},
		{Name: "B", Address: "b@x.com"},
	}))
}
