package mailerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeInvalidAddress, "to[1]: %q", "nope")

	require.ErrorIs(t, err, ErrInvalidAddress)
	require.NotErrorIs(t, err, ErrMissingContent)
}

func TestError_IsThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("normalize: %w", New(CodeMissingContent, "no body"))

	require.ErrorIs(t, err, ErrMissingContent)
	require.Equal(t, CodeMissingContent, CodeOf(err))
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("illegal base64 data at input byte 4")
	err := Wrap(CodeAttachmentDecodeError, cause, "attachment %q", "a.pdf")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "a.pdf")
	require.Contains(t, err.Error(), "illegal base64")
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "MissingContent", ErrMissingContent.Error())
	require.Equal(t, "Unauthorized: bad key", New(CodeUnauthorized, "bad key").Error())
}

func TestCodeOf_NotClassified(t *testing.T) {
	t.Parallel()

	require.Equal(t, Code(""), CodeOf(errors.New("plain")))
	require.Equal(t, Code(""), CodeOf(nil))
}

func TestError_Validation(t *testing.T) {
	t.Parallel()

	require.True(t, New(CodeTooManyAttachments, "6 > 5").Validation())
	require.False(t, New(CodeProviderDispatchError, "timeout").Validation())
	require.False(t, New(CodeUnauthorized, "bad key").Validation())
}
