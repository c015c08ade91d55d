package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	a := NewStatic("alpha", "beta")

	tests := []struct {
		key  string
		want bool
	}{
		{"alpha", true},
		{"beta", true},
		{"gamma", false},
		{"", false},
		{"alph", false},
	}
	for _, tt := range tests {
		ok, err := a.Authorize(context.Background(), tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "key %q", tt.key)
	}
}

func TestAllowAll(t *testing.T) {
	t.Parallel()

	ok, err := AllowAll{}.Authorize(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AllowAll{}.Authorize(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func hiveServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r.Clone(context.Background())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestHive_Allowed(t *testing.T) {
	t.Parallel()

	srv, seen := hiveServer(t, http.StatusOK, "true\n")

	ok, err := NewHive(srv.URL+"/api/v0/", "s3cret").Authorize(context.Background(), "my key")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, http.MethodGet, seen.Method)
	assert.Equal(t, "/api/v0/token/my key/permission/send", seen.URL.Path)
	assert.Equal(t, "Bearer s3cret", seen.Header.Get("Authorization"))
}

func TestHive_Denied(t *testing.T) {
	t.Parallel()

	srv, _ := hiveServer(t, http.StatusOK, "false")

	ok, err := NewHive(srv.URL, "s").Authorize(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHive_EmptyKeySkipsLookup(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("true"))
	}))
	t.Cleanup(srv.Close)

	ok, err := NewHive(srv.URL, "s").Authorize(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestHive_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"unparseable body", http.StatusOK, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := hiveServer(t, tt.status, tt.body)
			_, err := NewHive(srv.URL, "s").Authorize(context.Background(), "k")
			require.Error(t, err)
		})
	}
}

func TestHive_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHive(url, "s", WithHTTPClient(srv.Client())).Authorize(context.Background(), "k")
	require.Error(t, err)
}
