package urlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "simple join",
			base:  "https://example.com",
			paths: []string{"api", "auth", "zalo"},
			want:  "https://example.com/api/auth/zalo",
		},
		{
			name:  "base with path",
			base:  "https://example.com/app",
			paths: []string{"api", "auth"},
			want:  "https://example.com/app/api/auth",
		},
		{
			name:  "leading slashes collapse",
			base:  "https://example.com/",
			paths: []string{"/api/", "/zalo-proxy"},
			want:  "https://example.com/api/zalo-proxy",
		},
		{
			name:  "empty paths",
			base:  "https://example.com",
			paths: []string{},
			want:  "https://example.com",
		},
		{
			name:    "invalid base",
			base:    "://bad",
			paths:   []string{"x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithQuery(t *testing.T) {
	got, err := WithQuery("https://app.example.com/cb?keep=1", map[string]string{
		"zalo_proxy_token": "tok",
		"success":          "1",
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "1", q.Get("keep"))
	assert.Equal(t, "tok", q.Get("zalo_proxy_token"))
	assert.Equal(t, "1", q.Get("success"))
}

func TestWithQueryEscapes(t *testing.T) {
	got, err := WithQuery("https://app.example.com/cb", map[string]string{
		"error_details": "invalid grant & more",
	})
	require.NoError(t, err)
	assert.NotContains(t, got, " ")

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "invalid grant & more", u.Query().Get("error_details"))
}
