package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileNameFromURI(t *testing.T) {
	cases := []struct {
		uri  string
		want string
	}{
		{"https://generativelanguage.googleapis.com/v1beta/files/abc123", "files/abc123"},
		{"files/abc123", "files/abc123"},
		{"abc123", "abc123"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, fileNameFromURI(tc.uri), tc.uri)
	}
}

func TestNewUsesDefaultConstructor(t *testing.T) {
	c := New()
	require.NotNil(t, c.newClient)
}
