package keyrotator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrentNoKeys(t *testing.T) {
	r := New("")
	_, ok := r.Current()
	require.False(t, ok)
	require.Equal(t, 0, r.Count())
}

func TestCurrentStableAcrossCalls(t *testing.T) {
	r := New("k1,k2,k3")
	k, ok := r.Current()
	require.True(t, ok)
	require.Equal(t, "k1", k)
	k2, _ := r.Current()
	require.Equal(t, k, k2)
}

func TestRotateCyclesThroughAllKeys(t *testing.T) {
	r := New("k1,k2,k3")
	seen := map[string]bool{}
	for i := 0; i < r.Count(); i++ {
		k, _ := r.Current()
		seen[k] = true
		r.Rotate()
	}
	require.Len(t, seen, 3)
	k, _ := r.Current()
	require.Equal(t, "k1", k, "should cycle back to the start after count() rotations")
}

func TestRotateNoOpWithOneKey(t *testing.T) {
	r := New("only-key")
	r.Rotate()
	k, _ := r.Current()
	require.Equal(t, "only-key", k)
}

func TestNewDropsBlanksAndTrimsWhitespace(t *testing.T) {
	r := New("k1, ,k2,,k3 ")
	require.Equal(t, 3, r.Count())
}

func TestIsQuotaExhausted(t *testing.T) {
	require.True(t, IsQuotaExhausted(errors.New("Server returned 429")))
	require.True(t, IsQuotaExhausted(errors.New("RESOURCE_EXHAUSTED: quota exceeded")))
	require.True(t, IsQuotaExhausted(errors.New("Quota limit reached")))
	require.False(t, IsQuotaExhausted(errors.New("500 internal server error")))
	require.False(t, IsQuotaExhausted(errors.New("arbitrary text")))
	require.False(t, IsQuotaExhausted(nil))
}

func TestIsQuotaExhaustedStatus(t *testing.T) {
	require.True(t, IsQuotaExhaustedStatus(429))
	require.False(t, IsQuotaExhaustedStatus(500))
}
