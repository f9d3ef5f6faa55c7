package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithLogValuesAccumulates(t *testing.T) {
	ctx := WithLogValues(context.Background(), "foo", "bar")
	meta, ok := ctx.Value(clogContextKey).(metadata)
	require.True(t, ok)
	require.Equal(t, "bar", meta["foo"])

	ctx2 := WithLogValues(ctx, "request_id", "my_request", "other_field", "other_value")
	meta2, ok := ctx2.Value(clogContextKey).(metadata)
	require.True(t, ok)
	require.Equal(t, "bar", meta2["foo"])
	require.Equal(t, "my_request", meta2["request_id"])
	require.Equal(t, "other_value", meta2["other_field"])

	// the parent context's metadata is untouched (immutable-after-creation contract)
	meta, ok = ctx.Value(clogContextKey).(metadata)
	require.True(t, ok)
	require.Len(t, meta, 1)
}

func TestMetadataFlat(t *testing.T) {
	m := metadata{"a": "1"}
	flat := m.Flat()
	require.Equal(t, []any{"a", "1"}, flat)
}

func TestCallerIsRelative(t *testing.T) {
	c := caller(1)
	require.Contains(t, c, "log/clog_test.go")
}
