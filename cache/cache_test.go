package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type inFlightTask struct {
	TaskID string
}

func TestStoreAndRetrieve(t *testing.T) {
	c := New[inFlightTask]()
	c.Store("asset-1", inFlightTask{TaskID: "t1"})

	v, ok := c.Get("asset-1")
	require.True(t, ok)
	require.Equal(t, "t1", v.TaskID)
}

func TestGetMissingReturnsZeroValue(t *testing.T) {
	c := New[inFlightTask]()
	v, ok := c.Get("missing")
	require.False(t, ok)
	require.Equal(t, inFlightTask{}, v)
}

func TestRemove(t *testing.T) {
	c := New[inFlightTask]()
	c.Store("asset-1", inFlightTask{TaskID: "t1"})
	c.Remove("req-1", "asset-1")

	_, ok := c.Get("asset-1")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestLen(t *testing.T) {
	c := New[inFlightTask]()
	c.Store("a", inFlightTask{TaskID: "1"})
	c.Store("b", inFlightTask{TaskID: "2"})
	require.Equal(t, 2, c.Len())
}
