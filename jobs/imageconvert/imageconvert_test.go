package imageconvert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHEICTriggersConversion(t *testing.T) {
	cfg := Normalize("image/heic", "photo.heic")
	require.True(t, cfg.NeedsConvert)
	require.Equal(t, "png", cfg.TargetFormat)
}

func TestNormalizeFallsBackToExtension(t *testing.T) {
	cfg := Normalize("application/octet-stream", "photo.heif")
	require.True(t, cfg.NeedsConvert)
}

func TestNormalizePNGDoesNotTrigger(t *testing.T) {
	cfg := Normalize("image/png", "photo.png")
	require.False(t, cfg.NeedsConvert)
}

func TestOutputObjectNameUsesTargetFormatExtension(t *testing.T) {
	name := OutputObjectName("u1", "p1", "a1", "photo.heic", "png")
	require.Equal(t, "u1/p1/converted/a1/photo.png", name)
}
