package metadataprobe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyAssetTypeByMIME(t *testing.T) {
	require.Equal(t, AssetTypeVideo, ClassifyAssetType("video/mp4", ""))
	require.Equal(t, AssetTypeAudio, ClassifyAssetType("audio/flac", ""))
	require.Equal(t, AssetTypeImage, ClassifyAssetType("image/heic", ""))
	require.Equal(t, AssetTypeOther, ClassifyAssetType("application/pdf", ""))
}

func TestClassifyAssetTypeFallsBackToExtension(t *testing.T) {
	require.Equal(t, AssetTypeVideo, ClassifyAssetType("application/octet-stream", "clip.mov"))
	require.Equal(t, AssetTypeImage, ClassifyAssetType("application/octet-stream", "photo.heic"))
	require.Equal(t, AssetTypeAudio, ClassifyAssetType("application/octet-stream", "track.flac"))
	require.Equal(t, AssetTypeOther, ClassifyAssetType("application/octet-stream", "archive.zip"))
}

func TestClassifyAssetTypeUnknownNoFileName(t *testing.T) {
	require.Equal(t, AssetTypeOther, ClassifyAssetType("", ""))
}

func TestExtractMissingFile(t *testing.T) {
	p := FFProbe{}
	_, err := p.Extract(context.Background(), "/no/such/file.mp4")
	require.Error(t, err)
}

func TestParseIntField(t *testing.T) {
	n, ok := parseIntField("1234")
	require.True(t, ok)
	require.Equal(t, 1234, n)

	_, ok = parseIntField("")
	require.False(t, ok)

	_, ok = parseIntField("not-a-number")
	require.False(t, ok)
}
