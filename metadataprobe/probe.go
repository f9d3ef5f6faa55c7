// Package metadataprobe implements the Metadata Probe (spec.md §4.C) by
// wrapping ffprobe the way the teacher's video.Probe does (gopkg.in/vansante/
// go-ffprobe.v2, ffprobe.ProbeURL against a context timeout), but mapped onto
// the flatter MediaMetadata shape original_source's metadata/ffprobe.py
// produces rather than the teacher's multi-track InputVideo model: missing
// or non-numeric fields are left unset (nil pointers) instead of defaulting
// to zero, per spec.md §4.C.
package metadataprobe

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffprobe "gopkg.in/vansante/go-ffprobe.v2"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

const probeTimeout = 30 * time.Second

// Metadata mirrors MediaMetadata from original_source: every field is
// optional because the source stream may simply not report it.
type Metadata struct {
	Duration   *float64
	Width      *int
	Height     *int
	Codec      *string
	AudioCodec *string
	SampleRate *int
	Channels   *int
	Bitrate    *int
	FormatName *string
	Size       *int
}

// Prober is the narrow interface step runners depend on.
type Prober interface {
	Extract(ctx context.Context, localPath string) (Metadata, error)
}

type FFProbe struct{}

func (FFProbe) Extract(ctx context.Context, localPath string) (Metadata, error) {
	if _, err := os.Stat(localPath); err != nil {
		return Metadata{}, xerrors.NewNotFound("file "+localPath, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	data, err := ffprobe.ProbeURL(probeCtx, localPath)
	if err != nil {
		if probeCtx.Err() == context.DeadlineExceeded {
			return Metadata{}, xerrors.ProbeTimeout{Msg: localPath}
		}
		if isBinaryMissing(err) {
			return Metadata{}, xerrors.ProbeUnavailable{Msg: "ffprobe binary not found", Cause: err}
		}
		return Metadata{}, xerrors.ProbeFailed{Msg: localPath, Cause: err}
	}
	return parse(data), nil
}

func isBinaryMissing(err error) bool {
	return strings.Contains(err.Error(), "executable file not found") ||
		strings.Contains(err.Error(), "no such file or directory")
}

func parse(data *ffprobe.ProbeData) Metadata {
	m := Metadata{}

	if data.Format != nil {
		if data.Format.FormatName != "" {
			m.FormatName = ptr(data.Format.FormatName)
		}
		if n, ok := parseIntField(data.Format.Size); ok {
			m.Size = ptr(n)
		}
		if data.Format.DurationSeconds != 0 {
			m.Duration = ptr(data.Format.DurationSeconds)
		}
		if n, ok := parseIntField(data.Format.BitRate); ok {
			m.Bitrate = ptr(n)
		}
	}

	if v := data.FirstVideoStream(); v != nil {
		if v.CodecName != "" {
			m.Codec = ptr(v.CodecName)
		}
		if v.Width != 0 {
			m.Width = ptr(v.Width)
		}
		if v.Height != 0 {
			m.Height = ptr(v.Height)
		}
		if m.Duration == nil {
			if f, ok := parseFloatField(0, v.Duration); ok {
				m.Duration = ptr(f)
			}
		}
	}

	if a := data.FirstAudioStream(); a != nil {
		if a.CodecName != "" {
			m.AudioCodec = ptr(a.CodecName)
		}
		if n, ok := parseIntField(a.SampleRate); ok {
			m.SampleRate = ptr(n)
		}
		if a.Channels != 0 {
			m.Channels = ptr(a.Channels)
		}
		if m.Duration == nil {
			if f, ok := parseFloatField(0, a.Duration); ok {
				m.Duration = ptr(f)
			}
		}
	}

	return m
}

func parseIntField(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloatField(fallback float64, s string) (float64, bool) {
	if s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	if fallback != 0 {
		return fallback, true
	}
	return 0, false
}

func ptr[T any](v T) *T { return &v }

// AssetType classifies a blob into one of video/audio/image/other, per
// spec.md §4.C / §3.
type AssetType string

const (
	AssetTypeVideo AssetType = "video"
	AssetTypeAudio AssetType = "audio"
	AssetTypeImage AssetType = "image"
	AssetTypeOther AssetType = "other"
)

var videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true, ".m4v": true}
var audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true, ".flac": true}
var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true, ".svg": true, ".heic": true, ".heif": true}

// ClassifyAssetType determines the asset type from a MIME type, falling back
// to a closed extension set when the MIME type is absent or generic
// (e.g. "application/octet-stream"), matching determine_asset_type.
func ClassifyAssetType(mimeType, fileName string) AssetType {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return AssetTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return AssetTypeAudio
	case strings.HasPrefix(mimeType, "image/"):
		return AssetTypeImage
	}

	if fileName != "" {
		ext := strings.ToLower(filepath.Ext(fileName))
		switch {
		case videoExtensions[ext]:
			return AssetTypeVideo
		case audioExtensions[ext]:
			return AssetTypeAudio
		case imageExtensions[ext]:
			return AssetTypeImage
		}
	}
	return AssetTypeOther
}
