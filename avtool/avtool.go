// Package avtool wraps ffmpeg invocations shared by several pipeline step
// runners (audio extract, thumbnail, frame sampling, waveform), grounded on
// the teacher's subprocess package for output streaming (os/exec.Cmd plus
// subprocess.LogOutputs) rather than shelling out ad hoc per call site.
package avtool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/youneslaaroussi/asset-pipeline/subprocess"
)

func run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := subprocess.LogOutputs(cmd); err != nil {
		return err
	}
	return cmd.Run()
}

// ExtractAudioFLAC converts inputPath's audio track to 16 kHz mono FLAC at
// outputPath, per spec.md §4.G's Audio Extract step.
func ExtractAudioFLAC(ctx context.Context, inputPath, outputPath string) error {
	return run(ctx, "-y", "-i", inputPath, "-vn", "-ar", "16000", "-ac", "1", "-c:a", "flac", outputPath)
}

// ExtractFirstFrame writes inputPath's first video frame to outputPath as a
// JPEG, used by the video branch of the Thumbnail step.
func ExtractFirstFrame(ctx context.Context, inputPath, outputPath string) error {
	return run(ctx, "-y", "-i", inputPath, "-vframes", "1", "-q:v", "2", outputPath)
}

// ExtractFrameAt writes the frame at atSeconds, scaled so its height does
// not exceed maxHeight, used by the Frame Sampling step.
func ExtractFrameAt(ctx context.Context, inputPath, outputPath string, atSeconds float64, maxHeight int) error {
	scale := fmt.Sprintf("scale=-2:'min(%d,ih)'", maxHeight)
	return run(ctx, "-y", "-ss", fmt.Sprintf("%.3f", atSeconds), "-i", inputPath, "-vframes", "1", "-vf", scale, "-q:v", "2", outputPath)
}

// ResizeImageCover writes inputPath scaled to at most maxDim on its longest
// side, used by the image branch of the Thumbnail step.
func ResizeImageCover(ctx context.Context, inputPath, outputPath string, maxDim int) error {
	scale := fmt.Sprintf("scale='if(gt(iw,ih),min(%d,iw),-2)':'if(gt(iw,ih),-2,min(%d,ih))'", maxDim, maxDim)
	return run(ctx, "-y", "-i", inputPath, "-vf", scale, outputPath)
}

// DecodePCM16Mono8kHz decodes inputPath's audio track to raw signed 16-bit
// little-endian mono PCM at 8 kHz, returned in memory for the Waveform step
// to bucket into peak samples.
func DecodePCM16Mono8kHz(ctx context.Context, inputPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", inputPath, "-f", "s16le", "-ar", "8000", "-ac", "1", "pipe:1")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := subprocess.LogStderr(cmd); err != nil {
		return nil, err
	}
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
