package videointel

import (
	"testing"
	"time"

	videointelligencepb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestOffsetMs(t *testing.T) {
	d := durationpb.New(1500 * time.Millisecond)
	require.Equal(t, int64(1500), offsetMs(d))
}

func TestOffsetMsZero(t *testing.T) {
	require.Equal(t, int64(0), offsetMs(durationpb.New(0)))
}

func TestTracksToMaps(t *testing.T) {
	tracks := []*videointelligencepb.Track{
		{
			Segment: &videointelligencepb.VideoSegment{
				StartTimeOffset: durationpb.New(2 * time.Second),
				EndTimeOffset:   durationpb.New(5 * time.Second),
			},
			Confidence: 0.87,
		},
	}

	out := tracksToMaps(tracks)
	require.Len(t, out, 1)
	require.Equal(t, int64(2000), out[0]["startMs"])
	require.Equal(t, int64(5000), out[0]["endMs"])
	require.InDelta(t, 0.87, out[0]["confidence"], 0.0001)
}

func TestTracksToMapsEmpty(t *testing.T) {
	out := tracksToMaps(nil)
	require.Empty(t, out)
}

func labelWithConfidence(entity string, confidence float32) *videointelligencepb.LabelAnnotation {
	return &videointelligencepb.LabelAnnotation{
		Entity: &videointelligencepb.Entity{Description: entity},
		Segments: []*videointelligencepb.LabelSegment{
			{
				Segment: &videointelligencepb.VideoSegment{
					StartTimeOffset: durationpb.New(0),
					EndTimeOffset:   durationpb.New(time.Second),
				},
				Confidence: confidence,
			},
		},
	}
}

func TestFlattenLabelsSortsByConfidenceDescending(t *testing.T) {
	resp := &videointelligencepb.AnnotateVideoResponse{
		AnnotationResults: []*videointelligencepb.VideoAnnotationResults{
			{
				SegmentLabelAnnotations: []*videointelligencepb.LabelAnnotation{
					labelWithConfidence("cat", 0.4),
					labelWithConfidence("dog", 0.9),
					labelWithConfidence("bird", 0.6),
				},
			},
		},
	}

	out := flattenLabels(resp)
	require.Len(t, out, 3)
	require.Equal(t, "dog", out[0]["entity"])
	require.Equal(t, "bird", out[1]["entity"])
	require.Equal(t, "cat", out[2]["entity"])
}

func TestFlattenLabelsCapsAtMaxLabels(t *testing.T) {
	var labels []*videointelligencepb.LabelAnnotation
	for i := 0; i < maxLabels+10; i++ {
		labels = append(labels, labelWithConfidence("label", float32(i)))
	}
	resp := &videointelligencepb.AnnotateVideoResponse{
		AnnotationResults: []*videointelligencepb.VideoAnnotationResults{
			{SegmentLabelAnnotations: labels},
		},
	}

	out := flattenLabels(resp)
	require.Len(t, out, maxLabels)
	// Highest-confidence labels (largest i) survive the cap.
	require.Equal(t, float32(maxLabels+9), out[0]["confidence"])
}
