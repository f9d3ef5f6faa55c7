// Package videointel adapts the Cloud Video Intelligence API to the
// steps.VideoIntelligence interface the shot/label/face/person detection
// steps depend on, grounded on the same apiv1-client-plus-long-running-op
// shape jobs/transcode uses for the Cloud Transcoder API: one blocking
// AnnotateVideo call per feature, awaited with op.Wait, flattened into the
// plain map[string]any shape pipeline.StepResult.Metadata carries.
package videointel

import (
	"context"
	"fmt"
	"sort"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	videointelligencepb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Client wraps a *videointelligence.Client to implement
// steps.VideoIntelligence.
type Client struct {
	VI *videointelligence.Client
}

func New(vi *videointelligence.Client) *Client {
	return &Client{VI: vi}
}

func (c *Client) DetectShots(ctx context.Context, gcsUri string) ([]map[string]any, error) {
	resp, err := c.annotate(ctx, gcsUri, videointelligencepb.Feature_SHOT_CHANGE_DETECTION)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, result := range resp.GetAnnotationResults() {
		for _, shot := range result.GetShotAnnotations() {
			out = append(out, map[string]any{
				"startMs": offsetMs(shot.GetStartTimeOffset()),
				"endMs":   offsetMs(shot.GetEndTimeOffset()),
			})
		}
	}
	return out, nil
}

// maxLabels bounds the persisted label count so a Firestore document never
// grows unbounded with a busy shot's label list (Firestore's 1 MiB
// document-size limit).
const maxLabels = 20

func (c *Client) DetectLabels(ctx context.Context, gcsUri string) ([]map[string]any, error) {
	resp, err := c.annotate(ctx, gcsUri, videointelligencepb.Feature_LABEL_DETECTION)
	if err != nil {
		return nil, err
	}
	return flattenLabels(resp), nil
}

// flattenLabels turns every label annotation in resp into the {entity,
// confidence, segments} shape, sorted by confidence descending and capped
// at maxLabels.
func flattenLabels(resp *videointelligencepb.AnnotateVideoResponse) []map[string]any {
	var out []map[string]any
	for _, result := range resp.GetAnnotationResults() {
		for _, label := range result.GetSegmentLabelAnnotations() {
			segments := make([]map[string]any, 0, len(label.GetSegments()))
			var confidence float32
			for _, seg := range label.GetSegments() {
				segments = append(segments, map[string]any{
					"startMs": offsetMs(seg.GetSegment().GetStartTimeOffset()),
					"endMs":   offsetMs(seg.GetSegment().GetEndTimeOffset()),
					"confidence": seg.GetConfidence(),
				})
				if seg.GetConfidence() > confidence {
					confidence = seg.GetConfidence()
				}
			}
			out = append(out, map[string]any{
				"entity":     label.GetEntity().GetDescription(),
				"confidence": confidence,
				"segments":   segments,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i]["confidence"].(float32) > out[j]["confidence"].(float32)
	})
	if len(out) > maxLabels {
		out = out[:maxLabels]
	}
	return out
}

func (c *Client) DetectFaces(ctx context.Context, gcsUri string) ([]map[string]any, error) {
	resp, err := c.annotate(ctx, gcsUri, videointelligencepb.Feature_FACE_DETECTION)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, result := range resp.GetAnnotationResults() {
		for _, face := range result.GetFaceDetectionAnnotations() {
			out = append(out, map[string]any{"tracks": tracksToMaps(face.GetTracks())})
		}
	}
	return out, nil
}

func (c *Client) DetectPersons(ctx context.Context, gcsUri string) ([]map[string]any, error) {
	resp, err := c.annotate(ctx, gcsUri, videointelligencepb.Feature_PERSON_DETECTION)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, result := range resp.GetAnnotationResults() {
		for _, person := range result.GetPersonDetectionAnnotations() {
			out = append(out, map[string]any{"tracks": tracksToMaps(person.GetTracks())})
		}
	}
	return out, nil
}

func (c *Client) annotate(ctx context.Context, gcsUri string, feature videointelligencepb.Feature) (*videointelligencepb.AnnotateVideoResponse, error) {
	op, err := c.VI.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputUri: gcsUri,
		Features: []videointelligencepb.Feature{feature},
	})
	if err != nil {
		return nil, fmt.Errorf("annotate video: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("await video annotation: %w", err)
	}
	return resp, nil
}

func tracksToMaps(tracks []*videointelligencepb.Track) []map[string]any {
	out := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, map[string]any{
			"startMs":    offsetMs(t.GetSegment().GetStartTimeOffset()),
			"endMs":      offsetMs(t.GetSegment().GetEndTimeOffset()),
			"confidence": t.GetConfidence(),
		})
	}
	return out
}

func offsetMs(d *durationpb.Duration) int64 {
	return d.AsDuration().Milliseconds()
}
