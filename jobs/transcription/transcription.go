// Package transcription implements the transcription External Job
// Coordinator (spec.md §4.H) over Google Cloud Speech-to-Text v2's
// long-running BatchRecognize, which returns an operation name the
// coordinator stores and resumes polling against on re-entry — the
// ResumeMode behaviour spec.md §4.H reserves for this coordinator.
package transcription

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"
	longrunningpb "google.golang.org/genproto/googleapis/longrunning"

	"github.com/youneslaaroussi/asset-pipeline/jobs"
)

// Config is the normalised transcription configuration, per spec.md §4.H.
type Config struct {
	LanguageCodes []string
	Model         string
	Recognizer    string
}

func Normalize(defaultLanguageCodes []string, callerCodes []string, model string) Config {
	codes := callerCodes
	if len(codes) == 0 {
		codes = defaultLanguageCodes
	}
	return Config{LanguageCodes: codes, Model: model}
}

func (c Config) ToMap() map[string]any {
	return map[string]any{"languageCodes": c.LanguageCodes, "model": c.Model}
}

// Segment is one word-level transcript segment, per spec.md §4.H /
// §9 Open Questions (word-level only, matching the source).
type Segment struct {
	StartMs int64  `json:"start"`
	Speech  string `json:"speech"`
}

// Remote adapts the Speech-to-Text v2 client to jobs.Remote.
type Remote struct {
	Client     *speech.Client
	ProjectID  string
	Location   string
	Recognizer string
	LanguageCodes []string
	Model      string
}

func NewRemote(ctx context.Context, projectID, location, recognizer, model string, languageCodes []string, opts ...option.ClientOption) (*Remote, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Remote{Client: client, ProjectID: projectID, Location: location, Recognizer: recognizer, Model: model, LanguageCodes: languageCodes}, nil
}

func (r *Remote) recognizerPath() string {
	if r.Recognizer != "" {
		return fmt.Sprintf("projects/%s/locations/%s/recognizers/%s", r.ProjectID, r.Location, r.Recognizer)
	}
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", r.ProjectID, r.Location)
}

func (r *Remote) Create(ctx context.Context, userID, projectID, assetID, configHash, sourceURI string, cfg map[string]any) (string, error) {
	languageCodes := r.LanguageCodes
	if codes, ok := cfg["languageCodes"].([]string); ok && len(codes) > 0 {
		languageCodes = codes
	}

	req := &speechpb.BatchRecognizeRequest{
		Recognizer: r.recognizerPath(),
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			LanguageCodes: languageCodes,
			Model:         r.Model,
			Features: &speechpb.RecognitionFeatures{
				EnableWordTimeOffsets: true,
			},
		},
		Files: []*speechpb.BatchRecognizeFileMetadata{
			{AudioSource: &speechpb.BatchRecognizeFileMetadata_Uri{Uri: sourceURI}},
		},
		RecognitionOutputConfig: &speechpb.RecognitionOutputConfig{
			Output: &speechpb.RecognitionOutputConfig_InlineResponseConfig{
				InlineResponseConfig: &speechpb.InlineOutputConfig{},
			},
		},
	}

	op, err := r.Client.BatchRecognize(ctx, req)
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

func (r *Remote) Poll(ctx context.Context, remoteJobName string) (jobs.PollResult, error) {
	opsClient := r.Client.LROClient
	op, err := opsClient.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: remoteJobName})
	if err != nil {
		return jobs.PollResult{}, err
	}
	if !op.Done {
		return jobs.PollResult{Done: false}, nil
	}
	if op.GetError() != nil {
		return jobs.PollResult{Done: true, Err: fmt.Errorf("speech recognition failed: %s", op.GetError().GetMessage())}, nil
	}

	var resp speechpb.BatchRecognizeResponse
	if err := op.GetResponse().UnmarshalTo(&resp); err != nil {
		return jobs.PollResult{}, err
	}

	var transcriptParts []string
	var segments []Segment
	for _, fileResult := range resp.Results {
		for _, result := range fileResult.GetTranscript().GetResults() {
			if len(result.Alternatives) == 0 {
				continue
			}
			alt := result.Alternatives[0]
			transcriptParts = append(transcriptParts, alt.Transcript)
			for _, w := range alt.Words {
				segments = append(segments, Segment{
					StartMs: w.StartOffset.AsDuration().Milliseconds(),
					Speech:  w.Word,
				})
			}
		}
	}

	return jobs.PollResult{Done: true, Output: map[string]any{
		"transcript": strings.Join(transcriptParts, " "),
		"segments":   segments,
	}}, nil
}
