package steps

import (
	"github.com/youneslaaroussi/asset-pipeline/pipeline"
)

// video, audio, image type shorthands for SupportedTypes declarations below.
var (
	video        = []pipeline.AssetType{pipeline.AssetTypeVideo}
	videoOrImage = []pipeline.AssetType{pipeline.AssetTypeVideo, pipeline.AssetTypeImage}
	videoOrAudio = []pipeline.AssetType{pipeline.AssetTypeVideo, pipeline.AssetTypeAudio}
	videoAudioImage = []pipeline.AssetType{pipeline.AssetTypeVideo, pipeline.AssetTypeAudio, pipeline.AssetTypeImage}
)

// RegisterAll registers every step in the order spec.md §4.G lists them,
// which is also the order runAutoSteps executes them in. The reference
// implementation's module __init__ re-exports only a subset of its step
// files (see DESIGN.md's Open Question resolution); this registers the
// full set regardless.
//
// Registration needs concrete, runtime-constructed clients (GCS, Firestore,
// Speech, the job coordinators) that don't exist at package-init time, so
// registration happens via one explicit call from cmd/worker/main.go rather
// than via blank-imported init() functions.
func RegisterAll(reg *pipeline.Registry, d *Deps) {
	reg.Register(pipeline.StepDefinition{
		ID: MetadataStepID, Label: "Metadata", Description: "Probe technical metadata", AutoStart: true,
		Run: NewMetadataRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: CloudUploadStepID, Label: "Cloud Upload", Description: "Upload source to blob storage", AutoStart: true,
		Run: NewCloudUploadRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: AudioExtractStepID, Label: "Audio Extract", Description: "Extract mono FLAC audio", AutoStart: true,
		SupportedTypes: videoOrAudio, Run: NewAudioExtractRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: ThumbnailStepID, Label: "Thumbnail", Description: "Generate a cover thumbnail", AutoStart: true,
		SupportedTypes: videoOrImage, Run: NewThumbnailRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: FrameSamplingStepID, Label: "Frame Sampling", Description: "Sample frames across the timeline", AutoStart: true,
		SupportedTypes: video, Run: NewFrameSamplingRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: WaveformStepID, Label: "Waveform", Description: "Compute a peak waveform", AutoStart: true,
		SupportedTypes: videoOrAudio, Run: NewWaveformRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: ShotDetectionStepID, Label: "Shot Detection", Description: "Detect shot boundaries", AutoStart: true,
		SupportedTypes: video, Run: NewShotDetectionRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: LabelDetectionStepID, Label: "Label Detection", Description: "Detect content labels", AutoStart: true,
		SupportedTypes: video, Run: NewLabelDetectionRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: PersonDetectionStepID, Label: "Person Detection", Description: "Detect person tracks", AutoStart: true,
		SupportedTypes: video, Run: NewPersonDetectionRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: FaceDetectionStepID, Label: "Face Detection", Description: "Detect face tracks", AutoStart: true,
		SupportedTypes: video, Run: NewFaceDetectionRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: TranscodeStepID, Label: "Transcode", Description: "Transcode to a standard delivery format", AutoStart: true,
		SupportedTypes: video, Run: NewTranscodeRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: ImageConvertStepID, Label: "Image Convert", Description: "Convert to a standard image format", AutoStart: true,
		SupportedTypes: []pipeline.AssetType{pipeline.AssetTypeImage}, Run: NewImageConvertRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: TranscriptionStepID, Label: "Transcription", Description: "Transcribe spoken audio", AutoStart: true,
		SupportedTypes: videoOrAudio, Run: NewTranscriptionRunner(d),
	})
	reg.Register(pipeline.StepDefinition{
		ID: GeminiAnalysisStepID, Label: "Gemini Analysis", Description: "Multimodal LLM analysis", AutoStart: true,
		SupportedTypes: videoAudioImage, Run: NewGeminiAnalysisRunner(d),
	})
}
