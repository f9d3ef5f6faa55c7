package docstore

import "fmt"

// Deterministic hierarchical document paths, per spec.md §6.

func AssetPath(userID, projectID, assetID string) string {
	return fmt.Sprintf("users/%s/projects/%s/assets/%s", userID, projectID, assetID)
}

func AssetsCollectionPath(userID, projectID string) string {
	return fmt.Sprintf("users/%s/projects/%s/assets", userID, projectID)
}

func PipelineStatePath(userID, projectID, assetID string) string {
	return AssetPath(userID, projectID, assetID) + "/pipeline/state"
}

const (
	KindTranscode     = "transcodeJobs"
	KindImageConvert  = "conversionJobs"
	KindTranscription = "transcriptions"
)

// JobPath builds the path for a job record of the given coordinator kind
// (one of the Kind* constants above).
func JobPath(kind, userID, projectID, jobID string) string {
	return fmt.Sprintf("users/%s/projects/%s/%s/%s", userID, projectID, kind, jobID)
}

func JobsCollectionPath(kind, userID, projectID string) string {
	return fmt.Sprintf("users/%s/projects/%s/%s", userID, projectID, kind)
}
