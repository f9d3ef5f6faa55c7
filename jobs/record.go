package jobs

// Status is the lifecycle of a remote job record, per spec.md §4.H.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Record is the persisted shape for a transcode/image-convert/transcription
// job, stored under docstore's Kind* collections.
type Record struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	ProjectID     string         `json:"projectId"`
	AssetID       string         `json:"assetId"`
	ConfigHash    string         `json:"configHash"`
	Config        map[string]any `json:"config"`
	Status        Status         `json:"status"`
	RemoteJobName string         `json:"remoteJobName,omitempty"`
	Output        map[string]any `json:"output,omitempty"`
	Error         string         `json:"error,omitempty"`
	Repointed     bool           `json:"repointed,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}
