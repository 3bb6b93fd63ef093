package convert

// Stage names the pipeline stage a progress event belongs to
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageConverting  Stage = "converting"
	StageDownloading Stage = "downloading"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// Progress checkpoints. Reporting is coarse on purpose: the engine call
// is atomic from the orchestrator's viewpoint and cannot be subdivided
// without engine cooperation.
const (
	checkpointStart     = 0
	checkpointInputRead = 10
	checkpointValidated = 30
	checkpointFinalize  = 90
	checkpointDone      = 100
)

// ProgressEvent is one entry in the ordered progress stream. The stream
// always ends with a terminal event (completed or error) and is then
// closed.
type ProgressEvent struct {
	FileID    string `json:"file_id"`
	FileIndex int    `json:"file_index,omitempty"`
	Progress  int    `json:"progress"` // 0-100
	Stage     Stage  `json:"stage"`
	Message   string `json:"message,omitempty"`
	Err       error  `json:"-"`
}

// Terminal reports whether the event closes the stream
func (e ProgressEvent) Terminal() bool {
	return e.Stage == StageCompleted || e.Stage == StageError
}
