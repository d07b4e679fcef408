package instagram

type ProgressType string

const (
	ProgressReel ProgressType = "REEL"
)

// ProgressReport is one update sent from the client to whatever renders it.
type ProgressReport struct {
	Type       ProgressType
	Step       string
	Message    string
	BytesSent  int64
	TotalBytes int64
}

type ProgressReporter interface {
	Report(report ProgressReport)
}

// Step names reported during UploadClip.
const (
	StepPrepare   = "PREPARE"
	StepUpload    = "UPLOAD"
	StepCover     = "COVER"
	StepConfigure = "CONFIG"
	StepDone      = "DONE"
)
