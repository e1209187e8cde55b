package model

// JobStatus is the normalized state of a provider generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobTimedOut   JobStatus = "timed_out"
)

// Provider status codes returned by the video result endpoint.
const (
	ProviderCodeCompleted        = 1
	ProviderCodeProcessing       = 5
	ProviderCodeModerationFailed = 7
	ProviderCodeGenerationFailed = 8
)

// IsTerminal reports whether the polling loop stops at this status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobTimedOut:
		return true
	default:
		return false
	}
}

// Progress returns the coarse progress estimate shown to users.
func (s JobStatus) Progress() int {
	switch s {
	case JobCompleted:
		return 100
	case JobProcessing:
		return 50
	default:
		return 0
	}
}

// JobStatusFromCode maps a provider status code to a JobStatus.
// Unknown codes are treated as still processing.
func JobStatusFromCode(code int) JobStatus {
	switch code {
	case ProviderCodeCompleted:
		return JobCompleted
	case ProviderCodeModerationFailed, ProviderCodeGenerationFailed:
		return JobFailed
	default:
		return JobProcessing
	}
}

// ProviderStatus is a raw status answer from the gateway.
type ProviderStatus struct {
	Code int    `json:"status"`
	URL  string `json:"url,omitempty"`
}

// GenerationJob tracks one image-to-video job at the provider.
// It is identified by ProviderVideoID and mutated only by the polling loop.
type GenerationJob struct {
	ProviderImageID int64     `json:"img_id"`
	ProviderVideoID string    `json:"video_id"`
	Status          JobStatus `json:"status"`
	ProgressPercent int       `json:"progress"`
	ResultVideoURL  string    `json:"video_url,omitempty"`
	ErrorMessage    string    `json:"error,omitempty"`
}
