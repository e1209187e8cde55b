package model

import (
	"time"

	"github.com/google/uuid"
)

// BirthDateLayout is the wire format of birth dates in requests and messages.
const BirthDateLayout = "2006-01-02"

// SubmissionRequest is what a parent sends from the submission form.
// It is validated before anything touches storage or the provider.
type SubmissionRequest struct {
	ChildName          string `json:"child_name"`
	BirthDate          string `json:"birth_date"`             // YYYY-MM-DD
	PersonImage        string `json:"photo"`                  // base64 or data URL
	CartoonImage       string `json:"cartoon_image"`          // optional reference image
	CartoonCharacterID string `json:"cartoon_id"`             // e.g. "doraemon"
	DateCaption        string `json:"date_caption,omitempty"` // optional second caption line
}

// Submission is the message published to the queue once the request
// has been accepted. Image bytes live in object storage, only paths travel.
type Submission struct {
	ID                 uuid.UUID `json:"id"`
	ChildName          string    `json:"child_name"`
	BirthDate          time.Time `json:"birth_date"`
	PhotoPath          string    `json:"photo_path"`
	CartoonPath        string    `json:"cartoon_path,omitempty"`
	CartoonCharacterID string    `json:"cartoon_id"`
	DateCaption        string    `json:"date_caption,omitempty"`
	Status             string    `json:"status"` // queued / generating / completed / failed
	CreatedAt          time.Time `json:"created_at"`
}

// Submission statuses stored in the submissions table.
const (
	SubmissionQueued     = "queued"
	SubmissionGenerating = "generating"
	SubmissionCompleted  = "completed"
	SubmissionFailed     = "failed"
)
