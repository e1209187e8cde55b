package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovedEntry is a birthday shown on the public stream.
// GeneratedVideoURL is nil when generation failed.
type ApprovedEntry struct {
	ID                 uuid.UUID `json:"id"`
	ChildName          string    `json:"kid_name"`
	BirthDate          time.Time `json:"date_of_birth"`
	PhotoPath          string    `json:"photo_path"`
	CartoonCharacterID string    `json:"cartoon_id"`
	GeneratedVideoURL  *string   `json:"generated_video_url"`
	Local              bool      `json:"local,omitempty"` // stored in the fallback store, not the database
	ApprovedAt         time.Time `json:"approved_at"`
}

// HasVideo reports whether the entry can be played on the stream.
func (e ApprovedEntry) HasVideo() bool {
	return e.GeneratedVideoURL != nil && *e.GeneratedVideoURL != ""
}

// DayKey returns the "MM-DD" key the stream groups birthdays by.
func (e ApprovedEntry) DayKey() string {
	return e.BirthDate.Format("01-02")
}

// Progress is the per-submission snapshot exposed by the status API.
type Progress struct {
	State    string `json:"state"`
	Percent  int    `json:"progress"`
	VideoURL string `json:"video_url,omitempty"`
	Error    string `json:"error,omitempty"`
}
