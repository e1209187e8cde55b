package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusFromCode(t *testing.T) {
	tests := []struct {
		code     int
		status   JobStatus
		terminal bool
		progress int
	}{
		{code: ProviderCodeCompleted, status: JobCompleted, terminal: true, progress: 100},
		{code: ProviderCodeProcessing, status: JobProcessing, terminal: false, progress: 50},
		{code: ProviderCodeModerationFailed, status: JobFailed, terminal: true, progress: 0},
		{code: ProviderCodeGenerationFailed, status: JobFailed, terminal: true, progress: 0},
		{code: 42, status: JobProcessing, terminal: false, progress: 50},
	}

	for _, tt := range tests {
		s := JobStatusFromCode(tt.code)
		assert.Equal(t, tt.status, s, "code %d", tt.code)
		assert.Equal(t, tt.terminal, s.IsTerminal(), "code %d", tt.code)
		assert.Equal(t, tt.progress, s.Progress(), "code %d", tt.code)
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobPending.IsTerminal())
	assert.True(t, JobTimedOut.IsTerminal())
}
