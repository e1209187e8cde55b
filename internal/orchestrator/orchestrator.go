// Package orchestrator drives one image-to-video generation from upload to a
// terminal state: idle, uploading, generating, polling, then completed,
// failed or timed_out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/birthday-stream/internal/model"
)

// Defaults give a ceiling of roughly 200 seconds of polling.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 40
)

var (
	ErrValidation       = errors.New("validation error")
	ErrGenerationFailed = errors.New("video generation failed")
	ErrTimedOut         = errors.New("video generation timed out")
)

// State is a step of the generation state machine.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateGenerating State = "generating"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

// FailureError is returned when the provider reports a terminal failure.
// It matches ErrGenerationFailed with errors.Is.
type FailureError struct {
	Code    int
	Message string
}

func (e *FailureError) Error() string { return e.Message }

func (e *FailureError) Unwrap() error { return ErrGenerationFailed }

// Gateway is the proxy surface the orchestrator talks to.
type Gateway interface {
	UploadImage(ctx context.Context, imageBase64 string) (int64, error)
	GenerateVideo(ctx context.Context, imgID int64, prompt string, duration int) (string, error)
	GetStatus(ctx context.Context, videoID string) (model.ProviderStatus, error)
}

// Observer receives state transitions and progress. Progress values are
// non-decreasing within one Generate call.
type Observer interface {
	OnState(State)
	OnProgress(int)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	State    func(State)
	Progress func(int)
}

func (o ObserverFuncs) OnState(s State) {
	if o.State != nil {
		o.State(s)
	}
}

func (o ObserverFuncs) OnProgress(p int) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options tunes polling. Zero values take the defaults.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// Orchestrator runs generations against a Gateway. It holds no per-job state
// and may be shared by concurrent callers.
type Orchestrator struct {
	gateway     Gateway
	interval    time.Duration
	maxAttempts int
	sleep       SleepFunc
}

// New creates an Orchestrator.
func New(g Gateway, opts Options) *Orchestrator {
	o := &Orchestrator{
		gateway:     g,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		sleep:       opts.Sleep,
	}

	if o.interval <= 0 {
		o.interval = DefaultInterval
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}

	return o
}

// Generate uploads the image, starts a job and polls it until it is terminal.
// The returned job reflects the last known state even when err is not nil.
func (o *Orchestrator) Generate(ctx context.Context, imageBase64, prompt string, duration int, obs Observer) (model.GenerationJob, error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}

	job := model.GenerationJob{Status: model.JobPending}
	obs.OnState(StateIdle)

	if strings.TrimSpace(imageBase64) == "" {
		return o.fail(job, obs, fmt.Errorf("%w: no image provided", ErrValidation))
	}

	obs.OnState(StateUploading)
	imgID, err := o.gateway.UploadImage(ctx, imageBase64)
	if err != nil {
		return o.fail(job, obs, fmt.Errorf("upload image: %w", err))
	}
	if imgID == 0 {
		return o.fail(job, obs, fmt.Errorf("%w: upload returned no image id", ErrValidation))
	}
	job.ProviderImageID = imgID

	obs.OnState(StateGenerating)
	videoID, err := o.gateway.GenerateVideo(ctx, imgID, prompt, duration)
	if err != nil {
		return o.fail(job, obs, fmt.Errorf("generate video: %w", err))
	}
	if strings.TrimSpace(videoID) == "" {
		return o.fail(job, obs, fmt.Errorf("%w: provider returned no video id", ErrValidation))
	}
	job.ProviderVideoID = videoID

	zlog.Logger.Info().
		Int64("img_id", imgID).
		Str("video_id", videoID).
		Msg("video generation started")

	obs.OnState(StatePolling)

	return o.poll(ctx, job, obs)
}

// poll checks the job status once per interval, never overlapping checks.
func (o *Orchestrator) poll(ctx context.Context, job model.GenerationJob, obs Observer) (model.GenerationJob, error) {
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := o.sleep(ctx, o.interval); err != nil {
			job.ErrorMessage = err.Error()
			return job, err
		}

		st, err := o.gateway.GetStatus(ctx, job.ProviderVideoID)
		if err != nil {
			if ctx.Err() != nil {
				job.ErrorMessage = ctx.Err().Error()
				return job, ctx.Err()
			}

			lastErr = err
			zlog.Logger.Warn().
				Err(err).
				Str("video_id", job.ProviderVideoID).
				Int("attempt", attempt).
				Msg("status check failed, retrying on next tick")
			continue
		}
		lastErr = nil

		status := model.JobStatusFromCode(st.Code)
		if status == model.JobCompleted && st.URL == "" {
			status = model.JobProcessing
		}

		job.Status = status
		o.progress(&job, obs, status.Progress())

		if !status.IsTerminal() {
			continue
		}

		if status == model.JobCompleted {
			job.ResultVideoURL = st.URL
			obs.OnState(StateCompleted)
			zlog.Logger.Info().
				Str("video_id", job.ProviderVideoID).
				Int("attempt", attempt).
				Msg("video generation completed")
			return job, nil
		}

		ferr := &FailureError{Code: st.Code, Message: failureMessage(st.Code)}
		job.ErrorMessage = ferr.Message
		obs.OnState(StateFailed)
		return job, ferr
	}

	job.Status = model.JobTimedOut
	obs.OnState(StateTimedOut)

	err := fmt.Errorf("%w after %d attempts", ErrTimedOut, o.maxAttempts)
	if lastErr != nil {
		err = fmt.Errorf("%w after %d attempts: %w", ErrTimedOut, o.maxAttempts, lastErr)
	}
	job.ErrorMessage = ErrTimedOut.Error()

	return job, err
}

func (o *Orchestrator) progress(job *model.GenerationJob, obs Observer, p int) {
	if p < job.ProgressPercent {
		p = job.ProgressPercent
	}
	job.ProgressPercent = p
	obs.OnProgress(p)
}

func (o *Orchestrator) fail(job model.GenerationJob, obs Observer, err error) (model.GenerationJob, error) {
	job.Status = model.JobFailed
	job.ErrorMessage = err.Error()
	obs.OnState(StateFailed)
	return job, err
}

func failureMessage(code int) string {
	switch code {
	case model.ProviderCodeModerationFailed:
		return "video generation failed: content moderation rejected the image"
	default:
		return "video generation failed"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
