// Package submission accepts birthday submissions and runs the generation
// pipeline for each queued one.
package submission

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/birthday-stream/internal/bgremoval"
	"github.com/aliskhannn/birthday-stream/internal/gateway"
	"github.com/aliskhannn/birthday-stream/internal/model"
	"github.com/aliskhannn/birthday-stream/internal/orchestrator"
	"github.com/aliskhannn/birthday-stream/internal/prompt"
	"github.com/aliskhannn/birthday-stream/internal/repository"
	redisrepo "github.com/aliskhannn/birthday-stream/internal/repository/redis"
	submissionrepo "github.com/aliskhannn/birthday-stream/internal/repository/submission"
)

const (
	MaxPhotoSize = 5 << 20

	minNameLen = 2
	maxNameLen = 50
)

// Progress states that are not orchestrator states.
const (
	StateQueued    = "queued"
	StatePreparing = "preparing"
)

var (
	ErrInvalidRequest = errors.New("invalid submission")
	ErrNotFound       = errors.New("submission not found")
)

type fileStorage interface {
	Save(ctx context.Context, prefix, filename string, data []byte, contentType string) (string, error)
	Load(ctx context.Context, objectName string) ([]byte, error)
	Delete(ctx context.Context, objectName string) error
}

type submissionRepository interface {
	CreateSubmission(ctx context.Context, s model.Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (model.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type entryRepository interface {
	CreateEntry(ctx context.Context, e model.ApprovedEntry) (uuid.UUID, error)
}

type progressStore interface {
	SetProgress(ctx context.Context, id uuid.UUID, p model.Progress) error
	GetProgress(ctx context.Context, id uuid.UUID) (model.Progress, error)
	SaveLocalEntry(ctx context.Context, e model.ApprovedEntry) error
}

type producer interface {
	Produce(ctx context.Context, sub model.Submission) error
}

type compositor interface {
	Composite(cartoon, person []byte) ([]byte, error)
}

type stamper interface {
	Stamp(data []byte, childName, dateCaption string) ([]byte, error)
}

type generator interface {
	Generate(ctx context.Context, imageBase64, prompt string, duration int, obs orchestrator.Observer) (model.GenerationJob, error)
}

// Deps are the collaborators of Service.
type Deps struct {
	Storage     fileStorage
	Submissions submissionRepository
	Entries     entryRepository
	Progress    progressStore
	Producer    producer
	Remover     bgremoval.Remover
	Compositor  compositor
	Stamper     stamper
	Generator   generator
}

// Service implements submission intake and processing.
type Service struct {
	storage     fileStorage
	submissions submissionRepository
	entries     entryRepository
	progress    progressStore
	producer    producer
	remover     bgremoval.Remover
	compositor  compositor
	stamper     stamper
	generator   generator
	now         func() time.Time
}

// NewService creates a new Service. A nil Remover disables background removal.
func NewService(d Deps) *Service {
	remover := d.Remover
	if remover == nil {
		remover = bgremoval.Disabled{}
	}

	return &Service{
		storage:     d.Storage,
		submissions: d.Submissions,
		entries:     d.Entries,
		progress:    d.Progress,
		producer:    d.Producer,
		remover:     remover,
		compositor:  d.Compositor,
		stamper:     d.Stamper,
		generator:   d.Generator,
		now:         time.Now,
	}
}

// Submit validates the request, stores its images, records the submission
// and queues it for processing.
func (s *Service) Submit(ctx context.Context, req model.SubmissionRequest) (uuid.UUID, error) {
	v, err := validate(req)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()

	photoPath, err := s.storage.Save(ctx, "photos", id.String()+extension(v.photo), v.photo, http.DetectContentType(v.photo))
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to store photo: %w", err)
	}

	var cartoonPath string
	if len(v.cartoon) > 0 {
		cartoonPath, err = s.storage.Save(ctx, "cartoons", id.String()+extension(v.cartoon), v.cartoon, http.DetectContentType(v.cartoon))
		if err != nil {
			s.cleanup(ctx, photoPath)
			return uuid.Nil, fmt.Errorf("submit: failed to store cartoon image: %w", err)
		}
	}

	sub := model.Submission{
		ID:                 id,
		ChildName:          v.name,
		BirthDate:          v.birthDate,
		PhotoPath:          photoPath,
		CartoonPath:        cartoonPath,
		CartoonCharacterID: strings.TrimSpace(req.CartoonCharacterID),
		DateCaption:        strings.TrimSpace(req.DateCaption),
		Status:             model.SubmissionQueued,
		CreatedAt:          s.now().UTC(),
	}

	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		s.cleanup(ctx, photoPath, cartoonPath)
		return uuid.Nil, fmt.Errorf("submit: %w", err)
	}

	s.setProgress(ctx, id, model.Progress{State: StateQueued})

	if err := s.producer.Produce(ctx, sub); err != nil {
		s.updateStatus(ctx, id, model.SubmissionFailed)
		s.setProgress(ctx, id, model.Progress{State: string(orchestrator.StateFailed), Error: "failed to queue submission"})
		return uuid.Nil, fmt.Errorf("submit: failed to enqueue: %w", err)
	}

	zlog.Logger.Info().Str("id", id.String()).Str("cartoon_id", sub.CartoonCharacterID).Msg("submission queued")

	return id, nil
}

// Process runs the pipeline for a queued submission: background removal,
// compositing, stamping, generation and persistence of the approved entry.
// A failed or timed out generation is recorded and is not an error; only
// persistence failures and cancellation are returned.
func (s *Service) Process(ctx context.Context, sub model.Submission) error {
	s.updateStatus(ctx, sub.ID, model.SubmissionGenerating)
	s.setProgress(ctx, sub.ID, model.Progress{State: StatePreparing})

	image, err := s.prepareImage(ctx, sub)
	if err != nil {
		return s.finish(ctx, sub, model.GenerationJob{Status: model.JobFailed}, err)
	}

	text := prompt.Build(sub.CartoonCharacterID, sub.ChildName, sub.DateCaption)

	job, genErr := s.generator.Generate(
		ctx,
		base64.StdEncoding.EncodeToString(image),
		text,
		prompt.DefaultDuration,
		s.observer(ctx, sub.ID),
	)
	if genErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return s.finish(ctx, sub, job, genErr)
}

// Progress returns the current progress snapshot of a submission. Snapshots
// expire; after that the progress is derived from the stored status.
func (s *Service) Progress(ctx context.Context, id uuid.UUID) (model.Progress, error) {
	p, err := s.progress.GetProgress(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, redisrepo.ErrProgressNotFound) {
		return model.Progress{}, fmt.Errorf("get progress: %w", err)
	}

	sub, err := s.submissions.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, submissionrepo.ErrSubmissionNotFound) {
			return model.Progress{}, ErrNotFound
		}
		return model.Progress{}, fmt.Errorf("get submission: %w", err)
	}

	return progressFromStatus(sub.Status), nil
}

func progressFromStatus(status string) model.Progress {
	switch status {
	case model.SubmissionCompleted:
		return model.Progress{State: string(orchestrator.StateCompleted), Percent: 100}
	case model.SubmissionFailed:
		return model.Progress{State: string(orchestrator.StateFailed)}
	case model.SubmissionGenerating:
		return model.Progress{State: string(orchestrator.StateGenerating)}
	default:
		return model.Progress{State: StateQueued}
	}
}

// prepareImage loads the stored images and produces the stamped upload image.
// Every step after loading is best effort.
func (s *Service) prepareImage(ctx context.Context, sub model.Submission) ([]byte, error) {
	person, err := s.storage.Load(ctx, sub.PhotoPath)
	if err != nil {
		return nil, fmt.Errorf("load photo: %w", err)
	}

	var cartoon []byte
	if sub.CartoonPath != "" {
		cartoon, err = s.storage.Load(ctx, sub.CartoonPath)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("id", sub.ID.String()).Msg("failed to load cartoon image, continuing without it")
			cartoon = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		person = bgremoval.BestEffort(gctx, s.remover, person, nil)
		return nil
	})
	if len(cartoon) > 0 {
		g.Go(func() error {
			cartoon = bgremoval.BestEffort(gctx, s.remover, cartoon, nil)
			return nil
		})
	}
	_ = g.Wait()

	composite, err := s.compositor.Composite(cartoon, person)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", sub.ID.String()).Msg("compositing failed, using person photo")
		composite = person
	}

	stamped, err := s.stamper.Stamp(composite, sub.ChildName, sub.DateCaption)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", sub.ID.String()).Msg("stamping failed, using unstamped image")
		stamped = composite
	}

	if _, err := s.storage.Save(ctx, "stamped", sub.ID.String()+extension(stamped), stamped, http.DetectContentType(stamped)); err != nil {
		zlog.Logger.Warn().Err(err).Str("id", sub.ID.String()).Msg("failed to archive stamped image")
	}

	return stamped, nil
}

// finish persists the approved entry and the final submission status.
func (s *Service) finish(ctx context.Context, sub model.Submission, job model.GenerationJob, genErr error) error {
	entry := model.ApprovedEntry{
		ID:                 sub.ID,
		ChildName:          sub.ChildName,
		BirthDate:          sub.BirthDate,
		PhotoPath:          sub.PhotoPath,
		CartoonCharacterID: sub.CartoonCharacterID,
		ApprovedAt:         s.now().UTC(),
	}
	if genErr == nil && job.ResultVideoURL != "" {
		url := job.ResultVideoURL
		entry.GeneratedVideoURL = &url
	}

	if err := s.saveEntry(ctx, entry); err != nil {
		s.updateStatus(ctx, sub.ID, model.SubmissionFailed)
		s.setProgress(ctx, sub.ID, model.Progress{State: string(orchestrator.StateFailed), Error: "failed to save entry"})
		return err
	}

	if genErr != nil {
		zlog.Logger.Warn().Err(genErr).Str("id", sub.ID.String()).Msg("video generation did not complete")

		state := orchestrator.StateFailed
		if errors.Is(genErr, orchestrator.ErrTimedOut) {
			state = orchestrator.StateTimedOut
		}

		s.updateStatus(ctx, sub.ID, model.SubmissionFailed)
		s.setProgress(ctx, sub.ID, model.Progress{State: string(state), Percent: job.ProgressPercent, Error: userMessage(genErr)})
		return nil
	}

	s.updateStatus(ctx, sub.ID, model.SubmissionCompleted)
	s.setProgress(ctx, sub.ID, model.Progress{State: string(orchestrator.StateCompleted), Percent: 100, VideoURL: job.ResultVideoURL})

	return nil
}

// saveEntry writes to Postgres and degrades to the local store when the
// schema is missing a column.
func (s *Service) saveEntry(ctx context.Context, e model.ApprovedEntry) error {
	if _, err := s.entries.CreateEntry(ctx, e); err != nil {
		if !errors.Is(err, repository.ErrMissingColumn) {
			return fmt.Errorf("save approved entry: %w", err)
		}

		zlog.Logger.Warn().Err(err).Str("id", e.ID.String()).Msg("database schema out of date, saving entry locally")

		if err := s.progress.SaveLocalEntry(ctx, e); err != nil {
			return fmt.Errorf("save local entry: %w", err)
		}
	}

	return nil
}

// observer mirrors orchestrator progress into the progress store.
func (s *Service) observer(ctx context.Context, id uuid.UUID) orchestrator.Observer {
	var (
		state   = string(orchestrator.StateIdle)
		percent int
	)

	return orchestrator.ObserverFuncs{
		State: func(st orchestrator.State) {
			if st == orchestrator.StateCompleted || st == orchestrator.StateFailed || st == orchestrator.StateTimedOut {
				return
			}
			state = string(st)
			s.setProgress(ctx, id, model.Progress{State: state, Percent: percent})
		},
		Progress: func(p int) {
			percent = p
			s.setProgress(ctx, id, model.Progress{State: state, Percent: percent})
		},
	}
}

func (s *Service) setProgress(ctx context.Context, id uuid.UUID, p model.Progress) {
	if err := s.progress.SetProgress(ctx, id, p); err != nil {
		zlog.Logger.Warn().Err(err).Str("id", id.String()).Msg("failed to store progress")
	}
}

func (s *Service) updateStatus(ctx context.Context, id uuid.UUID, status string) {
	if err := s.submissions.UpdateStatus(ctx, id, status); err != nil {
		zlog.Logger.Warn().Err(err).Str("id", id.String()).Str("status", status).Msg("failed to update submission status")
	}
}

func (s *Service) cleanup(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", p).Msg("failed to delete stored image")
		}
	}
}

type validated struct {
	name      string
	birthDate time.Time
	photo     []byte
	cartoon   []byte
}

func validate(req model.SubmissionRequest) (validated, error) {
	var v validated

	v.name = strings.TrimSpace(req.ChildName)
	if n := utf8.RuneCountInString(v.name); n < minNameLen || n > maxNameLen {
		return v, fmt.Errorf("%w: child name must be between %d and %d characters", ErrInvalidRequest, minNameLen, maxNameLen)
	}

	if strings.TrimSpace(req.BirthDate) == "" {
		return v, fmt.Errorf("%w: birth date is required", ErrInvalidRequest)
	}
	birthDate, err := time.Parse(model.BirthDateLayout, strings.TrimSpace(req.BirthDate))
	if err != nil {
		return v, fmt.Errorf("%w: birth date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	v.birthDate = birthDate

	if strings.TrimSpace(req.CartoonCharacterID) == "" {
		return v, fmt.Errorf("%w: cartoon character is required", ErrInvalidRequest)
	}

	v.photo, err = gateway.DecodeImage(req.PersonImage)
	if err != nil {
		return v, fmt.Errorf("%w: photo: %v", ErrInvalidRequest, err)
	}
	if len(v.photo) > MaxPhotoSize {
		return v, fmt.Errorf("%w: photo must be at most 5 MB", ErrInvalidRequest)
	}

	if strings.TrimSpace(req.CartoonImage) != "" {
		v.cartoon, err = gateway.DecodeImage(req.CartoonImage)
		if err != nil {
			return v, fmt.Errorf("%w: cartoon image: %v", ErrInvalidRequest, err)
		}
		if len(v.cartoon) > MaxPhotoSize {
			return v, fmt.Errorf("%w: cartoon image must be at most 5 MB", ErrInvalidRequest)
		}
	}

	return v, nil
}

func extension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func userMessage(err error) string {
	var fe *orchestrator.FailureError
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, orchestrator.ErrTimedOut):
		return orchestrator.ErrTimedOut.Error()
	default:
		return "video generation failed"
	}
}
