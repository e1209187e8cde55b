package submission

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/birthday-stream/internal/model"
	"github.com/aliskhannn/birthday-stream/internal/orchestrator"
	"github.com/aliskhannn/birthday-stream/internal/prompt"
	"github.com/aliskhannn/birthday-stream/internal/repository"
	redisrepo "github.com/aliskhannn/birthday-stream/internal/repository/redis"
	submissionrepo "github.com/aliskhannn/birthday-stream/internal/repository/submission"
)

var pngPhoto = append([]byte("\x89PNG\r\n\x1a\n"), []byte("person")...)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func (f *fakeStorage) Save(_ context.Context, prefix, filename string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	p := prefix + "/" + filename
	f.objects[p] = data
	return p, nil
}

func (f *fakeStorage) Load(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return data, nil
}

func (f *fakeStorage) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.objects, name)
	return nil
}

type fakeSubmissions struct {
	created  []model.Submission
	statuses map[uuid.UUID]string
}

func (f *fakeSubmissions) CreateSubmission(_ context.Context, s model.Submission) error {
	f.created = append(f.created, s)
	f.statuses[s.ID] = s.Status
	return nil
}

func (f *fakeSubmissions) GetSubmission(_ context.Context, id uuid.UUID) (model.Submission, error) {
	for _, s := range f.created {
		if s.ID == id {
			s.Status = f.statuses[id]
			return s, nil
		}
	}
	return model.Submission{}, submissionrepo.ErrSubmissionNotFound
}

func (f *fakeSubmissions) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.statuses[id] = status
	return nil
}

type fakeEntries struct {
	saved []model.ApprovedEntry
	err   error
}

func (f *fakeEntries) CreateEntry(_ context.Context, e model.ApprovedEntry) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.saved = append(f.saved, e)
	return e.ID, nil
}

type fakeProgress struct {
	history []model.Progress
	current map[uuid.UUID]model.Progress
	local   []model.ApprovedEntry
}

func (f *fakeProgress) SetProgress(_ context.Context, id uuid.UUID, p model.Progress) error {
	f.history = append(f.history, p)
	f.current[id] = p
	return nil
}

func (f *fakeProgress) GetProgress(_ context.Context, id uuid.UUID) (model.Progress, error) {
	p, ok := f.current[id]
	if !ok {
		return model.Progress{}, redisrepo.ErrProgressNotFound
	}
	return p, nil
}

func (f *fakeProgress) SaveLocalEntry(_ context.Context, e model.ApprovedEntry) error {
	f.local = append(f.local, e)
	return nil
}

type fakeProducer struct {
	sent []model.Submission
	err  error
}

func (f *fakeProducer) Produce(_ context.Context, sub model.Submission) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sub)
	return nil
}

type prefixRemover struct{}

func (prefixRemover) RemoveBackground(_ context.Context, image []byte, _ func(int)) ([]byte, error) {
	return append([]byte("nobg:"), image...), nil
}

type fakeCompositor struct {
	cartoon, person []byte
	err             error
}

func (f *fakeCompositor) Composite(cartoon, person []byte) ([]byte, error) {
	f.cartoon, f.person = cartoon, person
	if f.err != nil {
		return nil, f.err
	}
	if cartoon == nil {
		return person, nil
	}
	return []byte("composite"), nil
}

type fakeStamper struct {
	got  []byte
	name string
	err  error
}

func (f *fakeStamper) Stamp(data []byte, childName, _ string) ([]byte, error) {
	f.got, f.name = data, childName
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("stamped:"), data...), nil
}

type fakeGenerator struct {
	image    []byte
	prompt   string
	duration int
	job      model.GenerationJob
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, imageBase64, text string, duration int, obs orchestrator.Observer) (model.GenerationJob, error) {
	f.image, _ = base64.StdEncoding.DecodeString(imageBase64)
	f.prompt, f.duration = text, duration

	obs.OnState(orchestrator.StatePolling)
	obs.OnProgress(50)

	return f.job, f.err
}

type fixture struct {
	svc         *Service
	storage     *fakeStorage
	submissions *fakeSubmissions
	entries     *fakeEntries
	progress    *fakeProgress
	producer    *fakeProducer
	compositor  *fakeCompositor
	stamper     *fakeStamper
	generator   *fakeGenerator
}

func newFixture() *fixture {
	f := &fixture{
		storage:     &fakeStorage{objects: map[string][]byte{}},
		submissions: &fakeSubmissions{statuses: map[uuid.UUID]string{}},
		entries:     &fakeEntries{},
		progress:    &fakeProgress{current: map[uuid.UUID]model.Progress{}},
		producer:    &fakeProducer{},
		compositor:  &fakeCompositor{},
		stamper:     &fakeStamper{},
		generator: &fakeGenerator{job: model.GenerationJob{
			Status:          model.JobCompleted,
			ProgressPercent: 100,
			ResultVideoURL:  "https://cdn/zoe.mp4",
		}},
	}

	f.svc = NewService(Deps{
		Storage:     f.storage,
		Submissions: f.submissions,
		Entries:     f.entries,
		Progress:    f.progress,
		Producer:    f.producer,
		Compositor:  f.compositor,
		Stamper:     f.stamper,
		Generator:   f.generator,
	})
	f.svc.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }

	return f
}

func validRequest() model.SubmissionRequest {
	return model.SubmissionRequest{
		ChildName:          "Zoe",
		BirthDate:          "2019-07-04",
		PersonImage:        "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPhoto),
		CartoonCharacterID: "doraemon",
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture()

	id, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	photoPath := "photos/" + id.String() + ".png"
	assert.Equal(t, pngPhoto, f.storage.objects[photoPath])

	require.Len(t, f.submissions.created, 1)
	sub := f.submissions.created[0]
	assert.Equal(t, id, sub.ID)
	assert.Equal(t, "Zoe", sub.ChildName)
	assert.Equal(t, time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC), sub.BirthDate)
	assert.Equal(t, photoPath, sub.PhotoPath)
	assert.Empty(t, sub.CartoonPath)
	assert.Equal(t, model.SubmissionQueued, sub.Status)

	require.Len(t, f.producer.sent, 1)
	assert.Equal(t, id, f.producer.sent[0].ID)

	assert.Equal(t, model.Progress{State: StateQueued}, f.progress.current[id])
}

func TestSubmitWithCartoonImage(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.CartoonImage = base64.StdEncoding.EncodeToString([]byte("cartoon-jpeg"))

	id, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "cartoons/"+id.String()+".jpg", f.submissions.created[0].CartoonPath)
}

func TestSubmitValidation(t *testing.T) {
	tooLarge := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, MaxPhotoSize+1))

	tests := []struct {
		name   string
		modify func(r *model.SubmissionRequest)
	}{
		{"short name", func(r *model.SubmissionRequest) { r.ChildName = " Z " }},
		{"long name", func(r *model.SubmissionRequest) { r.ChildName = strings.Repeat("a", 51) }},
		{"missing birth date", func(r *model.SubmissionRequest) { r.BirthDate = "" }},
		{"bad birth date", func(r *model.SubmissionRequest) { r.BirthDate = "04/07/2019" }},
		{"missing cartoon", func(r *model.SubmissionRequest) { r.CartoonCharacterID = "" }},
		{"missing photo", func(r *model.SubmissionRequest) { r.PersonImage = "" }},
		{"bad photo", func(r *model.SubmissionRequest) { r.PersonImage = "***" }},
		{"photo too large", func(r *model.SubmissionRequest) { r.PersonImage = tooLarge }},
		{"bad cartoon image", func(r *model.SubmissionRequest) { r.CartoonImage = "***" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.modify(&req)

			_, err := f.svc.Submit(context.Background(), req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, f.storage.objects)
			assert.Empty(t, f.submissions.created)
			assert.Empty(t, f.producer.sent)
		})
	}
}

func TestSubmitEnqueueFailure(t *testing.T) {
	f := newFixture()
	f.producer.err = errors.New("kafka down")

	_, err := f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)

	id := f.submissions.created[0].ID
	assert.Equal(t, model.SubmissionFailed, f.submissions.statuses[id])
	assert.Equal(t, string(orchestrator.StateFailed), f.progress.current[id].State)
}

func TestSubmitStorageFailure(t *testing.T) {
	f := newFixture()
	f.storage.saveErr = errors.New("minio down")

	_, err := f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.Empty(t, f.submissions.created)
}

func queued(f *fixture, cartoon []byte) model.Submission {
	sub := model.Submission{
		ID:                 uuid.New(),
		ChildName:          "Zoe",
		BirthDate:          time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC),
		PhotoPath:          "photos/zoe.png",
		CartoonCharacterID: "doraemon",
	}
	f.storage.objects[sub.PhotoPath] = pngPhoto
	if cartoon != nil {
		sub.CartoonPath = "cartoons/zoe.png"
		f.storage.objects[sub.CartoonPath] = cartoon
	}
	return sub
}

func TestProcessCompletes(t *testing.T) {
	f := newFixture()
	sub := queued(f, nil)

	require.NoError(t, f.svc.Process(context.Background(), sub))

	// No cartoon reference: the compositor passes the person photo through.
	assert.Nil(t, f.compositor.cartoon)
	assert.Equal(t, pngPhoto, f.stamper.got)
	assert.Equal(t, "Zoe", f.stamper.name)

	stamped := append([]byte("stamped:"), pngPhoto...)
	assert.Equal(t, stamped, f.generator.image)
	assert.Equal(t, stamped, f.storage.objects["stamped/"+sub.ID.String()+".jpg"])

	doraemon, _ := prompt.Lookup("doraemon")
	assert.Contains(t, f.generator.prompt, doraemon.Appearance)
	assert.Contains(t, f.generator.prompt, "Zoe")
	assert.Equal(t, 5, f.generator.duration)

	require.Len(t, f.entries.saved, 1)
	e := f.entries.saved[0]
	assert.Equal(t, "Zoe", e.ChildName)
	require.NotNil(t, e.GeneratedVideoURL)
	assert.Equal(t, "https://cdn/zoe.mp4", *e.GeneratedVideoURL)

	assert.Equal(t, model.SubmissionCompleted, f.submissions.statuses[sub.ID])
	assert.Contains(t, f.progress.history, model.Progress{State: string(orchestrator.StatePolling), Percent: 50})
	assert.Equal(t, model.Progress{State: "completed", Percent: 100, VideoURL: "https://cdn/zoe.mp4"}, f.progress.current[sub.ID])
}

func TestProcessRemovesBackgroundsAndComposites(t *testing.T) {
	f := newFixture()
	f.svc.remover = prefixRemover{}
	sub := queued(f, []byte("cartoon"))

	require.NoError(t, f.svc.Process(context.Background(), sub))

	assert.Equal(t, []byte("nobg:cartoon"), f.compositor.cartoon)
	assert.Equal(t, append([]byte("nobg:"), pngPhoto...), f.compositor.person)
	assert.Equal(t, []byte("composite"), f.stamper.got)
}

func TestProcessBestEffortSteps(t *testing.T) {
	f := newFixture()
	f.compositor.err = errors.New("decode failed")
	f.stamper.err = errors.New("font missing")
	sub := queued(f, []byte("cartoon"))

	require.NoError(t, f.svc.Process(context.Background(), sub))

	assert.Equal(t, pngPhoto, f.stamper.got)
	assert.Equal(t, pngPhoto, f.generator.image)
}

func TestProcessGenerationFailure(t *testing.T) {
	f := newFixture()
	f.generator.job = model.GenerationJob{Status: model.JobTimedOut, ProgressPercent: 50}
	f.generator.err = fmt.Errorf("%w after 40 attempts", orchestrator.ErrTimedOut)
	sub := queued(f, nil)

	require.NoError(t, f.svc.Process(context.Background(), sub))

	require.Len(t, f.entries.saved, 1)
	assert.Nil(t, f.entries.saved[0].GeneratedVideoURL)
	assert.Equal(t, model.SubmissionFailed, f.submissions.statuses[sub.ID])

	p := f.progress.current[sub.ID]
	assert.Equal(t, string(orchestrator.StateTimedOut), p.State)
	assert.Equal(t, "video generation timed out", p.Error)
}

func TestProcessProviderRejection(t *testing.T) {
	f := newFixture()
	f.generator.job = model.GenerationJob{Status: model.JobFailed}
	f.generator.err = &orchestrator.FailureError{Code: 7, Message: "rejected by moderation"}
	sub := queued(f, nil)

	require.NoError(t, f.svc.Process(context.Background(), sub))
	assert.Equal(t, "rejected by moderation", f.progress.current[sub.ID].Error)
}

func TestProcessMissingColumnFallsBackToLocal(t *testing.T) {
	f := newFixture()
	f.entries.err = fmt.Errorf("create: %w", repository.ErrMissingColumn)
	sub := queued(f, nil)

	require.NoError(t, f.svc.Process(context.Background(), sub))

	require.Len(t, f.progress.local, 1)
	assert.Equal(t, sub.ID, f.progress.local[0].ID)
	assert.True(t, f.progress.local[0].HasVideo())
	assert.Equal(t, model.SubmissionCompleted, f.submissions.statuses[sub.ID])
}

func TestProcessPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.entries.err = errors.New("connection refused")
	sub := queued(f, nil)

	err := f.svc.Process(context.Background(), sub)
	require.Error(t, err)

	assert.Empty(t, f.progress.local)
	assert.Equal(t, model.SubmissionFailed, f.submissions.statuses[sub.ID])
}

func TestProcessMissingPhoto(t *testing.T) {
	f := newFixture()
	sub := queued(f, nil)
	delete(f.storage.objects, sub.PhotoPath)

	require.NoError(t, f.svc.Process(context.Background(), sub))

	assert.Nil(t, f.generator.image)
	require.Len(t, f.entries.saved, 1)
	assert.Nil(t, f.entries.saved[0].GeneratedVideoURL)
	assert.Equal(t, model.SubmissionFailed, f.submissions.statuses[sub.ID])
}

func TestProgress(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.progress.current[id] = model.Progress{State: "polling", Percent: 50}

	p, err := f.svc.Progress(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Percent)
}

func TestProgressAfterSnapshotExpired(t *testing.T) {
	f := newFixture()

	id, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	delete(f.progress.current, id)

	p, err := f.svc.Progress(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, p.State)

	f.submissions.statuses[id] = model.SubmissionCompleted
	p, err = f.svc.Progress(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(orchestrator.StateCompleted), p.State)
	assert.Equal(t, 100, p.Percent)

	f.submissions.statuses[id] = model.SubmissionFailed
	p, err = f.svc.Progress(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(orchestrator.StateFailed), p.State)

	_, err = f.svc.Progress(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
