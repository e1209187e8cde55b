// Package gateway relays image upload, job creation and status checks to
// the video provider. Service runs in-process next to the provider client;
// Client talks to a separately deployed proxy over HTTP.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aliskhannn/birthday-stream/internal/model"
	"github.com/aliskhannn/birthday-stream/internal/pixverse"
	"github.com/aliskhannn/birthday-stream/internal/prompt"
)

const defaultPrompt = "Create a joyful birthday celebration video"

var (
	ErrInvalidImage    = errors.New("invalid image")
	ErrInvalidImageID  = errors.New("img_id is required")
	ErrInvalidDuration = errors.New("duration must be 5 or 8 seconds")
	ErrInvalidVideoID  = errors.New("video id is required")
)

// provider is the subset of the PixVerse client used by Service.
type provider interface {
	UploadImage(ctx context.Context, data []byte, filename, contentType string) (int64, error)
	GenerateVideo(ctx context.Context, req pixverse.GenerateRequest) (string, error)
	VideoResult(ctx context.Context, videoID string) (pixverse.Result, error)
}

// Service validates gateway requests and forwards them to the provider.
type Service struct {
	provider provider
}

// NewService creates a new Service.
func NewService(p provider) *Service {
	return &Service{provider: p}
}

// UploadImage decodes a base64 image (optionally a data URL) and uploads it.
func (s *Service) UploadImage(ctx context.Context, imageBase64 string) (int64, error) {
	data, err := DecodeImage(imageBase64)
	if err != nil {
		return 0, err
	}

	contentType := http.DetectContentType(data)

	return s.provider.UploadImage(ctx, data, filenameFor(contentType), contentType)
}

// GenerateVideo starts a job for an uploaded image. A zero duration means
// prompt.DefaultDuration.
func (s *Service) GenerateVideo(ctx context.Context, imgID int64, text string, duration int) (string, error) {
	if imgID <= 0 {
		return "", ErrInvalidImageID
	}

	if duration == 0 {
		duration = prompt.DefaultDuration
	}
	if !prompt.ValidDuration(duration) {
		return "", ErrInvalidDuration
	}

	if strings.TrimSpace(text) == "" {
		text = defaultPrompt
	}

	return s.provider.GenerateVideo(ctx, pixverse.GenerateRequest{
		ImageID:  imgID,
		Prompt:   text,
		Duration: duration,
	})
}

// GetStatus returns the raw provider status of a job.
func (s *Service) GetStatus(ctx context.Context, videoID string) (model.ProviderStatus, error) {
	if strings.TrimSpace(videoID) == "" {
		return model.ProviderStatus{}, ErrInvalidVideoID
	}

	res, err := s.provider.VideoResult(ctx, videoID)
	if err != nil {
		return model.ProviderStatus{}, err
	}

	return model.ProviderStatus{Code: res.Status, URL: res.URL}, nil
}

// DecodeImage strips a "data:...;base64," prefix and decodes the payload.
// Empty or undecodable input yields ErrInvalidImage.
func DecodeImage(imageBase64 string) ([]byte, error) {
	s := strings.TrimSpace(imageBase64)
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}

	if s == "" {
		return nil, fmt.Errorf("%w: image data is required", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data is required", ErrInvalidImage)
	}

	return data, nil
}

func filenameFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "birthday.png"
	case "image/webp":
		return "birthday.webp"
	default:
		return "birthday.jpg"
	}
}
