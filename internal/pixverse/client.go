// Package pixverse is a client for the PixVerse image-to-video API.
package pixverse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// DefaultBaseURL is the PixVerse OpenAPI v2 root.
const DefaultBaseURL = "https://app-api.pixverse.ai/openapi/v2"

// Generation defaults sent with every job.
const (
	DefaultModel          = "v3.5"
	DefaultQuality        = "540p"
	DefaultMotionMode     = "normal"
	DefaultNegativePrompt = "distortion, blurry, low quality"
	DefaultAspectRatio    = "16:9"
	DefaultDuration       = 5
)

const logBodyLimit = 2048

// Options configures a Client. Empty generation fields take the defaults above.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	Model          string
	Quality        string
	MotionMode     string
	NegativePrompt string
	AspectRatio    string
}

// Client holds the API key; it is the only component that talks to PixVerse.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	defaults   generateBody
	now        func() time.Time
}

// New creates a Client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		defaults: generateBody{
			Model:          orDefault(opts.Model, DefaultModel),
			Quality:        orDefault(opts.Quality, DefaultQuality),
			MotionMode:     orDefault(opts.MotionMode, DefaultMotionMode),
			NegativePrompt: orDefault(opts.NegativePrompt, DefaultNegativePrompt),
			AspectRatio:    orDefault(opts.AspectRatio, DefaultAspectRatio),
		},
		now: time.Now,
	}
}

// GenerateRequest holds the caller-supplied generation fields.
type GenerateRequest struct {
	ImageID  int64
	Prompt   string
	Duration int
}

// Result is the provider's view of a generation job.
type Result struct {
	ID     FlexibleID `json:"id"`
	Status int        `json:"status"`
	URL    string     `json:"url"`
}

type envelope struct {
	ErrCode int             `json:"ErrCode"`
	ErrMsg  string          `json:"ErrMsg"`
	Resp    json.RawMessage `json:"Resp"`
}

type generateBody struct {
	ImgID          int64  `json:"img_id"`
	Prompt         string `json:"prompt"`
	Duration       int    `json:"duration"`
	Model          string `json:"model"`
	Quality        string `json:"quality"`
	MotionMode     string `json:"motion_mode"`
	NegativePrompt string `json:"negative_prompt"`
	AspectRatio    string `json:"aspect_ratio"`
}

// UploadImage uploads image bytes and returns the provider image id.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename, contentType string) (int64, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return 0, &UploadError{ProviderError{Op: "upload", Err: err}}
	}
	if _, err := part.Write(data); err != nil {
		return 0, &UploadError{ProviderError{Op: "upload", Err: err}}
	}
	if err := mw.Close(); err != nil {
		return 0, &UploadError{ProviderError{Op: "upload", Err: err}}
	}

	var resp struct {
		ImgID  int64  `json:"img_id"`
		ImgURL string `json:"img_url"`
	}

	if perr := c.call(ctx, "upload", http.MethodPost, "/image/upload", body, mw.FormDataContentType(), &resp); perr != nil {
		return 0, &UploadError{*perr}
	}

	return resp.ImgID, nil
}

// GenerateVideo submits an image-to-video job and returns the provider video id.
func (c *Client) GenerateVideo(ctx context.Context, req GenerateRequest) (string, error) {
	b := c.defaults
	b.ImgID = req.ImageID
	b.Prompt = req.Prompt
	b.Duration = req.Duration
	if b.Duration == 0 {
		b.Duration = DefaultDuration
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return "", &GenerationRequestError{ProviderError{Op: "generate", Err: err}}
	}

	zlog.Logger.Debug().RawJSON("body", payload).Msg("pixverse generate request")

	var resp struct {
		VideoID FlexibleID `json:"video_id"`
	}

	if perr := c.call(ctx, "video", http.MethodPost, "/video/img/generate", bytes.NewReader(payload), "application/json", &resp); perr != nil {
		return "", &GenerationRequestError{*perr}
	}

	return string(resp.VideoID), nil
}

// VideoResult fetches the current state of a job.
func (c *Client) VideoResult(ctx context.Context, videoID string) (Result, error) {
	var res Result

	path := "/video/result/" + url.PathEscape(videoID)
	if perr := c.call(ctx, "status", http.MethodGet, path, nil, "", &res); perr != nil {
		return Result{}, &StatusCheckError{*perr}
	}

	return res, nil
}

// call performs one request and decodes the envelope's Resp into out.
func (c *Client) call(ctx context.Context, kind, method, path string, body io.Reader, contentType string, out any) *ProviderError {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ProviderError{Op: kind, Err: err}
	}

	traceID := c.traceID(kind)
	req.Header.Set("API-KEY", c.apiKey)
	req.Header.Set("Ai-trace-id", traceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("op", kind).Str("trace_id", traceID).Msg("pixverse request failed")
		return &ProviderError{Op: kind, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Op: kind, StatusCode: resp.StatusCode, Err: err}
	}

	zlog.Logger.Info().
		Str("op", kind).
		Str("trace_id", traceID).
		Int("status", resp.StatusCode).
		Str("body", truncate(raw, logBodyLimit)).
		Msg("pixverse response")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ProviderError{
			Op:         kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid response body: %w", err),
		}
	}

	if env.ErrCode != 0 {
		return &ProviderError{Op: kind, StatusCode: resp.StatusCode, Code: env.ErrCode, Message: env.ErrMsg}
	}

	if len(env.Resp) == 0 || string(env.Resp) == "null" {
		return &ProviderError{Op: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("response has no Resp field")}
	}

	if err := json.Unmarshal(env.Resp, out); err != nil {
		return &ProviderError{Op: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid Resp: %w", err)}
	}

	return nil
}

// traceID returns "{kind}-{unix ms}-{random}".
func (c *Client) traceID(kind string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", kind, c.now().UnixMilli(), suffix)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
