// Package bgremoval strips photo backgrounds through a local inference
// sidecar speaking the rembg HTTP API.
package bgremoval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/wb-go/wbf/zlog"
)

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("background removal is disabled")

// Remover removes the background of an image and returns a PNG with a
// populated alpha channel. onProgress may be nil; when set it receives
// non-decreasing values and a final 100.
type Remover interface {
	RemoveBackground(ctx context.Context, image []byte, onProgress func(int)) ([]byte, error)
}

// Client calls POST {base}/api/remove with the image in the "file" field.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sidecar client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// RemoveBackground uploads the image and returns the sidecar's PNG.
func (c *Client) RemoveBackground(ctx context.Context, image []byte, onProgress func(int)) ([]byte, error) {
	report := monotonic(onProgress)
	report(10)

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile("file", "image")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/remove", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	report(30)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remove background: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remove background: status %d: %s", resp.StatusCode, truncate(out, 200))
	}

	if ct := http.DetectContentType(out); ct != "image/png" {
		return nil, fmt.Errorf("remove background: unexpected content type %q", ct)
	}

	report(95)
	report(100)

	return out, nil
}

// Disabled is the Remover used when no sidecar is configured.
type Disabled struct{}

// RemoveBackground reports completion and returns ErrDisabled.
func (Disabled) RemoveBackground(_ context.Context, _ []byte, onProgress func(int)) ([]byte, error) {
	if onProgress != nil {
		onProgress(100)
	}
	return nil, ErrDisabled
}

// BestEffort runs r and falls back to the original image on any error.
// onProgress always ends at 100.
func BestEffort(ctx context.Context, r Remover, image []byte, onProgress func(int)) []byte {
	report := monotonic(onProgress)

	out, err := r.RemoveBackground(ctx, image, report)
	if err != nil {
		if errors.Is(err, ErrDisabled) {
			zlog.Logger.Debug().Msg("background removal disabled, using original image")
		} else {
			zlog.Logger.Warn().Err(err).Msg("background removal failed, using original image")
		}
		report(100)
		return image
	}

	report(100)

	return out
}

// monotonic wraps fn so that values lower than the last reported one and
// repeats are dropped.
func monotonic(fn func(int)) func(int) {
	last := -1
	return func(p int) {
		if fn == nil || p <= last {
			return
		}
		if p > 100 {
			p = 100
		}
		last = p
		fn(p)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
