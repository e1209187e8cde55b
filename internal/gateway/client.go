package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aliskhannn/birthday-stream/internal/model"
)

// RemoteError is an error response from a remote proxy.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway: %s (http %d)", e.Message, e.StatusCode)
}

// Client calls the proxy HTTP surface of a remote gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the proxy at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// UploadImage uploads a base64 image through the remote proxy and returns its image id.
func (c *Client) UploadImage(ctx context.Context, imageBase64 string) (int64, error) {
	var res UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/pixverse/upload-image", UploadRequest{Image: imageBase64}, &res); err != nil {
		return 0, err
	}
	return res.ImgID, nil
}

// GenerateVideo starts a generation for imgID through the remote proxy and returns the video id.
func (c *Client) GenerateVideo(ctx context.Context, imgID int64, prompt string, duration int) (string, error) {
	req := GenerateRequest{ImgID: imgID, Prompt: prompt, Duration: duration}

	var res GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/pixverse/generate-video", req, &res); err != nil {
		return "", err
	}
	return string(res.VideoID), nil
}

// GetStatus returns the provider status of videoID as reported by the remote proxy.
func (c *Client) GetStatus(ctx context.Context, videoID string) (model.ProviderStatus, error) {
	var res StatusResult
	if err := c.do(ctx, http.MethodGet, "/api/pixverse/status/"+url.PathEscape(videoID), nil, &res); err != nil {
		return model.ProviderStatus{}, err
	}
	return model.ProviderStatus{Code: res.Status, URL: res.URL}, nil
}

// do sends in as JSON (when not nil) and decodes the envelope's Resp into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	var env struct {
		Resp json.RawMessage `json:"Resp"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if len(env.Resp) == 0 || string(env.Resp) == "null" {
		return fmt.Errorf("gateway response has no Resp field")
	}

	if err := json.Unmarshal(env.Resp, out); err != nil {
		return fmt.Errorf("decode gateway Resp: %w", err)
	}

	return nil
}
