package gateway

import "github.com/aliskhannn/birthday-stream/internal/pixverse"

// UploadRequest is the body of POST /api/pixverse/upload-image.
type UploadRequest struct {
	Image string `json:"image"`
}

// GenerateRequest is the body of POST /api/pixverse/generate-video.
type GenerateRequest struct {
	ImgID    int64  `json:"img_id"`
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
}

// Envelope mirrors the provider's response envelope on the proxy surface.
type Envelope struct {
	ErrCode int    `json:"ErrCode"`
	ErrMsg  string `json:"ErrMsg"`
	Resp    any    `json:"Resp"`
}

// UploadResult is the Resp of a successful upload.
type UploadResult struct {
	ImgID int64 `json:"img_id"`
}

// GenerateResult is the Resp of a successful generation request.
type GenerateResult struct {
	VideoID pixverse.FlexibleID `json:"video_id"`
}

// StatusResult is the Resp of a status check.
type StatusResult struct {
	Status int    `json:"status"`
	URL    string `json:"url,omitempty"`
}
