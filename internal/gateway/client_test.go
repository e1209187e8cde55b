package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pixverse/upload-image", func(w http.ResponseWriter, r *http.Request) {
		var req UploadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "abc", req.Image)
		_, _ = w.Write([]byte(`{"ErrCode":0,"ErrMsg":"success","Resp":{"img_id":55}}`))
	})
	mux.HandleFunc("/api/pixverse/generate-video", func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, GenerateRequest{ImgID: 55, Prompt: "p", Duration: 5}, req)
		_, _ = w.Write([]byte(`{"ErrCode":0,"Resp":{"video_id":321}}`))
	})
	mux.HandleFunc("/api/pixverse/status/321", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ErrCode":0,"Resp":{"status":1,"url":"https://v/321.mp4"}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	imgID, err := c.UploadImage(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(55), imgID)

	videoID, err := c.GenerateVideo(ctx, imgID, "p", 5)
	require.NoError(t, err)
	assert.Equal(t, "321", videoID)

	st, err := c.GetStatus(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Code)
	assert.Equal(t, "https://v/321.mp4", st.URL)
}

func TestClientErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Image data is required"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).UploadImage(context.Background(), "")

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "Image data is required", re.Message)
}

func TestClientMissingResp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetStatus(context.Background(), "1")
	assert.Error(t, err)
}
