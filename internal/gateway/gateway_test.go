package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/birthday-stream/internal/pixverse"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeProvider struct {
	uploadData  []byte
	uploadName  string
	uploadType  string
	generateReq *pixverse.GenerateRequest
	result      pixverse.Result
	err         error
}

func (f *fakeProvider) UploadImage(_ context.Context, data []byte, filename, contentType string) (int64, error) {
	f.uploadData, f.uploadName, f.uploadType = data, filename, contentType
	return 7, f.err
}

func (f *fakeProvider) GenerateVideo(_ context.Context, req pixverse.GenerateRequest) (string, error) {
	f.generateReq = &req
	return "v-1", f.err
}

func (f *fakeProvider) VideoResult(_ context.Context, _ string) (pixverse.Result, error) {
	return f.result, f.err
}

func TestDecodeImage(t *testing.T) {
	raw := []byte("hello image")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "plain", in: enc, want: raw},
		{name: "data url", in: "data:image/jpeg;base64," + enc, want: raw},
		{name: "unpadded", in: base64.RawStdEncoding.EncodeToString(raw), want: raw},
		{name: "empty", in: "", wantErr: true},
		{name: "prefix only", in: "data:image/png;base64,", wantErr: true},
		{name: "garbage", in: "!!!not base64!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeImage(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceUploadImage(t *testing.T) {
	p := &fakeProvider{}
	s := NewService(p)

	id, err := s.UploadImage(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, int64(7), id)
	assert.Equal(t, pngHeader, p.uploadData)
	assert.Equal(t, "image/png", p.uploadType)
	assert.Equal(t, "birthday.png", p.uploadName)
}

func TestServiceUploadImageInvalid(t *testing.T) {
	p := &fakeProvider{}

	_, err := NewService(p).UploadImage(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Nil(t, p.uploadData)
}

func TestServiceGenerateVideo(t *testing.T) {
	p := &fakeProvider{}
	s := NewService(p)

	id, err := s.GenerateVideo(context.Background(), 12, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "v-1", id)
	assert.Equal(t, pixverse.GenerateRequest{ImageID: 12, Prompt: defaultPrompt, Duration: 5}, *p.generateReq)

	_, err = s.GenerateVideo(context.Background(), 12, "p", 8)
	require.NoError(t, err)
	assert.Equal(t, 8, p.generateReq.Duration)
}

func TestServiceGenerateVideoValidation(t *testing.T) {
	p := &fakeProvider{}
	s := NewService(p)

	_, err := s.GenerateVideo(context.Background(), 0, "p", 5)
	assert.ErrorIs(t, err, ErrInvalidImageID)

	_, err = s.GenerateVideo(context.Background(), 1, "p", 6)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	assert.Nil(t, p.generateReq)
}

func TestServiceGetStatus(t *testing.T) {
	p := &fakeProvider{result: pixverse.Result{Status: 1, URL: "https://v.mp4"}}
	s := NewService(p)

	st, err := s.GetStatus(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Code)
	assert.Equal(t, "https://v.mp4", st.URL)

	_, err = s.GetStatus(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidVideoID)

	p.err = errors.New("down")
	_, err = s.GetStatus(context.Background(), "v-1")
	assert.EqualError(t, err, "down")
}
