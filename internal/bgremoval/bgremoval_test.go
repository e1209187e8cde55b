package bgremoval

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

type recorder struct{ values []int }

func (r *recorder) report(p int) { r.values = append(r.values, p) }

func TestClientRemoveBackground(t *testing.T) {
	want := pngFixture(t)
	var got []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/remove", r.URL.Path)

		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		got, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(want)
	}))
	defer srv.Close()

	rec := &recorder{}
	out, err := NewClient(srv.URL+"/", srv.Client()).RemoveBackground(context.Background(), []byte("photo"), rec.report)
	require.NoError(t, err)

	assert.Equal(t, want, out)
	assert.Equal(t, []byte("photo"), got)
	assert.Equal(t, []int{10, 30, 95, 100}, rec.values)
}

func TestClientRemoveBackgroundErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "not a png",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"ok":true}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).RemoveBackground(context.Background(), []byte("photo"), nil)
			assert.Error(t, err)
		})
	}
}

type failingRemover struct{ err error }

func (f failingRemover) RemoveBackground(_ context.Context, _ []byte, onProgress func(int)) ([]byte, error) {
	onProgress(40)
	onProgress(20)
	return nil, f.err
}

func TestBestEffortFallsBackToOriginal(t *testing.T) {
	for _, err := range []error{errors.New("boom"), ErrDisabled} {
		rec := &recorder{}
		out := BestEffort(context.Background(), failingRemover{err: err}, []byte("original"), rec.report)

		assert.Equal(t, []byte("original"), out)
		assert.Equal(t, []int{40, 100}, rec.values)
	}
}

func TestBestEffortWithDisabled(t *testing.T) {
	rec := &recorder{}
	out := BestEffort(context.Background(), Disabled{}, []byte("original"), rec.report)

	assert.Equal(t, []byte("original"), out)
	assert.Equal(t, []int{100}, rec.values)
}

func TestBestEffortNilProgress(t *testing.T) {
	out := BestEffort(context.Background(), Disabled{}, []byte("original"), nil)
	assert.Equal(t, []byte("original"), out)
}
