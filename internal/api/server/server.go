package server

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
)

// New returns an HTTP server for router. The write timeout covers a full
// provider upload proxied through /api/pixverse/upload-image.
func New(addr string, router *ginext.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
