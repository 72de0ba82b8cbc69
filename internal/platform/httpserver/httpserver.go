package httpserver

import (
	"net/http"
	"time"
)

// New builds the node's HTTP server. WriteTimeout must stay above the
// router's 30s handler timeout so slow requests end with a proper error
// envelope instead of a severed connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
