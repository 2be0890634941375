// Package httpserver builds the process HTTP server serving the
// identity API.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the API routes. The read-header timeout
// bounds slow clients; handler timeouts stay with the handlers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
