package api

import (
	"net/http"
	"time"
)

// withExtendedTimeout lifts the server's read and write deadlines for
// handlers that stream large uploads.
func withExtendedTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// Not every ResponseWriter supports deadlines; the request continues either way.
		_ = rc.SetReadDeadline(time.Now().Add(timeout))
		_ = rc.SetWriteDeadline(time.Now().Add(timeout))
		next(w, r)
	}
}
