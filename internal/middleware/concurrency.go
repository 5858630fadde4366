package middleware

import (
	"net/http"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit bounds how many requests run a handler at once. Each run
// executes synchronously inside its request worker, so this is the only seat
// count paid generation can occupy; requests beyond the limit are turned
// away immediately rather than queued.
func ConcurrencyLimit(max int64) func(http.Handler) http.Handler {
	sem := semaphore.NewWeighted(max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sem.TryAcquire(1) {
				http.Error(w, "too many concurrent runs", http.StatusServiceUnavailable)
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}
