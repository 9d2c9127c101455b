package app

import (
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// IdempotencyHeader carries the client-chosen request key.
const IdempotencyHeader = "Idempotency-Key"

// Idempotency rejects a repeated POST carrying the same Idempotency-Key
// within a module. Requests without the header pass through; keys consumed
// by requests that end in a server error are released so the client can
// retry.
func Idempotency(store *shared.IdempotencyStore, module string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			if err := store.CheckAndInsert(r.Context(), key, module); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					httpx.Problem(w, http.StatusConflict, "Duplicate Request", "request with this key was already processed")
					return
				}
				logger.Error("idempotency check", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusInternalServerError {
				if err := store.Delete(r.Context(), key); err != nil {
					logger.Warn("idempotency release", slog.String("key", key), slog.Any("error", err))
				}
			}
		})
	}
}
