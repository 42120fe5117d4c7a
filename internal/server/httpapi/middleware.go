package httpapi

import (
	"errors"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/limiter"
)

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "no auth")
			return
		}
		var id uuid.UUID
		err := limiter.Check(r.Context(), s.limiter, r.RemoteAddr, func() (err error) {
			id, err = s.verifier.Verify(tok)
			return err
		})
		var blocked *limiter.BlockedError
		switch {
		case errors.As(err, &blocked):
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(blocked.RetryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, blocked.Error())
			return
		case err != nil:
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithOwnerID(r.Context(), id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "internal")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logging logs one line per request, metadata only.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
			)
		})
	}
}
