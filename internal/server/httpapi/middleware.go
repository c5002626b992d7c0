package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext returns the access token claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.AccessClaims)
	return c, ok && c != nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
}

// authenticate rejects requests without a valid access token and stores its
// claims in the request context.
func (h *handlers) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.fail(w, r, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		claims := h.auth.VerifyAccessToken(token)
		if claims == nil {
			h.fail(w, r, http.StatusUnauthorized, "Unauthorized access", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
