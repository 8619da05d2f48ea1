package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"
)

type ctxKey int

const loggerKey ctxKey = iota

// RequestIDHeader is set to every response.
const RequestIDHeader = "X-Request-ID"

// GetLogger returns request-scoped logger.
func GetLogger(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return l
	}

	return logrus.StandardLogger()
}

// GetRequestID returns id of the request or empty string.
func GetRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// RequestIDMiddleware assigns id to the request with chi's RequestID, echoes it in X-Request-ID header
// and adds it to the request logger. Id is taken from X-Request-ID header when present.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), loggerKey, GetLogger(r.Context()).WithField("request_id", id))

		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}

// LoggerMiddleware puts request logger into context and logs the served request.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := GetLogger(r.Context()).WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"address": realip.FromRequest(r),
		})

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey, l)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		l.WithFields(logrus.Fields{
			"status":   status,
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}

// BodyLimiterMiddleware limits size of request's body.
func BodyLimiterMiddleware(size int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)

			next.ServeHTTP(w, r)
		})
	}
}
