// Package middleware contains http middlewares of the service.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Decentr-net/mosaic/internal/api"
)

type ctxKey struct{}

// WithViewer puts authenticated user id into context.
func WithViewer(ctx context.Context, viewer string) context.Context {
	return context.WithValue(ctx, ctxKey{}, viewer)
}

// ViewerFromContext returns authenticated user id.
func ViewerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok && v != ""
}

// Auth authenticates requests by HS256 bearer token. Token's subject is used as viewer id.
func Auth(secret []byte) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				api.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims jwt.RegisteredClaims
			if _, err := jwt.ParseWithClaims(parts[1], &claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			); err != nil {
				api.GetLogger(r.Context()).WithError(err).Debug("invalid token")
				api.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if claims.Subject == "" {
				api.WriteError(w, http.StatusUnauthorized, "token subject is empty")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), claims.Subject)))
		})
	}
}
