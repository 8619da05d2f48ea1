// Package server Mosaic
//
// The Mosaic is a service which stores users' image and reel posts, their views and likes.
//
//	Schemes: https
//	BasePath: /v1
//	Version: 1.0.0
//
//	Produces:
//	- application/json
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	SecurityDefinitions:
//	bearer:
//	  type: apiKey
//	  name: Authorization
//	  in: header
//
// swagger:meta
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/Decentr-net/mosaic/internal/api"
	"github.com/Decentr-net/mosaic/internal/media"
	mm "github.com/Decentr-net/mosaic/internal/middleware"
	"github.com/Decentr-net/mosaic/internal/service"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

// maxBodySize leaves room for multipart envelope around the largest reel.
const maxBodySize = media.MaxReelSize + media.MiB

type server struct {
	s service.Service
}

// Limits contains optional limiters for write routes.
type Limits struct {
	CreatePost mm.Limiter
	ToggleLike mm.Limiter
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, r chi.Router, timeout time.Duration, secret []byte, l Limits) {
	r.Use(
		api.RequestIDMiddleware,
		api.LoggerMiddleware,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		api.BodyLimiterMiddleware(maxBodySize),
	)

	srv := server{
		s: s,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(mm.Auth(secret))

		r.With(limited(l.CreatePost)...).Post("/posts", srv.createPost)
		r.Get("/posts/{id}", srv.getPost)
		r.With(limited(l.ToggleLike)...).Post("/posts/{id}/like", srv.toggleLike)
		r.Get("/users/{owner}/images", srv.listImages)
		r.Get("/users/{owner}/reels", srv.listReels)
	})
}

func limited(l mm.Limiter) []func(next http.Handler) http.Handler {
	if l == nil {
		return nil
	}

	return []func(next http.Handler) http.Handler{mm.RateLimit(l)}
}
