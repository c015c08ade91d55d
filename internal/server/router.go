package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shineum/mailgate/internal/normalize"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping)
		r.With(middleware.RequestSize(s.config.MaxBodyBytes)).
			Post("/sendmail", s.sendMail(normalize.Current))

		r.Route("/legacy", func(r chi.Router) {
			r.Get("/ping", ping)
			r.With(middleware.RequestSize(s.config.MaxBodyBytes)).
				Post("/sendmail", s.sendMail(normalize.Legacy))
		})
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
}
