// Package api wires the lifecycle engine and queue registry to an HTTP
// surface using a chi router and bearer-token middleware.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/engine"
	"github.com/sqewdb/sqew/internal/registry"
)

type Server struct {
	registry *registry.Registry
	engine   *engine.Engine
	limiters *rateLimiters
}

func NewServer(reg *registry.Registry, eng *engine.Engine, cfg *config.Config) *Server {
	return &Server{
		registry: reg,
		engine:   eng,
		limiters: newRateLimiters(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func (s *Server) Router(apiKey string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/health", s.health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/queues", func(r chi.Router) {
		r.Use(bearerAPIKeyAuth(apiKey))

		r.Get("/", s.listQueues)
		r.Post("/", s.createQueue)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getQueue)
			r.Delete("/", s.deleteQueue)
			r.Get("/stats", s.queueStats)
			r.Post("/compact", s.compactQueue)

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", s.peekMessages)
				r.Post("/", s.enqueueMessage)
				r.Delete("/", s.purgeQueue)

				r.Get("/{id}", s.peekMessageByID)
				r.Delete("/{id}", s.removeMessage)
			})

			r.Post("/poll", s.pollMessages)
			r.Post("/ack", s.ackMessages)
			r.Post("/nack", s.nackMessages)
			r.Post("/extend", s.extendLease)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, req *http.Request) {
	sendJSON(w, http.StatusOK, "ok")
}
