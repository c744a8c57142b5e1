// Package server exposes the document engine over HTTP.
//
// Routes:
//
//	GET    /health           storage readiness probe
//	GET    /{bucket}         list objects (query: sort, page, pageSize)
//	POST   /{bucket}         create an object
//	GET    /{bucket}/{key}   read an object
//	PUT    /{bucket}/{key}   merge a patch into an object
//	DELETE /{bucket}/{key}   remove an object
//
// Every response is JSON. Errors come back as {"error": "..."} with the
// status derived from the error kind: not found → 404, invalid input → 400,
// anything else → 500.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/LarsVonQualen/quick-api/internal/engine"
	"github.com/LarsVonQualen/quick-api/internal/logger"
)

// Server routes HTTP requests onto an engine.Store.
type Server struct {
	store  *engine.Store
	log    *logger.Logger
	router chi.Router
}

// New wires routes and middleware around the given store.
func New(store *engine.Store, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}
	s := &Server{store: store, log: log.Named("server")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Route("/{bucket}", func(r chi.Router) {
		r.Get("/", s.listObjects)
		r.Post("/", s.createObject)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.getObject)
			r.Put("/", s.updateObject)
			r.Delete("/", s.removeObject)
		})
	})

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
