package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
)

// Dependencies carries everything the HTTP layer needs.  All services
// are injected; the server owns no state of its own.
type Dependencies struct {
	Logger         *log.Logger
	Addr           string
	AllowedOrigins []string
	Records        *service.RecordService
	Permits        *service.PermitService
	Capas          *service.CapaService
	Rosters        *service.RosterService
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	router     chi.Router
	records    *service.RecordService
	permits    *service.PermitService
	capas      *service.CapaService
	rosters    *service.RosterService
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:  d.Logger,
		records: d.Records,
		permits: d.Permits,
		capas:   d.Capas,
		rosters: d.Rosters,
	}

	r := chi.NewRouter()
	r.Use(loggingMiddleware(d.Logger))
	r.Use(recoverMiddleware(d.Logger))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/v1/healthz", s.handleHealthz)

	r.Route("/v1/records", func(r chi.Router) {
		r.Post("/", s.handleCreateRecord)
		r.Get("/", s.handleListRecords)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRecord)
			r.Patch("/", s.handleUpdateRecord)
			r.Delete("/", s.handleDeleteRecord)
			r.Post("/status", s.handleChangeStatus)
			r.Get("/audit", s.handleAuditLog)
			r.Post("/links", s.handleAddLink)
			r.Get("/links", s.handleListLinks)
			r.Post("/evidence", s.handleAddEvidence)
			r.Get("/evidence", s.handleListEvidence)
			r.Post("/roster/sign", s.handleSignRoster)
			r.Post("/capa", s.handleSpawnCapa)
		})
	})

	r.Route("/v1/permits/{id}", func(r chi.Router) {
		r.Post("/suspend", s.handleSuspendPermit)
		r.Post("/revoke", s.handleRevokePermit)
		r.Post("/reinstate", s.handleReinstatePermit)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
