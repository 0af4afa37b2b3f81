package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/NdodaEnde/doc-processor/internal/api/handlers"
	"github.com/NdodaEnde/doc-processor/internal/config"
	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, process *services.ProcessService, questions *services.QuestionService, store core.BatchStore) *Server {
	docHandler := handlers.NewDocumentHandler(process, store,
		cfg.UploadDir, cfg.MaxUploadMB<<20, cfg.VisionAgentAPIKey != "")
	questionHandler := handlers.NewQuestionHandler(questions)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", docHandler.Health)
	r.Post("/process-documents", docHandler.ProcessDocuments)
	r.Get("/get-document-status/{batchID}", docHandler.GetDocumentStatus)
	r.Get("/get-document-data/{batchID}", docHandler.GetDocumentData)
	r.Post("/ask-question", questionHandler.AskQuestion)
	r.Delete("/cleanup/{batchID}", docHandler.CleanupBatch)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Handler exposes the routed handler; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
