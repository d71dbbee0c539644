// Package server exposes the pipeline, the digest store, and the link queue
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/pipeline"
	"github.com/sells-group/article-digest/internal/queue"
	"github.com/sells-group/article-digest/internal/review"
	"github.com/sells-group/article-digest/internal/store"
)

// Actor headers, checked in order.
const (
	HeaderActor    = "X-Digest-Actor"
	HeaderReviewer = "X-Reviewer-Id"
)

const maxBodyBytes = 10 << 20

// Processor runs URL batches.
type Processor interface {
	Process(ctx context.Context, urls []string, opts pipeline.Options) (*model.RunResult, error)
	Stream(ctx context.Context, urls []string, opts pipeline.Options) (<-chan pipeline.Event, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store       store.DigestStore
	proc        Processor
	queue       *queue.Queue
	defaults    pipeline.Options
	corsOrigins []string
	now         func() time.Time
}

// New creates a Server. defaults supplies run options a request leaves
// unset; artifacts are never written from HTTP runs.
func New(st store.DigestStore, proc Processor, q *queue.Queue, defaults pipeline.Options, corsOrigins []string) *Server {
	defaults.WriteArtifacts = false
	return &Server{
		store:       st,
		proc:        proc,
		queue:       q,
		defaults:    defaults,
		corsOrigins: corsOrigins,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderActor, HeaderReviewer},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Get("/process-stream", s.handleProcessStream)
		r.Post("/process-stream", s.handleProcessStream)

		r.Route("/digests", func(r chi.Router) {
			r.Get("/", s.handleListDigests)
			r.Post("/", s.handleCreateDigest)
			r.Delete("/", s.handleClearDigests)
			r.Get("/{id}", s.handleGetDigest)
			r.Patch("/{id}/records/{recordId}", s.handleReviewRecord)
		})

		r.Get("/queue", s.handleListQueue)
		r.Post("/queue", s.handleEnqueue)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func actorFrom(r *http.Request) string {
	return review.ResolveActor(r.Header.Get(HeaderActor), r.Header.Get(HeaderReviewer))
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeErr maps err to a status: invalid input is 400, unknown digests and
// records are 404, anything else is 500. fallback is the message used for
// 400 and 404 responses.
func writeErr(w http.ResponseWriter, err error, fallback string) {
	switch {
	case eris.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, fallback)
	case eris.Is(err, model.ErrDigestNotFound):
		writeError(w, http.StatusNotFound, "Digest not found")
	case eris.Is(err, model.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "Record not found")
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(model.ErrInvalidInput, "server: invalid request body")
	}
	return nil
}
