// Package http serves the question-answering API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/usecases"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "RAG API"

// MaxQuestionLength is the longest accepted question, in characters.
const MaxQuestionLength = 500

const maxBodyBytes = 1 << 20

// Engine is what the server needs from the session.
type Engine interface {
	Ask(ctx context.Context, question string, topK int) (*entities.Answer, error)
	Stats(ctx context.Context) (usecases.Stats, error)
}

// Server is the HTTP server for the RAG API.
type Server struct {
	engine Engine
	addr   string
	log    *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(engine Engine, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, addr: addr, log: logger}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
	}

	s.log.Info("server starting", slog.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown", slog.String("error", err.Error()))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type askRequest struct {
	Question *string `json:"question"`
	TopK     *int    `json:"top_k"`
}

type sourceResponse struct {
	Source   string  `json:"source"`
	Chunk    int     `json:"chunk"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance,omitempty"`
}

type askResponse struct {
	Question        string           `json:"question"`
	Answer          string           `json:"answer"`
	ChunksRetrieved int              `json:"chunks_retrieved"`
	Sources         []sourceResponse `json:"sources"`
}

type statsResponse struct {
	Documents     int    `json:"documents"`
	TotalChunks   int    `json:"total_chunks"`
	IndexedChunks int    `json:"indexed_chunks"`
	Mode          string `json:"mode"`
	Status        string `json:"status"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	ChunksLoaded int    `json:"chunks_loaded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Question == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing 'question' in request body"})
		return
	}

	question := strings.TrimSpace(*req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question cannot be empty"})
		return
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question too long (max 500 characters)"})
		return
	}

	topK := 0
	if req.TopK != nil {
		if *req.TopK < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "top_k must not be negative"})
			return
		}
		topK = *req.TopK
	}

	s.log.Info("processing question", slog.String("question", preview(question, 50)), slog.Int("top_k", topK))

	answer, err := s.engine.Ask(r.Context(), question, topK)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid question"})
			return
		}
		s.log.Error("answering question", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	resp := askResponse{
		Question:        answer.Question,
		Answer:          answer.Text,
		ChunksRetrieved: len(answer.Sources),
		Sources:         make([]sourceResponse, len(answer.Sources)),
	}
	for i, src := range answer.Sources {
		resp.Sources[i] = sourceResponse{
			Source:   src.Chunk.Source,
			Chunk:    src.Chunk.Sequence,
			Rank:     src.Rank,
			Score:    src.Score,
			Distance: src.Distance,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.log.Error("reading stats", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Documents:     stats.Documents,
		TotalChunks:   stats.TotalChunks,
		IndexedChunks: stats.IndexedChunks,
		Mode:          string(stats.Mode),
		Status:        stats.Status,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	chunks := 0
	if stats, err := s.engine.Stats(r.Context()); err == nil {
		chunks = stats.TotalChunks
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: ServiceName, ChunksLoaded: chunks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
