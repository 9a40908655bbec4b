// Package server is the campusdesk HTTP front end: a chat endpoint, an
// embedded chat page and a liveness probe.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/resolver"
)

//go:embed static/index.html
var static embed.FS

// CacheHeader reports whether the answer was served from cache.
const CacheHeader = "X-Campusdesk-Cache"

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Resolver answers questions.
type Resolver interface {
	Resolve(ctx context.Context, query string, lang models.Language) resolver.Result
}

// Auditor records chat exchanges.
type Auditor interface {
	Log(ctx context.Context, ex models.ChatExchange) error
}

// Server is the campusdesk HTTP server.
type Server struct {
	listen   string
	resolver Resolver
	auditor  Auditor
	log      *logrus.Entry
	mux      *http.ServeMux
	handler  http.Handler
}

// New creates a Server. auditor may be nil.
func New(listen string, res Resolver, auditor Auditor, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.WithField("component", "server")
	}
	s := &Server{
		listen:   listen,
		resolver: res,
		auditor:  auditor,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /test", s.handleTest)
	s.mux.HandleFunc("GET /languages", s.handleLanguages)
	s.handler = s.withRequestID(s.withAccessLog(s.mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("listen", s.listen).Info("campusdesk listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat always answers 200; failures surface as apology text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.FormValue("user_query")
	lang := models.ParseLanguage(r.FormValue("language"))

	res := s.resolver.Resolve(r.Context(), query, lang)

	hit := "miss"
	if res.CacheHit {
		hit = "hit"
	}
	w.Header().Set(CacheHeader, hit)
	writeJSON(w, http.StatusOK, chatResponse{Response: res.Text})

	if query == "" || s.auditor == nil {
		return
	}
	err := s.auditor.Log(context.WithoutCancel(r.Context()), models.ChatExchange{
		RequestID: RequestID(r.Context()),
		Query:     query,
		Language:  res.Language,
		Response:  res.Text,
		CacheHit:  res.CacheHit,
		Outcome:   res.Outcome,
		Channel:   "http",
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: start,
	})
	if err != nil {
		s.log.WithError(err).Warn("audit log failed")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("campusdesk server is working!"))
}

type languageView struct {
	Code   models.Language `json:"code"`
	Name   string          `json:"name"`
	Source bool            `json:"source,omitempty"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	views := make([]languageView, 0, len(models.SupportedLanguages))
	for _, l := range models.SupportedLanguages {
		views = append(views, languageView{Code: l, Name: l.Name(), Source: l.IsSource()})
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey struct{}

// RequestID returns the request id stored by the server middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withRequestID reuses an incoming X-Request-ID or assigns a new one.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     m.Code,
			"bytes":      m.Written,
			"duration":   m.Duration.String(),
			"request_id": RequestID(r.Context()),
		}).Info("request")
	})
}
