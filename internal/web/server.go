// Package web serves the rendered calendar: an HTML page for the headless
// capture, the raw SVG and PNG artifacts, and a JSON view of the computed
// layout for other consumers.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
	"vacal/internal/layout"
)

// Artifact is the output of one render pass, published to the server for
// serving and capture.
type Artifact struct {
	SVG    []byte
	Window caldate.Window
	Rows   [][]layout.Span

	Width  int
	Height int

	RenderedAt time.Time
}

// Server exposes the latest Artifact over HTTP.
type Server struct {
	listen  string
	pngPath string
	router  *mux.Router

	mu       sync.RWMutex
	artifact *Artifact
}

// NewServer creates a Server bound to listen (host:port; port 0 picks an
// ephemeral port on Start). pngPath is where the capture pipeline writes
// the PNG served at /preview.png.
func NewServer(listen, pngPath string) *Server {
	s := &Server{
		listen:  listen,
		pngPath: pngPath,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/calendar", s.handleCalendarPage).Methods(http.MethodGet)
	s.router.HandleFunc("/calendar.svg", s.handleSVG).Methods(http.MethodGet)
	s.router.HandleFunc("/preview.png", s.handlePreview).Methods(http.MethodGet)
	s.router.HandleFunc("/api/layout", s.handleLayout).Methods(http.MethodGet)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetArtifact publishes a new render result.
func (s *Server) SetArtifact(a *Artifact) {
	s.mu.Lock()
	s.artifact = a
	s.mu.Unlock()
}

func (s *Server) current() *Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

// Start begins serving and returns the base URL (resolving an ephemeral
// port if one was requested). The server shuts down gracefully when ctx is
// canceled; done closes once it has stopped.
func (s *Server) Start(ctx context.Context) (baseURL string, done <-chan struct{}, err error) {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return "", nil, fmt.Errorf("web: listen %s: %w", s.listen, err)
	}

	srv := &http.Server{Handler: s.router}
	stopped := make(chan struct{})

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		close(stopped)
	}()

	baseURL = "http://" + ln.Addr().String()
	log.WithField("listen", baseURL).Info("http server started")
	return baseURL, stopped, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendarPage wraps the SVG in a minimal HTML page flagged with
// data-ready="true", the condition the capture pipeline waits on.
func (s *Server) handleCalendarPage(w http.ResponseWriter, _ *http.Request) {
	a := s.current()
	if a == nil {
		http.Error(w, "no calendar rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>html,body{margin:0;padding:0}</style></head>
<body>
<div data-ready="true" style="width:%dpx;height:%dpx">
%s
</div>
</body>
</html>
`, a.Width, a.Height, a.SVG)
}

func (s *Server) handleSVG(w http.ResponseWriter, _ *http.Request) {
	a := s.current()
	if a == nil {
		http.Error(w, "no calendar rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	_, _ = w.Write(a.SVG)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.pngPath)
}

// layoutResponse is the JSON shape of /api/layout: the full date matrix
// plus every span with its lane, enough for a client to draw the calendar
// without re-deriving any layout decision.
type layoutResponse struct {
	Weeks      [][]string  `json:"weeks"`
	Rows       [][]spanDTO `json:"rows"`
	RenderedAt time.Time   `json:"rendered_at"`
}

type spanDTO struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
	Lane  int    `json:"lane"`
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	a := s.current()
	if a == nil {
		http.Error(w, "no calendar rendered yet", http.StatusServiceUnavailable)
		return
	}

	const day = "2006-01-02"

	weeks := make([][]string, len(a.Window.Weeks))
	for i, week := range a.Window.Weeks {
		cells := make([]string, caldate.DaysPerWeek)
		for c, d := range week.Days {
			if !d.IsZero() {
				cells[c] = d.Format(day)
			}
		}
		weeks[i] = cells
	}

	rows := make([][]spanDTO, len(a.Rows))
	for i, spans := range a.Rows {
		dtos := make([]spanDTO, 0, len(spans))
		for _, sp := range spans {
			dtos = append(dtos, spanDTO{
				Name:  sp.Event.Name,
				Title: sp.Event.Title,
				Start: sp.Start.Format(day),
				End:   sp.End.Format(day),
				Lane:  sp.Lane,
			})
		}
		rows[i] = dtos
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(layoutResponse{
		Weeks:      weeks,
		Rows:       rows,
		RenderedAt: a.RenderedAt,
	}); err != nil {
		log.WithError(err).Error("failed to write layout response")
	}
}
