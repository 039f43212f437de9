// Package web provides the HTTP status server for the knob-sensor daemon:
// an HTML page, a JSON endpoint, prometheus metrics and a websocket feed.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/sweeney/knob-sensor/internal/status"
)

// Options configures optional parts of the server.
type Options struct {
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// AllowedOrigins may fetch /index.json cross-origin. Empty allows any.
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *Hub
	log        *zap.Logger
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, o Options) *Server {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	s := &Server{
		tracker: tracker,
		hub:     NewHub(o.Logger),
		log:     o.Logger,
	}

	r := mux.NewRouter()
	page := gziphandler.GzipHandler(http.HandlerFunc(s.handleIndex))
	r.Handle("/", page).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/index.html", page).Methods(http.MethodGet, http.MethodHead)

	api := cors.New(cors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	r.Handle("/index.json", api.Handler(gziphandler.GzipHandler(http.HandlerFunc(s.handleJSON))))

	if o.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}
	r.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Hub returns the websocket hub that live events are broadcast through.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and disconnects websocket
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Warn("render status page", zap.Error(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	hello := status.FormatStatusEvent(s.tracker.Snapshot(), "", "")
	s.hub.Serve(w, r, hello)
}
