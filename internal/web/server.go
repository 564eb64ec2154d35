// Package web serves the lamp's status page, its JSON twin and a compact
// pair view for scripts polling the lamp.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/sweeney/friendship-lamp/internal/mqtt"
	"github.com/sweeney/friendship-lamp/internal/status"
)

// Headers set on every response so a HEAD request is enough to see what
// the lamp is doing.
const (
	HeaderRoom  = "X-Lamp-Room"
	HeaderLocal = "X-Lamp-State"
	HeaderPeer  = "X-Lamp-Peer-State"
)

// Server serves the status views over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	room       string
}

// New creates a Server for the lamp described by the tracker's config.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}
	cfg := tracker.Snapshot().Config
	if cfg.Name != "" && cfg.Friend != "" {
		s.room = mqtt.NewTopics(cfg.Name, cfg.Friend).Room
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("GET /lamp.json", s.handlePair)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// snapshot reads the tracker and stamps the lamp headers.
func (s *Server) snapshot(w http.ResponseWriter) status.Snapshot {
	snap := s.tracker.Snapshot()
	h := w.Header()
	if s.room != "" {
		h.Set(HeaderRoom, s.room)
	}
	h.Set(HeaderLocal, string(snap.Local))
	h.Set(HeaderPeer, string(snap.Peer))
	return snap
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// PairJSON is the compact view served at /lamp.json.
type PairJSON struct {
	Room      string `json:"room"`
	Name      string `json:"name"`
	Friend    string `json:"friend"`
	Local     string `json:"local"`
	Peer      string `json:"peer"`
	PeerColor string `json:"peer_color"`
	Connected bool   `json:"connected"`
}

func (s *Server) handlePair(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PairJSON{
		Room:      s.room,
		Name:      snap.Config.Name,
		Friend:    snap.Config.Friend,
		Local:     string(snap.Local),
		Peer:      string(snap.Peer),
		PeerColor: snap.PeerColor.String(),
		Connected: snap.Phase == status.PhaseConnected,
	})
}
