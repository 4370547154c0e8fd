// Package server exposes the recording and playback controls over HTTP for
// remote/UI consumers.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/playback"
	"github.com/audiolibrelab/clipstitch/internal/service"
)

// Server is the JSON control surface over the service facade.
type Server struct {
	svc  *service.Service
	port string
}

// New builds a server on the given port.
func New(svc *service.Service, port string) *Server {
	return &Server{svc: svc, port: port}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/segments", s.handleSegments)
	mux.HandleFunc("/api/record/start", s.handleRecordStart)
	mux.HandleFunc("/api/record/stop", s.handleRecordStop)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/play/stop", s.handlePlayStop)
	return mux
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	slog.Info("Starting ClipStitch server",
		"port", s.port,
		"url", fmt.Sprintf("http://localhost:%s", s.port))
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.sendJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		segments, err := s.svc.Segments()
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.sendJSON(w, http.StatusOK, map[string]interface{}{"segments": segments})

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			s.sendError(w, http.StatusBadRequest, "Segment id is required")
			return
		}
		if err := s.svc.RemoveSegment(id); err != nil {
			s.sendError(w, http.StatusNotFound, err.Error())
			return
		}
		s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	default:
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	done, err := s.svc.StartRecording()
	if err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}

	// The recording finalizes asynchronously; log its outcome when it lands.
	go func() {
		res := <-done
		if res.Err != nil {
			slog.Error("Recording failed", "error", res.Err)
			return
		}
		slog.Info("Recording finished", "segment", res.Segment.ID)
	}()

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.svc.StopRecording()
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	mode := playback.ModeComposed
	if r.URL.Query().Get("mode") == "naive" {
		mode = playback.ModeNaive
	}

	if err := s.svc.Play(mode); err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "mode": mode})
}

func (s *Server) handlePlayStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.svc.StopPlayback()
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, map[string]interface{}{
		"success":   false,
		"error":     msg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
