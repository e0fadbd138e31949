package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (event stream for the dashboard)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - URL records
	mux.HandleFunc("/api/urls/manual", s.app.URLHandler.ManualAddHandler) // POST - store without processing
	mux.HandleFunc("/api/urls", s.handleURLCollection)                    // POST (submit), GET (list)
	mux.HandleFunc("/api/urls/", s.handleURLRoutes)                       // /{id}, /{id}/retry, /{id}/diagnostics

	// API routes - Operations
	mux.HandleFunc("/api/cleanup", s.app.AdminHandler.CleanupHandler) // POST - fail stuck records now

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleURLCollection dispatches /api/urls by method
func (s *Server) handleURLCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.URLHandler.SubmitHandler(w, r)
	case http.MethodGet:
		s.app.URLHandler.ListHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleURLRoutes routes record-scoped requests to the appropriate handler
func (s *Server) handleURLRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/urls/")
	if path == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// POST /api/urls/{id}/retry
	if r.Method == http.MethodPost && strings.HasSuffix(path, "/retry") {
		urlID := strings.TrimSuffix(path, "/retry")
		s.app.URLHandler.RetryHandler(w, r, urlID)
		return
	}

	// GET /api/urls/{id}/diagnostics
	if r.Method == http.MethodGet && strings.HasSuffix(path, "/diagnostics") {
		urlID := strings.TrimSuffix(path, "/diagnostics")
		s.app.DiagnosticsHandler.GetTraceHandler(w, r, urlID)
		return
	}

	if strings.Contains(path, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.URLHandler.GetURLHandler(w, r, path)
	case http.MethodDelete:
		s.app.URLHandler.DeleteHandler(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
