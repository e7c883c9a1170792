package server

import (
	"net/http"
)

// setupRoutes registers the API. Paths ending in "/" take an index or
// format segment.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Items
	mux.HandleFunc("/api/import", s.app.ItemHandler.ImportHandler) // POST multipart "file"
	mux.HandleFunc("/api/items", s.app.ItemHandler.ListHandler)    // GET ?status=&page=&pageSize=
	mux.HandleFunc("/api/items/", s.app.ItemHandler.ItemRoutes)    // GET /{index}, /{index}/preview
	mux.HandleFunc("/api/stats", s.app.ItemHandler.StatsHandler)
	mux.HandleFunc("/api/reset", s.app.ItemHandler.ResetHandler)

	// API routes - Batch runs
	mux.Handle("/api/run", MethodRouter{
		http.MethodGet:  s.app.RunHandler.ProgressHandler,
		http.MethodPost: s.app.RunHandler.StartHandler,
	})
	mux.HandleFunc("/api/run/cancel", s.app.RunHandler.CancelHandler) // POST
	mux.HandleFunc("/api/runs", s.app.RunHandler.HistoryHandler)       // GET ?limit=

	// API routes - Export
	mux.HandleFunc("/api/export/", s.app.ExportHandler.ExportHandler) // GET /{xlsx|json|csv|pdf}

	// API routes - Settings
	mux.HandleFunc("/api/topics", s.app.APIHandler.TopicsHandler)
	mux.Handle("/api/credentials", MethodRouter{
		http.MethodGet: s.app.CredentialsHandler.StatusHandler,
		http.MethodPut: s.app.CredentialsHandler.UpdateHandler,
	})

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
