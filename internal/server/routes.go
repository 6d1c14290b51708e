package server

import (
	"net/http"

	"github.com/ternarybob/contex/internal/handlers"
)

// setupRoutes configures the HTTP surface named by spec.md §6.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/data/publish", s.publishHandler.Publish)
	mux.HandleFunc("/agents/register", s.registerHandler.Register)
	mux.HandleFunc("/agents/", s.registerHandler.Unregister) // /agents/{id}/unregister
	mux.HandleFunc("/query", s.queryHandler.Query)
	mux.HandleFunc("/projects/", s.projectHandler.ListData) // /projects/{id}/data
	mux.HandleFunc("/ws/agent/", s.brokerHandler.Subscribe) // /ws/agent/{project_id}/{agent_id}
	mux.HandleFunc("/health", handlers.HealthHandler)

	return mux
}
