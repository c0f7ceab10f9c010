package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.RunWorkflow)))
	mux.Handle("POST /api/v1/workflows/async", chain(http.HandlerFunc(h.SubmitWorkflow)))

	// Tasks & agents
	mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.RunTask)))
	mux.Handle("GET /api/v1/agents", chain(http.HandlerFunc(h.ListAgents)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))

	// Stats
	mux.Handle("GET /api/v1/stats/jobs", chain(http.HandlerFunc(h.JobStats)))

	if h.catalog == nil {
		return
	}

	// Artists
	mux.Handle("GET /api/v1/artists", chain(http.HandlerFunc(h.ListArtists)))
	mux.Handle("POST /api/v1/artists", chain(http.HandlerFunc(h.CreateArtist)))
	mux.Handle("GET /api/v1/artists/{id}", chain(http.HandlerFunc(h.GetArtist)))
	mux.Handle("PUT /api/v1/artists/{id}", chain(http.HandlerFunc(h.UpdateArtist)))
	mux.Handle("DELETE /api/v1/artists/{id}", chain(http.HandlerFunc(h.DeleteArtist)))
	mux.Handle("GET /api/v1/artists/{id}/jobs", chain(http.HandlerFunc(h.ListArtistJobs)))
	mux.Handle("GET /api/v1/artists/{id}/relationships", chain(http.HandlerFunc(h.ListArtistRelationships)))

	// Works
	mux.Handle("GET /api/v1/works", chain(http.HandlerFunc(h.ListWorks)))
	mux.Handle("POST /api/v1/works", chain(http.HandlerFunc(h.CreateWork)))
	mux.Handle("GET /api/v1/works/{id}", chain(http.HandlerFunc(h.GetWork)))
	mux.Handle("PUT /api/v1/works/{id}", chain(http.HandlerFunc(h.UpdateWork)))
	mux.Handle("DELETE /api/v1/works/{id}", chain(http.HandlerFunc(h.DeleteWork)))

	// Relationships
	mux.Handle("POST /api/v1/relationships", chain(http.HandlerFunc(h.CreateRelationship)))
	mux.Handle("DELETE /api/v1/relationships/{id}", chain(http.HandlerFunc(h.DeleteRelationship)))
}
