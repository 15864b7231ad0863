package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	InFlight  int64     `json:"in_flight"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		InFlight:  s.inFlight.Load(),
	}

	if !s.ready.Load() {
		response.Status = "shutting_down"
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, response)
}
