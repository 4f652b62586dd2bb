package admin

import (
	"net/http"

	"github.com/hacksprint/hacksprint/internal/httpserver"
)

// StatsHandler exposes GET /stats. Unlike the rest of this package it is
// not admin-gated — it backs a public dashboard counter widget.
type StatsHandler struct {
	*Handler
}

// NewStatsHandler wraps an admin Handler for the public stats endpoint.
func NewStatsHandler(h *Handler) *StatsHandler {
	return &StatsHandler{Handler: h}
}

// HandleStats responds with aggregate registration and attendance counters.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := struct {
		TotalTeams     int `json:"total_teams"`
		TotalMembers   int `json:"total_members"`
		TotalCheckedIn int `json:"total_checked_in"`
	}{}

	row := h.pool.QueryRow(r.Context(), `
		SELECT
			(SELECT count(*) FROM teams),
			(SELECT count(*) FROM team_members),
			(SELECT count(*) FROM teams WHERE attendance_status = true)`)

	if err := row.Scan(&stats.TotalTeams, &stats.TotalMembers, &stats.TotalCheckedIn); err != nil {
		h.logger.Error("computing stats", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to compute stats")
		return
	}

	httpserver.Respond(w, http.StatusOK, stats)
}
