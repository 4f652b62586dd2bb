package checkin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hacksprint/hacksprint/internal/httpserver"
)

// ScanRequest wraps the raw QR payload string as scanned by a client.
type ScanRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// ManualRequest is the body for a manual, kiosk-entry check-in.
type ManualRequest struct {
	TeamID string `json:"team_id" validate:"required"`
}

// Handler exposes the attendance check-in HTTP surface.
type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewHandler creates a check-in Handler.
func NewHandler(o *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{orchestrator: o, logger: logger}
}

// Routes mounts the handler's endpoints on a sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/attendance/scan", h.handleScan)
	r.Post("/attendance/checkin", h.handleManual)
	r.Get("/attendance/stream", h.Stream)
	return r
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.orchestrator.CheckInScan(r.Context(), req.Payload)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, resultView(result))
}

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.orchestrator.CheckInManual(r.Context(), req.TeamID)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, resultView(result))
}

func resultView(result *Result) map[string]any {
	view := map[string]any{
		"team_id":   result.Team.TeamID,
		"team_code": result.Team.TeamCode,
		"team_name": result.Team.TeamName,
	}
	if result.Team.CheckInTime != nil {
		view["check_in_time"] = result.Team.CheckInTime
	}
	if result.Participant != nil {
		view["participant_name"] = result.Participant.Name
		view["participant_id"] = result.Participant.ParticipantID
		view["is_team_leader"] = result.Participant.IsTeamLeader
	}
	return view
}

// Stream handles the live check-in feed as server-sent events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.orchestrator.bus.Subscribe()
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("marshaling check-in event", "error", err)
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
