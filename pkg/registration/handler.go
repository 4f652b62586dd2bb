package registration

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/hacksprint/hacksprint/internal/httpserver"
	"github.com/hacksprint/hacksprint/pkg/apperr"
)

// Handler exposes the registration and team-lookup HTTP surface.
type Handler struct {
	orchestrator *Orchestrator
	credentials  CredentialStore
	artifacts    ArtifactPipeline
	logger       *slog.Logger
}

// NewHandler creates a registration Handler.
func NewHandler(o *Orchestrator, credentials CredentialStore, artifacts ArtifactPipeline, logger *slog.Logger) *Handler {
	return &Handler{orchestrator: o, credentials: credentials, artifacts: artifacts, logger: logger}
}

// Routes mounts the handler's endpoints on a sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/verify-otp", h.handleVerifyOTP)
	r.Get("/team/by-code/{team_code}", h.handleGetByCode)
	r.Get("/team/{team_id}", h.handleGetByID)
	r.Get("/download/id-cards", h.handleDownload)
	return r
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
		details := make([]httpserver.ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, httpserver.ValidationError{Field: fe.Field, Message: fe.Message})
		}
		httpserver.RespondValidationError(w, details)
		return
	}

	result, err := h.orchestrator.Register(r.Context(), req.ToTeamInput())
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	body := map[string]any{
		"status":         "ok",
		"message":        "verification code sent to leader email",
		"expires_in_sec": result.ExpiresInSec,
	}
	if result.DevOTP != "" {
		body["dev_otp"] = result.DevOTP
	}

	httpserver.Respond(w, http.StatusOK, body)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.orchestrator.VerifyOTP(r.Context(), req.LeaderEmail, req.OTP)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	body := map[string]any{"team": ToView(result.Team)}
	if result.ArtifactWarning {
		body["warning"] = "registration confirmed but card/email delivery failed and will be retried"
		httpserver.Respond(w, http.StatusCreated, body)
		return
	}

	httpserver.Respond(w, http.StatusOK, body)
}

func (h *Handler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "team_code")

	team, err := h.credentials.FindByTeamCode(r.Context(), code)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, ToView(team))
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "team_id")

	team, err := h.credentials.FindByTeamID(r.Context(), teamID)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, ToView(team))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	key := r.URL.Query().Get("key")

	if teamID == "" || key == "" {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "team_id and key are required")
		return
	}

	team, err := h.credentials.FindByTeamID(r.Context(), teamID)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	if team.AccessKey != key {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid access key")
		return
	}

	path, buildErr := h.artifacts.BuildDocument(r.Context(), team)
	if buildErr != nil {
		h.logger.Error("re-rendering id card document failed", "team_id", teamID, "error", buildErr)
		httpserver.RespondAppError(w, r, apperr.Wrap(apperr.CodeInternal, "generating document", buildErr))
		return
	}
	defer os.Remove(path)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+teamID+"-id-cards.pdf\"")
	http.ServeFile(w, r, path)
}
