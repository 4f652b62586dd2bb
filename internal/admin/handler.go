// Package admin exposes the minimal operator-facing HTTP surface: a
// paginated team listing and an on-demand artifact pipeline retry.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hacksprint/hacksprint/internal/audit"
	"github.com/hacksprint/hacksprint/internal/httpserver"
	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

// ArtifactPipeline regenerates and redelivers a team's credential
// artifacts, matching registration.ArtifactPipeline plus the mail step.
type ArtifactPipeline interface {
	BuildDocument(ctx context.Context, team *registration.Team) (string, error)
}

// Mailer resends the confirmation message with the rebuilt document.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, attachmentPath string, team *registration.Team) error
}

// Handler exposes the admin HTTP surface.
type Handler struct {
	pool      *pgxpool.Pool
	teams     registration.CredentialStore
	artifacts ArtifactPipeline
	mailer    Mailer
	audit     *audit.Writer
	logger    *slog.Logger
}

// NewHandler creates an admin Handler.
func NewHandler(pool *pgxpool.Pool, teams registration.CredentialStore, artifacts ArtifactPipeline, mailer Mailer, auditWriter *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, teams: teams, artifacts: artifacts, mailer: mailer, audit: auditWriter, logger: logger}
}

// Routes mounts the handler's endpoints on a sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/teams", h.handleListTeams)
	r.Post("/teams/{team_id}/retry-artifacts", h.handleRetryArtifacts)
	return r
}

func (h *Handler) handleListTeams(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var total int
	if err := h.pool.QueryRow(r.Context(), `SELECT count(*) FROM teams`).Scan(&total); err != nil {
		h.logger.Error("counting teams", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}

	rows, err := h.pool.Query(r.Context(), `
		SELECT team_id, team_code, team_name, leader_name, leader_email, college_name,
			domain, attendance_status, check_in_time, created_at
		FROM teams ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing teams", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}
	defer rows.Close()

	var items []teamSummary
	for rows.Next() {
		var ts teamSummary
		if err := rows.Scan(&ts.TeamID, &ts.TeamCode, &ts.TeamName, &ts.LeaderName, &ts.LeaderEmail,
			&ts.CollegeName, &ts.Domain, &ts.AttendanceStatus, &ts.CheckInTime, &ts.CreatedAt); err != nil {
			h.logger.Error("scanning team row", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
			return
		}
		items = append(items, ts)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("iterating team rows", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) handleRetryArtifacts(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "team_id")

	team, err := h.teams.FindByTeamID(r.Context(), teamID)
	if err != nil {
		httpserver.RespondAppError(w, r, err)
		return
	}

	path, buildErr := h.artifacts.BuildDocument(r.Context(), team)
	if buildErr != nil {
		h.logger.Error("retrying artifact build", "team_id", teamID, "error", buildErr)
		httpserver.RespondAppError(w, r, apperr.Wrap(apperr.CodeInternal, "rebuilding document", buildErr))
		return
	}
	defer os.Remove(path)

	if sendErr := h.mailer.SendConfirmation(r.Context(), team.LeaderEmail, path, team); sendErr != nil {
		h.logger.Error("retrying confirmation send", "team_id", teamID, "error", sendErr)
		httpserver.RespondAppError(w, r, apperr.Wrap(apperr.CodeTransportFailure, "resending confirmation", sendErr))
		return
	}

	h.audit.LogFromRequest(r, "retry_artifacts", "team", teamID, nil)

	httpserver.Respond(w, http.StatusOK, map[string]any{"status": "ok"})
}

type teamSummary struct {
	TeamID           string     `json:"team_id"`
	TeamCode         string     `json:"team_code"`
	TeamName         string     `json:"team_name"`
	LeaderName       string     `json:"leader_name"`
	LeaderEmail      string     `json:"leader_email"`
	CollegeName      string     `json:"college_name"`
	Domain           string     `json:"domain"`
	AttendanceStatus bool       `json:"attendance_status"`
	CheckInTime      *time.Time `json:"check_in_time"`
	CreatedAt        time.Time  `json:"created_at"`
}
