package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-playground/validator/v10"
	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// APIHandler serves the JSON endpoints.
type APIHandler struct {
	leaderboard *app.LeaderboardService
	admin       *app.AdminService
	validate    *validator.Validate
	logger      *log.Logger
}

func NewAPIHandler(leaderboard *app.LeaderboardService, admin *app.AdminService, logger *log.Logger) *APIHandler {
	return &APIHandler{
		leaderboard: leaderboard,
		admin:       admin,
		validate:    validator.New(),
		logger:      logger.With("component", "api"),
	}
}

type catalogRequest struct {
	Name string `json:"name" validate:"required"`
}

type instanceRequest struct {
	CatalogID string `json:"catalogId" validate:"required"`
	Medium    string `json:"medium"`
	Board     string `json:"board"`
	ExamID    string `json:"examId"`
	Order     *int   `json:"order"`
}

type instanceResponse struct {
	ID string `json:"id"`
}

type syncRequest struct {
	Collections []string `json:"collections" validate:"required,min=1"`
	DryRun      bool     `json:"dryRun"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SubmitResult accepts a quiz result from a service or admin caller.
// Leaderboard failures are logged, not returned.
func (h *APIHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.RequireRole(r.Context(), jwtauth.TokenFromHeader(r), domain.RoleService, domain.RoleAdmin); err != nil {
		h.respondError(w, err)
		return
	}
	var result domain.QuizResult
	if !h.decode(w, r, &result) {
		return
	}
	h.leaderboard.RecordResult(r.Context(), result)
	w.WriteHeader(http.StatusAccepted)
}

func (h *APIHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	standings, err := h.leaderboard.Standings(r.Context(), bucket, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, standings)
}

func (h *APIHandler) CreateCatalogEntry(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.admin.CreateCatalogEntry(r.Context(), jwtauth.TokenFromHeader(r), req.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// EnsureInstance normalizes the UI's "All Boards"/"All Exams" placeholders before resolving.
func (h *APIHandler) EnsureInstance(w http.ResponseWriter, r *http.Request) {
	var req instanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.admin.EnsureInstance(r.Context(), jwtauth.TokenFromHeader(r), app.EnsureInstanceRequest{
		CatalogID: req.CatalogID,
		Context:   domain.NewDeliveryContext(req.Medium, req.Board, req.ExamID),
		Order:     req.Order,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, instanceResponse{ID: id})
}

func (h *APIHandler) SyncRegistry(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.admin.Sync(r.Context(), jwtauth.TokenFromHeader(r), req.Collections, req.DryRun)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (h *APIHandler) respondError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
		msg = http.StatusText(status)
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

// statusFromError maps domain errors to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidContext),
		errors.Is(err, domain.ErrInvalidCatalogEntry),
		errors.Is(err, domain.ErrInvalidResult):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCatalogNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
