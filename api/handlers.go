// Package api exposes the platform integration over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roessland/coachsync/bridge"
	"github.com/roessland/coachsync/trainerroad"
)

const (
	dateLayout         = "2006-01-02"
	defaultRecentLimit = 20
	maxRequestBody     = 64 << 10
)

// Integration is the subset of bridge.Service the handlers use
type Integration interface {
	Authenticate(ctx context.Context, p bridge.Principal, identity, secret string) (bridge.AuthResult, error)
	Status(ctx context.Context, p bridge.Principal) (bridge.Status, error)
	SignOut(ctx context.Context, p bridge.Principal)
	RecentActivities(ctx context.Context, p bridge.Principal, limit int) ([]trainerroad.Activity, error)
	ActivitiesBetween(ctx context.Context, p bridge.Principal, start, end time.Time) ([]trainerroad.Activity, error)
	WorkoutCatalog(ctx context.Context, p bridge.Principal, pageSize, pageNumber int, search string) (trainerroad.CatalogPage, error)
	WorkoutInformation(ctx context.Context, p bridge.Principal, ids []int64) ([]trainerroad.WorkoutTemplate, error)
}

// AuthenticateRequest carries the platform credentials. They are never stored.
type AuthenticateRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// StatusResponse reports the connection state
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
}

// WorkoutsResponse wraps workout detail records
type WorkoutsResponse struct {
	Items []trainerroad.WorkoutTemplate `json:"items"`
}

// Handler coordinates HTTP requests with the integration service
type Handler struct {
	service Integration
}

// NewHandler builds a Handler
func NewHandler(service Integration) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/platform/authenticate", h.authenticate)
	mux.HandleFunc("GET /v1/platform/status", h.status)
	mux.HandleFunc("POST /v1/platform/sign-out", h.signOut)
	mux.HandleFunc("GET /v1/platform/activities/recent", h.recentActivities)
	mux.HandleFunc("GET /v1/platform/activities/by-date", h.activitiesByDate)
	mux.HandleFunc("GET /v1/platform/workout-catalog", h.workoutCatalog)
	mux.HandleFunc("GET /v1/platform/workout-information", h.workoutInformation)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func principal(w http.ResponseWriter, r *http.Request) (bridge.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingToken.Error())
	}
	return p, ok
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req AuthenticateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := h.service.Authenticate(r.Context(), p, req.Identity, req.Secret)
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), p)
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Authenticated: status == bridge.StatusConnected,
		State:         status.String(),
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	h.service.SignOut(r.Context(), p)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) recentActivities(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	limit, err := intParam(r, "limit", defaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	activities, err := h.service.RecentActivities(r.Context(), p, limit)
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeActivities(w, activities)
}

func (h *Handler) activitiesByDate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	start, err := dateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := dateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	activities, err := h.service.ActivitiesBetween(r.Context(), p, start, end)
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeActivities(w, activities)
}

// writeActivities encodes a listing as a bare array, never null
func writeActivities(w http.ResponseWriter, activities []trainerroad.Activity) {
	if activities == nil {
		activities = []trainerroad.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *Handler) workoutCatalog(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	pageSize, err := intParam(r, "pageSize", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageNumber, err := intParam(r, "pageNumber", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.WorkoutCatalog(r.Context(), p, pageSize, pageNumber, r.URL.Query().Get("search"))
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) workoutInformation(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ids, err := idsParam(r, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	templates, err := h.service.WorkoutInformation(r.Context(), p, ids)
	if err != nil {
		writeIntegrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkoutsResponse{Items: templates})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New("missing " + name + " parameter")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be a date formatted YYYY-MM-DD")
	}
	return t, nil
}

func idsParam(r *http.Request, name string) ([]int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, errors.New("missing " + name + " parameter")
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New(name + " must be a comma separated list of positive integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeIntegrationError renders an IntegrationError with its status. Anything
// else is an internal error and its details stay in the logs.
func writeIntegrationError(w http.ResponseWriter, err error) {
	var ie *bridge.IntegrationError
	if !errors.As(err, &ie) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ie.Status == http.StatusTooManyRequests && ie.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(ie.RetryAfter.Seconds()))))
	}
	writeError(w, ie.Status, ie.Message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error":  message,
		"status": status,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
