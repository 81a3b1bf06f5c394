package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "message-sender/docs"
	"message-sender/internal/auth"
	"message-sender/internal/generator"
	"message-sender/internal/manager"
	"message-sender/internal/metrics"
	"message-sender/internal/storage"
)

const defaultPageSize = 20

func (a *API) Router() http.Handler {
	// Public
	a.Routers.Get("/healthz", a.Health)
	a.Routers.Get("/runs", a.ListRuns)
	a.Routers.Get("/runs/{id}", a.GetRun)
	a.Routers.Get("/runs/{id}/results", a.ListResults)
	a.Routers.Handle("/metrics", metrics.Handler())
	a.Routers.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Secured
	a.Routers.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator(a.log))

		r.Post("/runs", a.StartRun)
	})

	return a.Routers
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"busy":   a.Runs.Busy(),
	})
}

// @Summary Start a batch
// @Tags Runs
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body RunRequest true "Batch to send"
// @Success 202 {object} map[string]string
// @Failure 400 {string} string
// @Failure 409 {string} string
// @Router /runs [post]
func (a *API) StartRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if body.Port < 0 || body.Port > 65535 {
		http.Error(w, "port out of range", http.StatusBadRequest)
		return
	}

	body.Operator = auth.OperatorFrom(r.Context())

	id, err := a.Runs.Start(a.baseCtx, body)
	switch {
	case errors.Is(err, generator.ErrInvalidCount):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, manager.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.log.WithField("operator", body.Operator).WithField("run_id", id).Info("[API] Run started")
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id.String()})
}

// @Summary List runs
// @Tags Runs
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /runs [get]
func (a *API) ListRuns(w http.ResponseWriter, r *http.Request) {
	if a.Storage == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":        a.Runs.List(),
			"next_cursor": "",
		})
		return
	}

	limit := defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	cursor := r.URL.Query().Get("cursor")
	runs, nextCursor, err := a.Storage.ListRunsPaginated(r.Context(), cursor, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":        runs,
		"next_cursor": nextCursor,
	})
}

// @Summary Get a run
// @Tags Runs
// @Produce json
// @Param id path string true "Run UUID"
// @Success 200 {object} model.Run
// @Failure 404 {string} string
// @Router /runs/{id} [get]
func (a *API) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := a.Runs.Get(id)
	if errors.Is(err, manager.ErrRunNotFound) && a.Storage != nil {
		run, err = a.Storage.GetRun(r.Context(), id)
	}
	switch {
	case errors.Is(err, manager.ErrRunNotFound), errors.Is(err, storage.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// @Summary List the round trips of a run
// @Tags Runs
// @Produce json
// @Param id path string true "Run UUID"
// @Success 200 {array} model.Result
// @Failure 404 {string} string
// @Router /runs/{id}/results [get]
func (a *API) ListResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	if a.Storage == nil {
		http.Error(w, "result store not configured", http.StatusNotFound)
		return
	}

	results, err := a.Storage.ListResults(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
