package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"message-sender/internal/config"
	"message-sender/internal/manager"
	"message-sender/internal/model"
)

// RunReader is the read side of the result store.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error)
	ListRunsPaginated(ctx context.Context, cursor string, limit int) ([]model.Run, string, error)
	ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error)
}

type API struct {
	Routers *chi.Mux
	Runs    *manager.RunManager
	Storage RunReader
	Cfg     *config.Config

	// runs started over HTTP live as long as this context, not the request
	baseCtx context.Context
	log     logrus.FieldLogger
}

// NewAPI wires the handlers. storage may be nil when no database is configured.
func NewAPI(ctx context.Context, rm *manager.RunManager, storage RunReader, cfg *config.Config, log logrus.FieldLogger) *API {
	return &API{
		Routers: chi.NewRouter(),
		Runs:    rm,
		Storage: storage,
		Cfg:     cfg,
		baseCtx: ctx,
		log:     log,
	}
}

// RunRequest is the body accepted by POST /runs.
type RunRequest = model.RunRequest
