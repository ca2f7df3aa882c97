package main

import (
	"context"
	"io"
	"net/http"

	"github.com/MarcoPoloResearchLab/notepad/internal/client"
	"github.com/MarcoPoloResearchLab/notepad/internal/config"
	"github.com/MarcoPoloResearchLab/notepad/internal/logging"
	"github.com/MarcoPoloResearchLab/notepad/internal/presenter"
	"github.com/MarcoPoloResearchLab/notepad/internal/store"
	"github.com/MarcoPoloResearchLab/notepad/internal/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is one command invocation: a store loaded from the backend plus its renderers.
type session struct {
	store    *store.Store
	renderer *presenter.Renderer
	logger   *zap.Logger
}

type sessionFactory func(cmd *cobra.Command) (*session, error)

func openSession(cfg config.ClientConfig, out, errOut io.Writer) (*session, error) {
	logger, err := logging.NewConsoleLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	repository, err := client.New(client.Config{
		BaseURL:    cfg.BackendURL,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	noteStore, err := store.New(store.Config{
		Repository: repository,
		Notifier:   presenter.NewToastNotifier(errOut),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		store:    noteStore,
		renderer: presenter.NewRenderer(out),
		logger:   logger,
	}, nil
}

// load fetches the collection; on failure the error state is rendered before returning.
func (s *session) load(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		if renderErr := s.renderer.Render(s.store.Snapshot("", view.StatusAll)); renderErr != nil {
			s.logger.Warn("failed to render error state", zap.Error(renderErr))
		}
		return err
	}
	return nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}
