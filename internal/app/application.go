package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/core"
	"github.com/Rorical/RoriChat/internal/dispatcher"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/update"
)

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.ChatService
	model      *AppModel
	logger     zerolog.Logger
}

func NewApplication(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	// Create event bus
	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn().Err(e.Err).Str("operation", e.Operation).Msg("event bus error")
	})

	// Create dispatcher
	disp := dispatcher.NewEventDispatcher(eb)

	// Initialize chat service (always create, handles invalid config internally)
	chatService, err := core.NewChatService(cfg, eb, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize chat service")
	}

	// Create app model
	model := &AppModel{
		appModel:   createInitialAppModel(chatService),
		widgets:    update.NewWidgets(),
		dispatcher: disp,
		profile:    cfg.ActiveProfile,
	}

	return &Application{
		config:     cfg,
		eventBus:   eb,
		dispatcher: disp,
		service:    chatService,
		model:      model,
		logger:     logger,
	}, nil
}

// Start runs the core event loop and the UI until the UI quits or ctx ends.
func (app *Application) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		return app.service.Run(egCtx)
	})

	eg.Go(func() error {
		// The core loop has nothing left to serve once the UI is gone.
		defer cancel()
		p := tea.NewProgram(app.model, tea.WithAltScreen(), tea.WithContext(egCtx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return errors.Wrap(err, "running UI")
	})

	app.logger.Info().Str("profile", app.config.ActiveProfile).Msg("application started")
	return eg.Wait()
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
	app.logger.Info().Msg("application stopped")
}

func createInitialAppModel(chatService *core.ChatService) models.AppModel {
	status := "Ready"
	if !chatService.IsReady() {
		status = "No endpoint configured, run 'rorichat profile edit'"
	}
	// The transcript comes from core as the single source of truth
	return models.AppModel{
		Status:           status,
		ChatServiceReady: chatService.IsReady(),
	}
}
