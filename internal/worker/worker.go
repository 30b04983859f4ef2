package worker

import (
	"log/slog"

	"github.com/routekit/editor/v2/internal/animation"
	"github.com/routekit/editor/v2/internal/editor"
	"github.com/routekit/editor/v2/internal/gesture"
	"github.com/routekit/editor/v2/internal/influx"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/parser"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
	Parser     *parser.Parser
	Machine    *gesture.Machine
	Editor     *editor.Service
	Player     *animation.Player
	Surface    surface.Surface
	Emitter    surface.Emitter
	Influx     *influx.Manager
}

// Manager binds bridge commands to the engine. It owns no state of its
// own; every handler parses, resolves, and hands off.
type Manager struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	logger := slog.Default()
	if deps.LogManager != nil {
		logger = deps.LogManager.Logger()
	}
	return &Manager{
		deps:   deps,
		logger: logger,
	}
}

// zoomSetter is implemented by surfaces whose zoom the engine tracks
// itself rather than querying the host, e.g. the headless surface.
type zoomSetter interface {
	SetZoom(zoom float64)
}

// reportIfUserInput forwards recoverable input problems to the host UI.
// Anything else is left for the dispatcher's error logging.
func (m *Manager) reportIfUserInput(err error) {
	if err == nil || !core.IsUserInput(err) || m.deps.Emitter == nil {
		return
	}
	env, encErr := streaming.NewEnvelope(streaming.TypeInputError, streaming.InputErrorPayload{Reason: err.Error()})
	if encErr != nil {
		m.logger.Error("encode input error failed", "error", encErr)
		return
	}
	m.deps.Emitter.Emit(env)
}
