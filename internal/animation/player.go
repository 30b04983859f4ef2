// Package animation plays back a finalized route on the map surface.
// It is independent of the editing engine: the player only needs the
// point count and emits frame messages the host renders.
package animation

import (
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

// State is the player's position in its playback cycle.
type State uint8

const (
	// StateIdle means no playback is running.
	StateIdle State = iota
	// StatePlaying means frames are being emitted on the interval.
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "idle"
}

const (
	baseWidth  = 3.0
	pulseWidth = 7.0

	fullOpacity = 1.0
	restOpacity = 0.85
	dimOpacity  = 0.25

	pulseCycles  = 3
	flashToggles = 5
)

// Player emits animation frames for one route at a time. Starting
// while a run is live restarts from the beginning; stopping is
// idempotent and cancels the pending frame timer.
type Player struct {
	cfg     config.AnimationConfig
	clock   clock.Clock
	emitter surface.Emitter
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	timer      *clock.Timer
	style      core.AnimationStyle
	frame      int
	total      int
	points     int
	onDone     func(core.AnimationStyle)
}

// NewPlayer builds a player. A nil clk selects the wall clock.
func NewPlayer(cfg config.AnimationConfig, emitter surface.Emitter, logger *slog.Logger, clk clock.Clock) *Player {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		cfg:     cfg,
		clock:   clk,
		emitter: emitter,
		logger:  logger,
	}
}

// SetOnDone registers a completion callback, invoked after the final
// frame of a run. Explicit stops do not fire it.
func (p *Player) SetOnDone(cb func(core.AnimationStyle)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDone = cb
}

// Start begins playback over pointCount points. The first frame is
// emitted synchronously; the rest follow on the configured interval.
func (p *Player) Start(style core.AnimationStyle, pointCount int) error {
	if pointCount <= 0 {
		return core.NewUserInputError("no route to animate")
	}

	p.mu.Lock()
	p.stopLocked()
	p.generation++
	gen := p.generation
	p.state = StatePlaying
	p.style = style
	p.points = pointCount
	p.frame = 1
	p.total = totalFrames(style, pointCount)
	e := p.advanceLocked(gen)
	p.mu.Unlock()
	e.deliver(p)

	p.logger.Debug("animation started", "style", style.String(), "points", pointCount)
	return nil
}

// Stop cancels any live run without firing the completion callback.
// Safe to call repeatedly and while idle.
func (p *Player) Stop() {
	p.mu.Lock()
	was := p.state
	p.stopLocked()
	p.mu.Unlock()
	if was == StatePlaying {
		p.logger.Debug("animation stopped")
	}
}

// State reports the player's current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// emission is the output of one playback step, delivered after the
// player's lock is released so the done callback may start a new run.
type emission struct {
	frame *streaming.Envelope
	done  *streaming.Envelope
	cb    func(core.AnimationStyle)
	style core.AnimationStyle
}

func (e emission) deliver(p *Player) {
	if e.frame != nil {
		p.emitter.Emit(*e.frame)
	}
	if e.done != nil {
		p.emitter.Emit(*e.done)
		if e.cb != nil {
			e.cb(e.style)
		}
		p.logger.Debug("animation finished", "style", e.style.String())
	}
}

func (p *Player) step(gen uint64) {
	p.mu.Lock()
	if p.state != StatePlaying || p.generation != gen {
		// A stop or restart won the race with this tick.
		p.mu.Unlock()
		return
	}
	p.frame++
	e := p.advanceLocked(gen)
	p.mu.Unlock()
	e.deliver(p)
}

// advanceLocked builds the current frame, then either finishes the run
// or schedules the next tick.
func (p *Player) advanceLocked(gen uint64) emission {
	e := emission{style: p.style}
	if env, err := streaming.NewEnvelope(streaming.TypeAnimFrame, p.framePayload()); err == nil {
		e.frame = &env
	} else {
		p.logger.Error("encode animation frame", "error", err)
	}

	if p.frame >= p.total {
		p.timer = nil
		p.state = StateIdle
		e.cb = p.onDone
		if env, err := streaming.NewEnvelope(streaming.TypeAnimDone, streaming.AnimDonePayload{Style: p.style.String()}); err == nil {
			e.done = &env
		}
		return e
	}

	p.timer = p.clock.AfterFunc(p.cfg.FrameInterval, func() { p.step(gen) })
	return e
}

func (p *Player) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.state = StateIdle
}

func (p *Player) framePayload() streaming.AnimFramePayload {
	f := streaming.AnimFramePayload{
		Style:         p.style.String(),
		Frame:         p.frame,
		Total:         p.total,
		VisiblePoints: p.points,
		Opacity:       restOpacity,
		Width:         baseWidth,
	}
	switch p.style {
	case core.StyleDraw:
		// The visible path is truncated to the revealed prefix.
		f.VisiblePoints = p.frame
		f.Opacity = fullOpacity
	case core.StylePulse:
		if p.frame%2 == 1 {
			f.Width = pulseWidth
			f.Opacity = fullOpacity
		}
	case core.StyleFlash:
		if p.frame%2 == 1 {
			f.Opacity = dimOpacity
		} else {
			f.Opacity = fullOpacity
		}
	}
	return f
}

func totalFrames(style core.AnimationStyle, pointCount int) int {
	switch style {
	case core.StylePulse:
		return 2 * pulseCycles
	case core.StyleFlash:
		return flashToggles
	default:
		return pointCount
	}
}
