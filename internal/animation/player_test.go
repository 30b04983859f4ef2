package animation

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

const interval = 120 * time.Millisecond

func newTestPlayer() (*Player, *surface.Headless, *clock.Mock) {
	surf := surface.NewHeadless(16)
	mock := clock.NewMock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewPlayer(config.AnimationConfig{FrameInterval: interval}, surf, logger, mock)
	return p, surf, mock
}

// split decodes drained envelopes into frames and a done count.
func split(t *testing.T, envs []streaming.Envelope) ([]streaming.AnimFramePayload, int) {
	t.Helper()
	var frames []streaming.AnimFramePayload
	done := 0
	for _, env := range envs {
		switch env.Type {
		case streaming.TypeAnimFrame:
			var f streaming.AnimFramePayload
			require.NoError(t, json.Unmarshal(env.Payload, &f))
			frames = append(frames, f)
		case streaming.TypeAnimDone:
			done++
		default:
			t.Fatalf("unexpected envelope type %q", env.Type)
		}
	}
	return frames, done
}

func TestPlayer_DrawRevealsOneAtATime(t *testing.T) {
	p, surf, mock := newTestPlayer()
	got := make(chan core.AnimationStyle, 1)
	p.SetOnDone(func(s core.AnimationStyle) { got <- s })

	require.NoError(t, p.Start(core.StyleDraw, 3))
	frames, done := split(t, surf.Drain())
	require.Len(t, frames, 1)
	assert.Equal(t, 1, frames[0].VisiblePoints)
	assert.Equal(t, 3, frames[0].Total)
	assert.Equal(t, fullOpacity, frames[0].Opacity)
	assert.Zero(t, done)
	assert.Equal(t, StatePlaying, p.State())

	mock.Add(interval)
	frames, done = split(t, surf.Drain())
	require.Len(t, frames, 1)
	assert.Equal(t, 2, frames[0].VisiblePoints)
	assert.Zero(t, done)

	mock.Add(interval)
	frames, done = split(t, surf.Drain())
	require.Len(t, frames, 1)
	assert.Equal(t, 3, frames[0].VisiblePoints)
	assert.Equal(t, 1, done)
	assert.Equal(t, StateIdle, p.State())

	select {
	case s := <-got:
		assert.Equal(t, core.StyleDraw, s)
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback not fired")
	}

	mock.Add(5 * time.Second)
	assert.Empty(t, surf.Drain())
}

func TestPlayer_PulseSwellsThreeTimes(t *testing.T) {
	p, surf, mock := newTestPlayer()

	require.NoError(t, p.Start(core.StylePulse, 4))
	for i := 0; i < 5; i++ {
		mock.Add(interval)
	}

	frames, done := split(t, surf.Drain())
	require.Len(t, frames, 6)
	assert.Equal(t, 1, done)
	for i, f := range frames {
		assert.Equal(t, 4, f.VisiblePoints)
		if i%2 == 0 {
			assert.Equal(t, pulseWidth, f.Width, "frame %d", i+1)
			assert.Equal(t, fullOpacity, f.Opacity, "frame %d", i+1)
		} else {
			assert.Equal(t, baseWidth, f.Width, "frame %d", i+1)
			assert.Equal(t, restOpacity, f.Opacity, "frame %d", i+1)
		}
	}
	assert.Equal(t, StateIdle, p.State())
}

func TestPlayer_FlashTogglesFiveTimes(t *testing.T) {
	p, surf, mock := newTestPlayer()

	require.NoError(t, p.Start(core.StyleFlash, 2))
	for i := 0; i < 4; i++ {
		mock.Add(interval)
	}

	frames, done := split(t, surf.Drain())
	require.Len(t, frames, 5)
	assert.Equal(t, 1, done)
	want := []float64{dimOpacity, fullOpacity, dimOpacity, fullOpacity, dimOpacity}
	for i, f := range frames {
		assert.Equal(t, want[i], f.Opacity, "frame %d", i+1)
		assert.Equal(t, baseWidth, f.Width)
		assert.Equal(t, 2, f.VisiblePoints)
	}
}

func TestPlayer_StopCancelsPendingFrames(t *testing.T) {
	p, surf, mock := newTestPlayer()
	fired := make(chan core.AnimationStyle, 1)
	p.SetOnDone(func(s core.AnimationStyle) { fired <- s })

	require.NoError(t, p.Start(core.StyleDraw, 5))
	mock.Add(interval)
	frames, _ := split(t, surf.Drain())
	require.Len(t, frames, 2)

	p.Stop()
	assert.Equal(t, StateIdle, p.State())

	mock.Add(5 * time.Second)
	assert.Empty(t, surf.Drain())
	assert.Empty(t, fired)

	// Stopping again is harmless.
	p.Stop()
}

func TestPlayer_StartWhilePlayingRestarts(t *testing.T) {
	p, surf, mock := newTestPlayer()

	require.NoError(t, p.Start(core.StyleDraw, 5))
	mock.Add(interval)
	frames, _ := split(t, surf.Drain())
	require.Len(t, frames, 2)

	require.NoError(t, p.Start(core.StyleFlash, 5))
	frames, done := split(t, surf.Drain())
	require.Len(t, frames, 1)
	assert.Equal(t, "flash", frames[0].Style)
	assert.Equal(t, 1, frames[0].Frame)
	assert.Zero(t, done)

	for i := 0; i < 4; i++ {
		mock.Add(interval)
	}
	frames, done = split(t, surf.Drain())
	require.Len(t, frames, 4)
	for _, f := range frames {
		assert.Equal(t, "flash", f.Style)
	}
	assert.Equal(t, 1, done)

	// The replaced run's timer never resurfaces.
	mock.Add(5 * time.Second)
	assert.Empty(t, surf.Drain())
}

func TestPlayer_EmptyRouteRejected(t *testing.T) {
	p, surf, _ := newTestPlayer()

	err := p.Start(core.StyleDraw, 0)
	require.Error(t, err)
	assert.True(t, core.IsUserInput(err))
	assert.Empty(t, surf.Drain())
	assert.Equal(t, StateIdle, p.State())
}

func TestPlayer_SinglePointDrawFinishesImmediately(t *testing.T) {
	p, surf, _ := newTestPlayer()

	require.NoError(t, p.Start(core.StyleDraw, 1))
	frames, done := split(t, surf.Drain())
	require.Len(t, frames, 1)
	assert.Equal(t, 1, frames[0].VisiblePoints)
	assert.Equal(t, 1, done)
	assert.Equal(t, StateIdle, p.State())
}
