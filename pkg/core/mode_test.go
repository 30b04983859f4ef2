package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditingMode_CycleWraps(t *testing.T) {
	m := ModeAdd

	m = m.Cycle()
	assert.Equal(t, ModeAddOnRoute, m)
	m = m.Cycle()
	assert.Equal(t, ModeDelete, m)
	m = m.Cycle()
	assert.Equal(t, ModeRoundTrip, m)
	m = m.Cycle()
	assert.Equal(t, ModeAdd, m)
}

func TestParseEditingMode_RoundTripsAllModes(t *testing.T) {
	for _, m := range []EditingMode{ModeAdd, ModeAddOnRoute, ModeDelete, ModeRoundTrip} {
		parsed, err := ParseEditingMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestParseEditingMode_Unknown(t *testing.T) {
	_, err := ParseEditingMode("teleport")

	require.Error(t, err)
	assert.True(t, IsUserInput(err))
}

func TestParseAnimationStyle_RoundTripsAllStyles(t *testing.T) {
	for _, s := range []AnimationStyle{StyleDraw, StylePulse, StyleFlash} {
		parsed, err := ParseAnimationStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseAnimationStyle_Unknown(t *testing.T) {
	_, err := ParseAnimationStyle("strobe")

	require.Error(t, err)
	assert.True(t, IsUserInput(err))
}

func TestIsUserInput_WrappedError(t *testing.T) {
	err := fmt.Errorf("handling tap: %w", NewUserInputError("route needs at least 2 points"))

	assert.True(t, IsUserInput(err))
	assert.False(t, IsUserInput(fmt.Errorf("disk full")))
}
