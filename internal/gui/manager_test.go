package gui

import (
	"context"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/logger"
)

type nopSubmitter struct{}

func (nopSubmitter) SubmitValue(_ context.Context, _ string, _ interface{}) error { return nil }

func TestManager_ParamsChangedTracksVersion(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	params, err := config.NewStore(config.Defaults())
	require.NoError(t, err)

	m := NewManager(test.NewWindow(nil), attribute.NewStore(10), params, nopSubmitter{}, logger.NoOpLogger{})

	_, changed := m.paramsChanged()
	assert.False(t, changed)

	require.NoError(t, params.SetMinArea(20))
	p, changed := m.paramsChanged()
	require.True(t, changed)
	assert.Equal(t, 20.0, p.MinArea)

	_, changed = m.paramsChanged()
	assert.False(t, changed)
}

func TestManager_NothingPublishedYet(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	params, err := config.NewStore(config.Defaults())
	require.NoError(t, err)
	m := NewManager(test.NewWindow(nil), attribute.NewStore(10), params, nopSubmitter{}, logger.NoOpLogger{})

	assert.Nil(t, m.currentFrame())
	strip, status := m.currentStrip()
	assert.Nil(t, strip)
	assert.Empty(t, status)
}

func TestStatusText(t *testing.T) {
	r := attribute.Report{Counts: attribute.Counts{Sequence: 12, Total: 5, Filtered: 3, Timestamp: time.Unix(0, 0)}}
	assert.Equal(t, "frame 12  particles 5  selected 3", statusText(r))
}
