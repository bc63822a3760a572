package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Check())
	assert.Equal(t, 1.1, cfg.ZoomRegion.ZoomBoostFactor)
	assert.Equal(t, 64, cfg.Scheduler.MaxProxies)
	assert.True(t, cfg.ZoomRegion.EnableBkgRefinement)
}

func TestExampleParses(t *testing.T) {
	cfg, err := ReadString(Example)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.Domain.BoxSize)
	assert.Equal(t, "particles.txt", cfg.InitialConditions.File)
	assert.Equal(t, 8, cfg.ZoomRegion.ZoomCells)
	assert.Equal(t, "text", cfg.InitialConditions.Format)
}

func TestReadKeepsDefaults(t *testing.T) {
	text := `[Domain]
BoxSize = 50
Periodic = false

[InitialConditions]
ShiftX = 2.5
`
	cfg, err := ReadString(text)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Domain.BoxSize)
	assert.False(t, cfg.Domain.Periodic)
	assert.Equal(t, [3]float64{2.5, 0, 0}, cfg.Shift())
	assert.Equal(t, 0.7, cfg.Gravity.ThetaCrit)
	assert.Equal(t, 16, cfg.Scheduler.MaxTopLevelCells)
}

func TestReadFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "zoom.cfg")
	require.NoError(t, os.WriteFile(fileName,
		[]byte("[Gravity]\nThetaCrit = 0.5\n"), 0644))

	cfg, err := Read(fileName)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Gravity.ThetaCrit)

	_, err = Read(filepath.Join(t.TempDir(), "missing.cfg"))
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	tests := []struct{
		text string
		ok bool
	} {
		{"[Domain]\nBoxSize = -1\n", false},
		{"[ZoomRegion]\nZoomBoostFactor = 0.5\n", false},
		{"[ZoomRegion]\nZoomCells = 0\n", false},
		{"[Scheduler]\nMaxProxies = 0\n", false},
		{"[Gravity]\nMeshRCutMax = -2\n", false},
		{"[Engine]\nNodes = 4\n", true},
		{"[InitialConditions]\nFormat = gadget2\nByteOrder = big\n", true},
		{"[InitialConditions]\nFormat = hdf5\n", false},
		{"[InitialConditions]\nByteOrder = middle\n", false},
		{"[Bogus]\nX = 1\n", false},
	}

	for i := range tests {
		_, err := ReadString(tests[i].text)
		if (err == nil) != tests[i].ok {
			t.Errorf("%d) Expected ok = %v for '%s', got error %v.",
				i, tests[i].ok, tests[i].text, err)
		}
	}
}
