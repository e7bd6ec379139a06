package plot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaxSentinel/internal/model"
)

func TestSVGRenderer_RenderSeries(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	samples := []model.TokenSample{
		{Timestamp: base, Price: 0.0130, Volume: 100},
		{Timestamp: base.AddDate(0, 0, 1), Price: 0.0125, Volume: 300},
		{Timestamp: base.AddDate(0, 0, 2), Price: 0.0123, Volume: 0},
	}
	path := filepath.Join(t.TempDir(), "plots", FileName("tok"))

	require.NoError(t, NewSVGRenderer().RenderSeries("Tok <Price>", samples, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(data)
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "<polyline")
	assert.Contains(t, svg, "Tok &lt;Price&gt;")
	assert.Contains(t, svg, "0.013000")
	assert.Contains(t, svg, "2025-03-01 to 2025-03-03")
}

func TestSVGRenderer_SinglePointFlatSeries(t *testing.T) {
	samples := []model.TokenSample{{Timestamp: time.Now(), Price: 2, Volume: 0}}
	path := filepath.Join(t.TempDir(), "one.svg")
	require.NoError(t, NewSVGRenderer().RenderSeries("one", samples, path))
	assert.FileExists(t, path)
}

func TestSVGRenderer_Empty(t *testing.T) {
	err := NewSVGRenderer().RenderSeries("none", nil, filepath.Join(t.TempDir(), "x.svg"))
	assert.ErrorIs(t, err, ErrEmptySeries)
}
