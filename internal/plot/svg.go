package plot

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"TaxSentinel/internal/calculator"
	"TaxSentinel/internal/model"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("empty series")

// Renderer turns a token's sample series into an image file.
type Renderer interface {
	RenderSeries(title string, samples []model.TokenSample, path string) error
}

// SVGRenderer draws a price line over volume bars as a standalone SVG.
type SVGRenderer struct {
	Width  int
	Height int
}

func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{Width: 960, Height: 540}
}

const (
	margin     = 48
	priceShare = 0.65
)

func (r *SVGRenderer) RenderSeries(title string, samples []model.TokenSample, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("render %s: %w", title, ErrEmptySeries)
	}
	svg, err := r.render(title, samples)
	if err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write plot %s: %w", path, err)
	}
	return nil
}

func (r *SVGRenderer) render(title string, samples []model.TokenSample) (string, error) {
	pLow, pHigh, err := calculator.Range(calculator.Prices(samples))
	if err != nil {
		return "", err
	}
	_, vHigh, err := calculator.Range(calculator.Volumes(samples))
	if err != nil {
		return "", err
	}

	w, h := float64(r.Width), float64(r.Height)
	plotW := w - 2*margin
	plotH := h - 2*margin
	priceH := plotH * priceShare
	volTop := margin + priceH + 16
	volH := h - margin - volTop

	step := plotW
	if len(samples) > 1 {
		step = plotW / float64(len(samples)-1)
	}
	x := func(i int) float64 { return margin + float64(i)*step }
	py := func(p float64) float64 {
		if pHigh == pLow {
			return margin + priceH/2
		}
		return margin + priceH*(pHigh-p)/(pHigh-pLow)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		r.Width, r.Height, r.Width, r.Height)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>` + "\n")
	fmt.Fprintf(&b, `<text x="%d" y="28" font-family="sans-serif" font-size="18">%s</text>`+"\n",
		margin, html.EscapeString(title))

	barW := step * 0.8
	if barW < 1 {
		barW = 1
	}
	for i, s := range samples {
		bh := 0.0
		if vHigh > 0 {
			bh = volH * s.Volume / vHigh
		}
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="#9ecae1"/>`+"\n",
			x(i)-barW/2, volTop+volH-bh, barW, bh)
	}

	points := make([]string, len(samples))
	for i, s := range samples {
		points[i] = fmt.Sprintf("%.2f,%.2f", x(i), py(s.Price))
	}
	fmt.Fprintf(&b, `<polyline fill="none" stroke="#08519c" stroke-width="2" points="%s"/>`+"\n",
		strings.Join(points, " "))

	fmt.Fprintf(&b, `<text x="%d" y="%.2f" font-family="sans-serif" font-size="12">%s</text>`+"\n",
		4, py(pHigh)+4, formatValue(pHigh))
	fmt.Fprintf(&b, `<text x="%d" y="%.2f" font-family="sans-serif" font-size="12">%s</text>`+"\n",
		4, py(pLow)+4, formatValue(pLow))
	fmt.Fprintf(&b, `<text x="%d" y="%.2f" font-family="sans-serif" font-size="12">%s to %s</text>`+"\n",
		margin, h-12,
		samples[0].Timestamp.UTC().Format("2006-01-02"),
		samples[len(samples)-1].Timestamp.UTC().Format("2006-01-02"))
	b.WriteString("</svg>\n")
	return b.String(), nil
}

func formatValue(v float64) string {
	if v != 0 && v < 1 && v > -1 {
		return fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// FileName is the plot file name for a token.
func FileName(tokenID string) string {
	return tokenID + "_analysis.svg"
}
