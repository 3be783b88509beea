package simulation

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotRenderer draws the terminal-voltage trace as a PNG image
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewPlotRenderer creates a renderer with the given canvas size in cm
func NewPlotRenderer(widthCm, heightCm float64) *PlotRenderer {
	return &PlotRenderer{
		Width:  vg.Length(widthCm) * vg.Centimeter,
		Height: vg.Length(heightCm) * vg.Centimeter,
	}
}

// Render draws the solution and returns it base64-encoded
func (r *PlotRenderer) Render(sol *Solution) (string, error) {
	if len(sol.Time) == 0 || len(sol.Time) != len(sol.Voltage) {
		return "", fmt.Errorf("cannot render empty or mismatched solution")
	}

	p := plot.New()
	p.Title.Text = "Terminal voltage [V]"
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Terminal voltage [V]"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(sol.Time))
	for i := range sol.Time {
		pts[i].X = sol.Time[i]
		pts[i].Y = sol.Voltage[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build voltage trace: %w", err)
	}
	p.Add(line)

	writer, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return "", fmt.Errorf("failed to render plot: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to encode plot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
