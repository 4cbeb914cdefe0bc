package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"github.com/tejashriiii/OilSpill/model"
)

// classStyle holds the fill and outline colors for one detection class.
type classStyle struct {
	fill   color.NRGBA
	stroke color.NRGBA
}

// overlayStyles carries the per-class overlay colors. Fill opacity is
// roughly 40% for oil and 31% for the rest; strokes are the same hue,
// near-opaque.
var overlayStyles = map[string]classStyle{
	"oil":        {fill: color.NRGBA{255, 0, 0, 102}, stroke: color.NRGBA{255, 0, 0, 230}},
	"water":      {fill: color.NRGBA{0, 255, 255, 80}, stroke: color.NRGBA{0, 255, 255, 230}},
	"land":       {fill: color.NRGBA{153, 76, 0, 80}, stroke: color.NRGBA{153, 76, 0, 230}},
	"vegetation": {fill: color.NRGBA{0, 153, 0, 80}, stroke: color.NRGBA{0, 153, 0, 230}},
	"unknown":    {fill: color.NRGBA{255, 165, 0, 80}, stroke: color.NRGBA{255, 165, 0, 230}},
}

const strokeWidth = 3

// RenderAerialOverlay draws the detections onto a transparent layer,
// composites it over the original image and returns the flattened PNG.
// With no detections the original is re-encoded unchanged.
func RenderAerialOverlay(img image.Image, detections []model.Detection) ([]byte, error) {
	base := imaging.Clone(img)

	if len(detections) > 0 {
		bounds := base.Bounds()
		layer := image.NewNRGBA(bounds)

		for _, det := range detections {
			style, ok := overlayStyles[det.Class]
			if !ok {
				style = overlayStyles["unknown"]
			}
			fillPolygon(layer, det.Points, style.fill)
			strokePolygon(layer, det.Points, style.stroke)
		}

		draw.Draw(base, bounds, layer, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, base); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// fillPolygon rasterizes the polygon interior into dst.
func fillPolygon(dst *image.NRGBA, points []model.Point, c color.NRGBA) {
	if len(points) < 3 {
		return
	}

	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.DrawOp = draw.Over
	r.MoveTo(float32(points[0].X), float32(points[0].Y))
	for _, p := range points[1:] {
		r.LineTo(float32(p.X), float32(p.Y))
	}
	r.ClosePath()
	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// strokePolygon outlines the closed polygon, including the edge back
// from the last point to the first, at the fixed stroke width.
func strokePolygon(dst *image.NRGBA, points []model.Point, c color.NRGBA) {
	if len(points) < 2 {
		return
	}
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		strokeSegment(dst, a, b, c)
	}
}

// strokeSegment fills the quad spanning a line segment widened to the
// stroke width.
func strokeSegment(dst *image.NRGBA, a, b model.Point, c color.NRGBA) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	// Unit normal scaled to half the stroke width.
	nx := -dy / length * strokeWidth / 2
	ny := dx / length * strokeWidth / 2

	bounds := dst.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	r.DrawOp = draw.Over
	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
	r.Draw(dst, bounds, image.NewUniform(c), image.Point{})
}
