package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Palette maps class indices to display colors. Index order is fixed:
// 0 background/water, 1 cyan, 2 oil, 3 land, 4 vegetation. Every
// rendering path must go through this table.
var Palette = [5]color.NRGBA{
	{0, 0, 0, 255},
	{0, 255, 255, 255},
	{255, 0, 0, 255},
	{153, 76, 0, 255},
	{0, 153, 0, 255},
}

const (
	panelGap    = 8
	panelMargin = 8
	titleBarH   = 24
)

// clampClass forces out-of-range class indices onto the palette.
func clampClass(v int) int {
	if v < 0 {
		return 0
	}
	if v >= len(Palette) {
		return len(Palette) - 1
	}
	return v
}

// FrameImage converts a preprocessed frame back to a displayable image.
func FrameImage(f *Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	i := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(f.Pixels[i]*255 + 0.5),
				G: uint8(f.Pixels[i+1]*255 + 0.5),
				B: uint8(f.Pixels[i+2]*255 + 0.5),
				A: 255,
			})
			i += 3
		}
	}
	return img
}

// MaskImage renders a class mask through the palette. No interpolation:
// each pixel is exactly its class color.
func MaskImage(mask []int, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, Palette[clampClass(mask[y*width+x])])
		}
	}
	return img
}

// OverlayImage blends the palette-colored mask over the original frame
// at 50% opacity.
func OverlayImage(f *Frame, mask []int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	i := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := Palette[clampClass(mask[y*f.Width+x])]
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((f.Pixels[i]*255+float32(c.R))/2 + 0.5),
				G: uint8((f.Pixels[i+1]*255+float32(c.G))/2 + 0.5),
				B: uint8((f.Pixels[i+2]*255+float32(c.B))/2 + 0.5),
				A: 255,
			})
			i += 3
		}
	}
	return img
}

// panel is one titled cell in a rendered figure.
type panel struct {
	title string
	img   image.Image
}

// RenderPanels lays out original, mask and overlay side by side and
// encodes the result as PNG.
func RenderPanels(f *Frame, mask []int, label string) ([]byte, error) {
	original := FrameImage(f)
	row := []panel{
		{"Original Image", original},
		{fmt.Sprintf("Predicted Mask (%s)", label), MaskImage(mask, f.Width, f.Height)},
		{"Overlay", OverlayImage(f, mask)},
	}
	return encodeFigure([][]panel{row}, f.Width, f.Height)
}

// RenderGrid lays out two model results as a 2x3 grid: each row holds
// original, mask and overlay for one model.
func RenderGrid(f *Frame, maskA []int, labelA string, maskB []int, labelB string) ([]byte, error) {
	original := FrameImage(f)
	rows := [][]panel{
		{
			{"Original Image", original},
			{fmt.Sprintf("%s Prediction", labelA), MaskImage(maskA, f.Width, f.Height)},
			{fmt.Sprintf("%s Overlay", labelA), OverlayImage(f, maskA)},
		},
		{
			{"Original Image", original},
			{fmt.Sprintf("%s Prediction", labelB), MaskImage(maskB, f.Width, f.Height)},
			{fmt.Sprintf("%s Overlay", labelB), OverlayImage(f, maskB)},
		},
	}
	return encodeFigure(rows, f.Width, f.Height)
}

// encodeFigure composites titled panels onto a white canvas and
// PNG-encodes it. All panels must share cellW×cellH dimensions.
func encodeFigure(rows [][]panel, cellW, cellH int) ([]byte, error) {
	cols := len(rows[0])
	width := 2*panelMargin + cols*cellW + (cols-1)*panelGap
	height := 2*panelMargin + len(rows)*(titleBarH+cellH) + (len(rows)-1)*panelGap

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for r, row := range rows {
		top := panelMargin + r*(titleBarH+cellH+panelGap)
		for c, p := range row {
			left := panelMargin + c*(cellW+panelGap)
			drawTitle(canvas, p.title, left, top, cellW)
			rect := image.Rect(left, top+titleBarH, left+cellW, top+titleBarH+cellH)
			draw.Draw(canvas, rect, p.img, p.img.Bounds().Min, draw.Src)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode figure: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTitle centers a text label in the title bar above a panel.
func drawTitle(dst *image.NRGBA, title string, left, top, cellW int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	textW := d.MeasureString(title).Ceil()
	x := left + (cellW-textW)/2
	if x < left {
		x = left
	}
	d.Dot = fixed.P(x, top+titleBarH-8)
	d.DrawString(title)
}
