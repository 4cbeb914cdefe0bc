package service

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidFrame(v float32) *Frame {
	pixels := make([]float32, ImageSize*ImageSize*3)
	for i := range pixels {
		pixels[i] = v
	}
	return &Frame{Pixels: pixels, Width: ImageSize, Height: ImageSize}
}

func stripedMask() []int {
	mask := make([]int, ImageSize*ImageSize)
	for i := range mask {
		mask[i] = (i / ImageSize) % len(Palette)
	}
	return mask
}

func TestMaskImageUsesPaletteExactly(t *testing.T) {
	mask := stripedMask()
	img := MaskImage(mask, ImageSize, ImageSize)

	for y := 0; y < ImageSize; y += 17 {
		for x := 0; x < ImageSize; x += 13 {
			want := Palette[mask[y*ImageSize+x]]
			require.Equal(t, want, img.NRGBAAt(x, y))
		}
	}
}

func TestMaskImageClampsOutOfRange(t *testing.T) {
	mask := make([]int, ImageSize*ImageSize)
	mask[0] = 99
	mask[1] = -5

	img := MaskImage(mask, ImageSize, ImageSize)
	require.Equal(t, Palette[len(Palette)-1], img.NRGBAAt(0, 0))
	require.Equal(t, Palette[0], img.NRGBAAt(1, 0))
}

func TestOverlayImageBlendsAtHalfOpacity(t *testing.T) {
	frame := solidFrame(0) // black original
	mask := make([]int, ImageSize*ImageSize)
	for i := range mask {
		mask[i] = 2 // oil, pure red
	}

	img := OverlayImage(frame, mask)
	require.Equal(t, color.NRGBA{R: 128, G: 0, B: 0, A: 255}, img.NRGBAAt(10, 10))
}

func TestRenderPanelsDeterministic(t *testing.T) {
	frame := solidFrame(0.5)
	mask := stripedMask()

	first, err := RenderPanels(frame, mask, "UNet")
	require.NoError(t, err)
	second, err := RenderPanels(frame, mask, "UNet")
	require.NoError(t, err)

	require.True(t, bytes.Equal(first, second), "same inputs must render byte-identical output")
}

func TestRenderPanelsOutOfRangeMask(t *testing.T) {
	frame := solidFrame(0.2)
	mask := make([]int, ImageSize*ImageSize)
	for i := range mask {
		mask[i] = 99
	}

	data, err := RenderPanels(frame, mask, "UNet")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.False(t, img.Bounds().Empty())
}

func TestRenderGridDimensions(t *testing.T) {
	frame := solidFrame(0.3)
	mask := stripedMask()

	single, err := RenderPanels(frame, mask, "UNet")
	require.NoError(t, err)
	grid, err := RenderGrid(frame, mask, "UNet", mask, "DeepLabV3+")
	require.NoError(t, err)

	singleImg, err := png.Decode(bytes.NewReader(single))
	require.NoError(t, err)
	gridImg, err := png.Decode(bytes.NewReader(grid))
	require.NoError(t, err)

	require.Equal(t, singleImg.Bounds().Dx(), gridImg.Bounds().Dx())
	require.Greater(t, gridImg.Bounds().Dy(), singleImg.Bounds().Dy())
}
