package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// ImageSize is the fixed model input resolution.
const ImageSize = 256

// Frame is a preprocessed image ready for inference and display:
// W×H RGB, interleaved float32 channel values in [0,1].
type Frame struct {
	Pixels []float32
	Width  int
	Height int
}

// DecodeImage decodes uploaded bytes into an image, any registered
// format. Returns ErrInvalidImage when the bytes are not an image.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Preprocess resizes img to ImageSize×ImageSize and scales channels to
// [0,1]. Lanczos is used for every request so resampling stays
// deterministic. Alpha is dropped, grayscale expands to three channels.
func Preprocess(img image.Image) *Frame {
	resized := imaging.Resize(img, ImageSize, ImageSize, imaging.Lanczos)

	pixels := make([]float32, ImageSize*ImageSize*3)
	i := 0
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			c := resized.NRGBAAt(x, y)
			pixels[i] = float32(c.R) / 255.0
			pixels[i+1] = float32(c.G) / 255.0
			pixels[i+2] = float32(c.B) / 255.0
			i += 3
		}
	}

	return &Frame{Pixels: pixels, Width: ImageSize, Height: ImageSize}
}
