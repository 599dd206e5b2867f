package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PixelScale and PixelMean map 8-bit channels to roughly [-1, 1].
const (
	PixelMean  = 127.5
	PixelScale = 128.0
)

// Preprocess decodes an image (JPEG, PNG or WebP), resizes it to width x height
// with nearest-neighbour sampling and returns a CHW float tensor in RGB order.
// The media is expected to already be a cropped face.
func Preprocess(media []byte, width, height int) ([]float32, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", width, height)
	}
	src, _, err := image.Decode(bytes.NewReader(media))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	plane := width * height
	out := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := dst.PixOffset(x, y)
			i := y*width + x
			out[i] = normalizePixel(dst.Pix[o])
			out[plane+i] = normalizePixel(dst.Pix[o+1])
			out[2*plane+i] = normalizePixel(dst.Pix[o+2])
		}
	}
	return out, nil
}

func normalizePixel(p uint8) float32 {
	return (float32(p) - PixelMean) / PixelScale
}
