package classifier

import (
	"image"

	"github.com/disintegration/imaging"
)

// Per-channel normalisation applied after scaling to [0,1]; maps pixels to [-1,1].
var (
	NormMean = [3]float32{0.5, 0.5, 0.5}
	NormStd  = [3]float32{0.5, 0.5, 0.5}
)

// Preprocess converts img into a single-item NCHW float32 batch of size x size.
// The alpha channel is discarded before resizing.
func Preprocess(img image.Image, size int) []float32 {
	rgb := toOpaqueNRGBA(img)
	resized := imaging.Resize(rgb, size, size, imaging.Linear)

	plane := size * size
	out := make([]float32, 3*plane)

	parallelFor(size, func(y int) {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			idx := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255.0
				out[c*plane+idx] = (v - NormMean[c]) / NormStd[c]
			}
		}
	})
	return out
}

// toOpaqueNRGBA copies img into an NRGBA image with every alpha set to 255,
// keeping the stored colour values.
func toOpaqueNRGBA(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
