/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package testimage builds small synthetic image.Stacks for use by package
// tests and by internal/searchcmd's local demo mode. The core never reads
// FITS files (spec.md §1 places FITS I/O out of scope as an external
// collaborator's responsibility); this package stands in for "a real,
// collaborator-supplied ImageStack" the same way the teacher hand-builds a
// fits.FITSImage inline rather than keeping a fixture package.
package testimage

/*****************************************************************************************************************/

import (
	"math"

	"github.com/observerly/kbmgo/pkg/image"
)

/*****************************************************************************************************************/

// BlankStack builds a count-layer stack of width x height, all pixels valid
// with unit variance and zero science flux, one exposure per day starting
// at the given base MJD.
func BlankStack(width, height, count int, baseMJD float64) (image.Stack, error) {
	layers := make([]image.Layer, count)

	for i := 0; i < count; i++ {
		n := width * height
		science := make([]float64, n)
		variance := make([]float64, n)
		mask := make([]bool, n)
		for p := 0; p < n; p++ {
			variance[p] = 1
			mask[p] = true
		}

		layer, err := image.NewLayer(width, height, science, variance, mask, baseMJD+float64(i))
		if err != nil {
			return image.Stack{}, err
		}
		layers[i] = layer
	}

	return image.NewStack(layers)
}

/*****************************************************************************************************************/

// InjectMovingSource adds a small Gaussian point source to stack, centred at
// (x0, y0) at the stack's first epoch and moving at (vx, vy) pixels/day,
// with the given peak flux and width sigma. It is additive: existing
// science values are preserved.
func InjectMovingSource(stack *image.Stack, x0, y0 int, vx, vy, flux, sigma float64) {
	if len(stack.Layers) == 0 {
		return
	}
	t0 := stack.Layers[0].MJD

	const extent = 4 // render out to 4 sigma radius

	for li := range stack.Layers {
		l := &stack.Layers[li]
		dt := l.MJD - t0

		cx := float64(x0) + vx*dt
		cy := float64(y0) + vy*dt

		radius := int(math.Ceil(extent * sigma))
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x := int(math.Round(cx)) + dx
				y := int(math.Round(cy)) + dy
				if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
					continue
				}

				fx := float64(x) - cx
				fy := float64(y) - cy
				weight := math.Exp(-(fx*fx + fy*fy) / (2 * sigma * sigma))

				idx := y*l.Width + x
				if !l.Mask[idx] {
					continue
				}
				l.Science[idx] += flux * weight
			}
		}
	}
}

/*****************************************************************************************************************/

// MaskPixel marks a single pixel invalid (and NaNs its science value) in the
// given layer, for exercising mask-aware code paths.
func MaskPixel(stack *image.Stack, layerIndex, x, y int) {
	l := &stack.Layers[layerIndex]
	idx := y*l.Width + x
	l.Mask[idx] = false
	l.Science[idx] = math.NaN()
}

/*****************************************************************************************************************/
