/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package image

/*****************************************************************************************************************/

import (
	"fmt"
	"log"
	"math"
	"sort"
)

/*****************************************************************************************************************/

// Layer represents a single exposure: a pixel grid, a validity mask, a
// per-pixel variance estimate, and an epoch (MJD). Science is NaN wherever
// Mask rejects the pixel.
type Layer struct {
	Width    int
	Height   int
	Science  []float64
	Variance []float64
	Mask     []bool // true means valid
	MJD      float64
}

/*****************************************************************************************************************/

// NewLayer constructs a Layer, enforcing that science data is NaN wherever
// the mask is invalid so that downstream consumers never need to consult
// both the science slice and the mask to know whether a pixel is usable.
func NewLayer(width, height int, science, variance []float64, mask []bool, mjd float64) (Layer, error) {
	n := width * height

	if len(science) != n || len(variance) != n || len(mask) != n {
		return Layer{}, fmt.Errorf(
			"image: dimension mismatch for %dx%d layer: science=%d variance=%d mask=%d",
			width, height, len(science), len(variance), len(mask),
		)
	}

	if math.IsNaN(mjd) || math.IsInf(mjd, 0) {
		return Layer{}, fmt.Errorf("image: mjd must be finite, got %v", mjd)
	}

	sci := make([]float64, n)
	copy(sci, science)

	for p := range mask {
		if !mask[p] || variance[p] <= 0 {
			sci[p] = math.NaN()
		}
	}

	msk := make([]bool, n)
	for p := range mask {
		msk[p] = mask[p] && variance[p] > 0
	}

	varCopy := make([]float64, n)
	copy(varCopy, variance)

	return Layer{
		Width:    width,
		Height:   height,
		Science:  sci,
		Variance: varCopy,
		Mask:     msk,
		MJD:      mjd,
	}, nil
}

/*****************************************************************************************************************/

// Stack is an ordered, MJD-ascending collection of Layers sharing a common
// (Width, Height).
type Stack struct {
	Layers []Layer
	Width  int
	Height int
}

/*****************************************************************************************************************/

// NewStack builds a Stack, sorting layers by MJD ascending and rejecting
// layers whose dimensions don't match the first layer's.
func NewStack(layers []Layer) (Stack, error) {
	if len(layers) == 0 {
		return Stack{}, fmt.Errorf("image: a stack requires at least one layer")
	}

	width := layers[0].Width
	height := layers[0].Height

	for i, l := range layers {
		if l.Width != width || l.Height != height {
			return Stack{}, fmt.Errorf(
				"image: layer %d has dimensions %dx%d, expected %dx%d", i, l.Width, l.Height, width, height,
			)
		}
	}

	sorted := make([]Layer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MJD < sorted[j].MJD })

	seen := make(map[float64]bool, len(sorted))
	for _, l := range sorted {
		if seen[l.MJD] {
			log.Printf("image: multiple layers share mjd=%v", l.MJD)
		}
		seen[l.MJD] = true
	}

	return Stack{Layers: sorted, Width: width, Height: height}, nil
}

/*****************************************************************************************************************/

// EpochOffsets returns t_i - t_0 in days for every layer in the stack.
func (s Stack) EpochOffsets() []float64 {
	dt := make([]float64, len(s.Layers))
	if len(s.Layers) == 0 {
		return dt
	}

	t0 := s.Layers[0].MJD
	for i, l := range s.Layers {
		dt[i] = l.MJD - t0
	}
	return dt
}

/*****************************************************************************************************************/

// Duration returns the span, in days, between the first and last epoch.
func (s Stack) Duration() float64 {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[len(s.Layers)-1].MJD - s.Layers[0].MJD
}

/*****************************************************************************************************************/

// GlobalMask synthesizes a pixel-wise mask that rejects any pixel invalid in
// at least minCount layers across the stack.
func (s Stack) GlobalMask(minCount int) []bool {
	n := s.Width * s.Height
	counts := make([]int, n)

	for _, l := range s.Layers {
		for p, valid := range l.Mask {
			if !valid {
				counts[p]++
			}
		}
	}

	mask := make([]bool, n)
	for p, c := range counts {
		mask[p] = c < minCount
	}

	return mask
}

/*****************************************************************************************************************/

// ApplyGlobalMask ORs the given mask into every layer's mask, re-deriving
// NaN science pixels for any pixel newly marked invalid.
func (s *Stack) ApplyGlobalMask(mask []bool) {
	for li := range s.Layers {
		l := &s.Layers[li]
		for p := range l.Mask {
			if !mask[p] && l.Mask[p] {
				l.Mask[p] = false
				l.Science[p] = math.NaN()
			}
		}
	}
}

/*****************************************************************************************************************/

// GrowMask dilates each layer's invalid region by radius pixels using
// Chebyshev (chessboard) distance.
func (s *Stack) GrowMask(radius int) {
	if radius <= 0 {
		return
	}

	for li := range s.Layers {
		l := &s.Layers[li]
		grown := make([]bool, len(l.Mask))
		copy(grown, l.Mask)

		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				if l.Mask[y*l.Width+x] {
					continue
				}
				for dy := -radius; dy <= radius; dy++ {
					ny := y + dy
					if ny < 0 || ny >= l.Height {
						continue
					}
					for dx := -radius; dx <= radius; dx++ {
						nx := x + dx
						if nx < 0 || nx >= l.Width {
							continue
						}
						grown[ny*l.Width+nx] = false
					}
				}
			}
		}

		for p := range grown {
			if !grown[p] && l.Mask[p] {
				l.Science[p] = math.NaN()
			}
		}
		l.Mask = grown
	}
}

/*****************************************************************************************************************/
