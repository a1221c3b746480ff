/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package psiphi

/*****************************************************************************************************************/

import (
	"fmt"
	"math"

	"github.com/observerly/kbmgo/pkg/image"
	"github.com/observerly/kbmgo/pkg/psf"
)

/*****************************************************************************************************************/

// Pair holds the PSF-matched-filtered ψ and φ images for a single exposure.
// Cells whose input was invalid are set to (ψ=0, φ=0) so they contribute
// nothing to any downstream sum.
type Pair struct {
	Width  int
	Height int

	Psi []float64
	Phi []float64

	Encoded  bool
	PsiBytes []byte
	PhiBytes []byte
	PsiMin   float64
	PsiMax   float64
	PhiMin   float64
	PhiMax   float64
}

/*****************************************************************************************************************/

// Build converts an ImageStack into one Pair per layer. The same kernel is
// used to filter both the science/variance term (ψ) and the inverse-variance
// term (φ, via the squared kernel), per spec.md §4.3.
func Build(stack image.Stack, kernel psf.Kernel) ([]Pair, error) {
	squared := kernel.Square()

	pairs := make([]Pair, len(stack.Layers))

	for i, layer := range stack.Layers {
		n := layer.Width * layer.Height
		sciPrime := make([]float64, n)
		invPrime := make([]float64, n)

		for p := 0; p < n; p++ {
			if !layer.Mask[p] || layer.Variance[p] <= 0 {
				continue
			}
			sciPrime[p] = layer.Science[p] / layer.Variance[p]
			invPrime[p] = 1 / layer.Variance[p]
		}

		psi, err := kernel.Convolve(sciPrime, layer.Width, layer.Height)
		if err != nil {
			return nil, fmt.Errorf("psiphi: failed to convolve psi term for layer %d: %w", i, err)
		}

		phi, err := squared.Convolve(invPrime, layer.Width, layer.Height)
		if err != nil {
			return nil, fmt.Errorf("psiphi: failed to convolve phi term for layer %d: %w", i, err)
		}

		for p := 0; p < n; p++ {
			if phi[p] < 0 {
				phi[p] = 0
			}
			if phi[p] == 0 {
				psi[p] = 0
			}
		}

		pairs[i] = Pair{
			Width:  layer.Width,
			Height: layer.Height,
			Psi:    psi,
			Phi:    phi,
		}
	}

	return pairs, nil
}

/*****************************************************************************************************************/

// EncodeBytes quantizes the ψ and/or φ images to 1 or 2 bytes per channel,
// over the linear range [min, max] observed in that channel. Passing a
// non-positive byte count for a channel leaves that channel unencoded.
func (p *Pair) EncodeBytes(psiBytes, phiBytes int) error {
	if psiBytes > 0 {
		enc, lo, hi, err := quantize(p.Psi, psiBytes)
		if err != nil {
			return fmt.Errorf("psiphi: failed to encode psi: %w", err)
		}
		p.PsiBytes, p.PsiMin, p.PsiMax = enc, lo, hi
		p.Encoded = true
	}

	if phiBytes > 0 {
		enc, lo, hi, err := quantize(p.Phi, phiBytes)
		if err != nil {
			return fmt.Errorf("psiphi: failed to encode phi: %w", err)
		}
		p.PhiBytes, p.PhiMin, p.PhiMax = enc, lo, hi
		p.Encoded = true
	}

	return nil
}

/*****************************************************************************************************************/

func quantize(values []float64, byteCount int) ([]byte, float64, float64, error) {
	if byteCount != 1 && byteCount != 2 {
		return nil, 0, 0, fmt.Errorf("psiphi: byte count must be 1 or 2, got %d", byteCount)
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	levels := math.Pow(256, float64(byteCount)) - 1

	out := make([]byte, len(values)*byteCount)
	for i, v := range values {
		var frac float64
		if span > 0 {
			frac = (v - lo) / span
		}
		level := uint32(math.Round(frac * levels))

		if byteCount == 1 {
			out[i] = byte(level)
		} else {
			out[i*2] = byte(level >> 8)
			out[i*2+1] = byte(level)
		}
	}

	return out, lo, hi, nil
}

/*****************************************************************************************************************/

func dequantize(enc []byte, index, byteCount int, lo, hi float64) float64 {
	levels := math.Pow(256, float64(byteCount)) - 1

	var level uint32
	if byteCount == 1 {
		level = uint32(enc[index])
	} else {
		level = uint32(enc[index*2])<<8 | uint32(enc[index*2+1])
	}

	if levels == 0 {
		return lo
	}

	return lo + (hi-lo)*float64(level)/levels
}

/*****************************************************************************************************************/

// SampleAt returns the (ψ, φ) values at pixel (x, y), transparently
// dequantizing when the Pair is byte-encoded. ok is false when (x, y) is out
// of bounds or φ == 0 ("no contribution", per spec.md §4.3).
func (p Pair) SampleAt(x, y int) (psiValue, phiValue float64, ok bool) {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0, 0, false
	}

	index := y*p.Width + x

	if p.Encoded {
		if len(p.PsiBytes) > 0 {
			byteCount := len(p.PsiBytes) / (p.Width * p.Height)
			psiValue = dequantize(p.PsiBytes, index, byteCount, p.PsiMin, p.PsiMax)
		} else {
			psiValue = p.Psi[index]
		}

		if len(p.PhiBytes) > 0 {
			byteCount := len(p.PhiBytes) / (p.Width * p.Height)
			phiValue = dequantize(p.PhiBytes, index, byteCount, p.PhiMin, p.PhiMax)
		} else {
			phiValue = p.Phi[index]
		}
	} else {
		psiValue = p.Psi[index]
		phiValue = p.Phi[index]
	}

	if phiValue == 0 {
		return 0, 0, false
	}

	return psiValue, phiValue, true
}

/*****************************************************************************************************************/
