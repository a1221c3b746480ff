/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package psiphi

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"github.com/observerly/kbmgo/pkg/image"
	"github.com/observerly/kbmgo/pkg/psf"
)

/*****************************************************************************************************************/

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

/*****************************************************************************************************************/

func uniformStack(t *testing.T, width, height int, n int) image.Stack {
	t.Helper()

	layers := make([]image.Layer, n)
	for i := 0; i < n; i++ {
		size := width * height
		science := make([]float64, size)
		variance := make([]float64, size)
		mask := make([]bool, size)
		for p := 0; p < size; p++ {
			variance[p] = 1.0
			mask[p] = true
		}

		l, err := image.NewLayer(width, height, science, variance, mask, float64(i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		layers[i] = l
	}

	s, err := image.NewStack(layers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

/*****************************************************************************************************************/

func TestBuildMasksInvalidCellsToZero(t *testing.T) {
	s := uniformStack(t, 5, 5, 1)
	s.Layers[0].Mask[12] = false
	s.Layers[0].Science[12] = math.NaN()

	k, err := psf.NewKernel([]float64{0, 0, 0, 0, 1, 0, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pairs, err := Build(s, k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pairs[0].Psi[12] != 0 || pairs[0].Phi[12] != 0 {
		t.Fatalf("expected masked cell to contribute zero, got psi=%v phi=%v", pairs[0].Psi[12], pairs[0].Phi[12])
	}
}

/*****************************************************************************************************************/

func TestBuildRecoversFluxForPointSource(t *testing.T) {
	s := uniformStack(t, 11, 11, 1)

	flux := 100.0
	center := 5*11 + 5
	s.Layers[0].Science[center] = flux

	k, err := psf.NewKernel([]float64{0, 0, 0, 0, 1, 0, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pairs, err := Build(s, k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	psiValue, phiValue, ok := pairs[0].SampleAt(5, 5)
	if !ok {
		t.Fatal("expected a valid sample at the point source")
	}

	estimatedFlux := psiValue / phiValue
	if !almostEqual(estimatedFlux, flux, 1e-6) {
		t.Fatalf("expected flux estimate %v, got %v", flux, estimatedFlux)
	}
}

/*****************************************************************************************************************/

func TestSampleAtOutOfBounds(t *testing.T) {
	s := uniformStack(t, 3, 3, 1)
	k, _ := psf.NewGaussianKernel(1.0)

	pairs, err := Build(s, k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, ok := pairs[0].SampleAt(-1, 0); ok {
		t.Fatal("expected out-of-bounds sample to be rejected")
	}

	if _, _, ok := pairs[0].SampleAt(3, 0); ok {
		t.Fatal("expected out-of-bounds sample to be rejected")
	}
}

/*****************************************************************************************************************/

func TestEncodeBytesRoundTripsApproximately(t *testing.T) {
	s := uniformStack(t, 9, 9, 1)
	s.Layers[0].Science[4*9+4] = 50.0

	k, _ := psf.NewGaussianKernel(1.0)
	pairs, err := Build(s, k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	psiValue, phiValue, ok := pairs[0].SampleAt(4, 4)
	if !ok {
		t.Fatal("expected valid sample before encoding")
	}

	if err := pairs[0].EncodeBytes(2, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encodedPsi, encodedPhi, ok := pairs[0].SampleAt(4, 4)
	if !ok {
		t.Fatal("expected valid sample after encoding")
	}

	// 2-byte quantization should be accurate to within a small relative tolerance:
	if !almostEqual(encodedPsi, psiValue, math.Abs(psiValue)*0.01+1e-6) {
		t.Fatalf("expected encoded psi %v to approximate %v", encodedPsi, psiValue)
	}
	if !almostEqual(encodedPhi, phiValue, math.Abs(phiValue)*0.01+1e-6) {
		t.Fatalf("expected encoded phi %v to approximate %v", encodedPhi, phiValue)
	}
}

/*****************************************************************************************************************/
