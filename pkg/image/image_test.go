/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package image

/*****************************************************************************************************************/

import (
	"math"
	"testing"
)

/*****************************************************************************************************************/

func flat(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

/*****************************************************************************************************************/

func flatMask(n int, valid bool) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = valid
	}
	return out
}

/*****************************************************************************************************************/

func TestNewLayerMasksScienceToNaN(t *testing.T) {
	mask := flatMask(4, true)
	mask[1] = false

	l, err := NewLayer(2, 2, flat(4, 1.0), flat(4, 1.0), mask, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !math.IsNaN(l.Science[1]) {
		t.Fatalf("expected masked pixel to be NaN, got %v", l.Science[1])
	}

	if math.IsNaN(l.Science[0]) {
		t.Fatal("expected valid pixel to remain unmasked")
	}
}

/*****************************************************************************************************************/

func TestNewLayerRejectsNonPositiveVariance(t *testing.T) {
	variance := flat(4, 1.0)
	variance[2] = 0

	l, err := NewLayer(2, 2, flat(4, 1.0), variance, flatMask(4, true), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if l.Mask[2] {
		t.Fatal("expected non-positive variance to imply an invalid pixel")
	}
}

/*****************************************************************************************************************/

func TestNewLayerRejectsDimensionMismatch(t *testing.T) {
	_, err := NewLayer(2, 2, flat(3, 1.0), flat(4, 1.0), flatMask(4, true), 0)
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

/*****************************************************************************************************************/

func TestNewStackSortsByMJDAscending(t *testing.T) {
	l1, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), flatMask(4, true), 5.0)
	l2, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), flatMask(4, true), 1.0)
	l3, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), flatMask(4, true), 3.0)

	s, err := NewStack([]Layer{l1, l2, l3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(s.Layers); i++ {
		if s.Layers[i].MJD < s.Layers[i-1].MJD {
			t.Fatalf("expected ascending mjd order, got %v", s.Layers)
		}
	}
}

/*****************************************************************************************************************/

func TestNewStackRejectsDimensionMismatch(t *testing.T) {
	l1, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), flatMask(4, true), 0)
	l2, _ := NewLayer(3, 3, flat(9, 1), flat(9, 1), flatMask(9, true), 1)

	_, err := NewStack([]Layer{l1, l2})
	if err == nil {
		t.Fatal("expected error for mismatched layer dimensions")
	}
}

/*****************************************************************************************************************/

func TestEpochOffsetsStartAtZero(t *testing.T) {
	l1, _ := NewLayer(1, 1, []float64{1}, []float64{1}, []bool{true}, 10.0)
	l2, _ := NewLayer(1, 1, []float64{1}, []float64{1}, []bool{true}, 13.5)

	s, err := NewStack([]Layer{l1, l2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dt := s.EpochOffsets()
	if dt[0] != 0 {
		t.Fatalf("expected first offset to be zero, got %v", dt[0])
	}
	if dt[1] != 3.5 {
		t.Fatalf("expected second offset to be 3.5, got %v", dt[1])
	}
}

/*****************************************************************************************************************/

func TestGlobalMaskRejectsPixelsInvalidInMinCountLayers(t *testing.T) {
	maskA := flatMask(4, true)
	maskA[0] = false

	maskB := flatMask(4, true)
	maskB[0] = false

	maskC := flatMask(4, true)

	la, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), maskA, 0)
	lb, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), maskB, 1)
	lc, _ := NewLayer(2, 2, flat(4, 1), flat(4, 1), maskC, 2)

	s, err := NewStack([]Layer{la, lb, lc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	global := s.GlobalMask(2)

	if global[0] {
		t.Fatal("expected pixel invalid in 2 layers to be globally rejected")
	}
	for p := 1; p < 4; p++ {
		if !global[p] {
			t.Fatalf("expected pixel %d to remain globally valid", p)
		}
	}
}

/*****************************************************************************************************************/

func TestApplyGlobalMaskUpdatesScienceToNaN(t *testing.T) {
	l, _ := NewLayer(2, 2, flat(4, 7), flat(4, 1), flatMask(4, true), 0)
	s, err := NewStack([]Layer{l})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mask := flatMask(4, true)
	mask[3] = false
	s.ApplyGlobalMask(mask)

	if s.Layers[0].Mask[3] {
		t.Fatal("expected pixel to be masked out")
	}
	if !math.IsNaN(s.Layers[0].Science[3]) {
		t.Fatal("expected masked pixel science to become NaN")
	}
}

/*****************************************************************************************************************/

func TestGrowMaskDilatesInvalidRegion(t *testing.T) {
	mask := flatMask(25, true)
	mask[12] = false // center of a 5x5 grid

	l, _ := NewLayer(5, 5, flat(25, 1), flat(25, 1), mask, 0)
	s, err := NewStack([]Layer{l})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.GrowMask(1)

	// All 8 neighbours of the center pixel should now be invalid too:
	neighbours := []int{6, 7, 8, 11, 13, 16, 17, 18}
	for _, p := range neighbours {
		if s.Layers[0].Mask[p] {
			t.Fatalf("expected neighbour pixel %d to be invalidated by mask growth", p)
		}
	}

	// A corner pixel, far from the invalid region, should remain valid:
	if !s.Layers[0].Mask[0] {
		t.Fatal("expected distant corner pixel to remain valid")
	}
}

/*****************************************************************************************************************/
