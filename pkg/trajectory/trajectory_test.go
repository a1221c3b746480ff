/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package trajectory

/*****************************************************************************************************************/

import (
	"encoding/json"
	"math"
	"testing"
)

/*****************************************************************************************************************/

func TestGenerateProducesOuterProduct(t *testing.T) {
	velocities := Generate(0, math.Pi/4, math.Pi/4, 3, 1.0, 2.0, 2)

	if len(velocities) != 6 {
		t.Fatalf("expected 6 candidates, got %d", len(velocities))
	}
}

/*****************************************************************************************************************/

func TestGenerateIsIndependentOfStartPixel(t *testing.T) {
	a := Generate(0, 0.1, 0.1, 4, 1.0, 5.0, 4)
	b := Generate(0, 0.1, 0.1, 4, 1.0, 5.0, 4)

	if len(a) != len(b) {
		t.Fatalf("expected repeated calls to produce the same count, got %d and %d", len(a), len(b))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected repeated calls to be identical at index %d", i)
		}
	}
}

/*****************************************************************************************************************/

func TestPredictPositionAtZeroOffset(t *testing.T) {
	x, y := PredictPosition(10, 20, Velocity{VX: 1, VY: 0.5}, 0)
	if x != 10 || y != 20 {
		t.Fatalf("expected (10,20) at dt=0, got (%d,%d)", x, y)
	}
}

/*****************************************************************************************************************/

func TestPredictPositionRoundsHalfAwayFromZero(t *testing.T) {
	// 10 + 0.5*3 = 11.5 -> rounds away from zero to 12:
	x, _ := PredictPosition(10, 0, Velocity{VX: 0.5}, 3)
	if x != 12 {
		t.Fatalf("expected 12, got %d", x)
	}

	// -10 + (-0.5)*3 = -11.5 -> rounds away from zero to -12:
	x, _ = PredictPosition(-10, 0, Velocity{VX: -0.5}, 3)
	if x != -12 {
		t.Fatalf("expected -12, got %d", x)
	}
}

/*****************************************************************************************************************/

func TestLessOrdersByLikelihoodDescending(t *testing.T) {
	a := Trajectory{Likelihood: 10}
	b := Trajectory{Likelihood: 5}

	if !Less(a, b) {
		t.Fatal("expected higher likelihood to sort first")
	}
	if Less(b, a) {
		t.Fatal("expected lower likelihood to not sort first")
	}
}

/*****************************************************************************************************************/

func TestLessTieBreaksOnObsCountThenSpeedThenLexicographic(t *testing.T) {
	base := Trajectory{Likelihood: 10, ObsCount: 5}
	moreObs := Trajectory{Likelihood: 10, ObsCount: 8}

	if !Less(moreObs, base) {
		t.Fatal("expected higher obs_count to sort first when likelihood ties")
	}

	slow := Trajectory{Likelihood: 10, ObsCount: 5, VX: 0.1, VY: 0.1}
	fast := Trajectory{Likelihood: 10, ObsCount: 5, VX: 1.0, VY: 1.0}

	if !Less(slow, fast) {
		t.Fatal("expected lower speed to sort first when likelihood and obs_count tie")
	}

	first := Trajectory{Likelihood: 10, ObsCount: 5, X0: 1, Y0: 1}
	second := Trajectory{Likelihood: 10, ObsCount: 5, X0: 2, Y0: 1}

	if !Less(first, second) {
		t.Fatal("expected lexicographically smaller x0 to sort first")
	}
}

/*****************************************************************************************************************/

func TestBitsetPopCountTracksSetBits(t *testing.T) {
	b := NewBitset(10)

	if b.PopCount() != 10 {
		t.Fatalf("expected all 10 bits set initially, got %d", b.PopCount())
	}

	b.Clear(3)
	b.Clear(7)

	if b.PopCount() != 8 {
		t.Fatalf("expected 8 bits set after clearing 2, got %d", b.PopCount())
	}

	if b.Test(3) {
		t.Fatal("expected bit 3 to be cleared")
	}

	if !b.Test(4) {
		t.Fatal("expected bit 4 to remain set")
	}
}

/*****************************************************************************************************************/

func TestBitsetCloneIsIndependent(t *testing.T) {
	a := NewBitset(5)
	b := a.Clone()

	a.Clear(0)

	if !b.Test(0) {
		t.Fatal("expected clone to be unaffected by mutation of the original")
	}
}

/*****************************************************************************************************************/

func TestNewEmptyBitsetStartsClear(t *testing.T) {
	b := NewEmptyBitset(10)

	if b.PopCount() != 0 {
		t.Fatalf("expected no bits set, got %d", b.PopCount())
	}

	b.Set(4)
	if !b.Test(4) || b.PopCount() != 1 {
		t.Fatalf("expected exactly bit 4 set after Set(4)")
	}
}

/*****************************************************************************************************************/

func TestBitsetJSONRoundTrip(t *testing.T) {
	b := NewEmptyBitset(20)
	b.Set(2)
	b.Set(17)

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded Bitset
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if decoded.Len() != 20 || decoded.PopCount() != 2 || !decoded.Test(2) || !decoded.Test(17) {
		t.Fatalf("round-tripped bitset did not match original: %+v", decoded)
	}
}

/*****************************************************************************************************************/
