/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package trajectory

/*****************************************************************************************************************/

import "math"

/*****************************************************************************************************************/

// Velocity is a candidate (vx, vy) pair, in pixels per day.
type Velocity struct {
	VX float64
	VY float64
}

/*****************************************************************************************************************/

// Trajectory is a linear path (x0 + vx*t, y0 + vy*t) across a stack, along
// with its aggregate score and which observations contributed to it.
type Trajectory struct {
	X0 int
	Y0 int
	VX float64
	VY float64

	Flux       float64
	Likelihood float64
	ObsCount   int
	ObsValid   Bitset
}

/*****************************************************************************************************************/

// Generate enumerates candidate velocities by outer product of angCount
// angles spaced over [centerAngle-angMinus, centerAngle+angPlus] and vCount
// speeds spaced over [vMin, vMax], per spec.md §4.4. The set does not depend
// on start pixel and is intended to be materialized once and reused.
func Generate(centerAngle, angMinus, angPlus float64, angCount int, vMin, vMax float64, vCount int) []Velocity {
	if angCount <= 0 || vCount <= 0 {
		return nil
	}

	angles := make([]float64, angCount)
	angLo := centerAngle - angMinus
	angHi := centerAngle + angPlus
	for i := 0; i < angCount; i++ {
		if angCount == 1 {
			angles[i] = angLo
			continue
		}
		frac := float64(i) / float64(angCount-1)
		angles[i] = angLo + frac*(angHi-angLo)
	}

	speeds := make([]float64, vCount)
	for i := 0; i < vCount; i++ {
		if vCount == 1 {
			speeds[i] = vMin
			continue
		}
		frac := float64(i) / float64(vCount-1)
		speeds[i] = vMin + frac*(vMax-vMin)
	}

	out := make([]Velocity, 0, angCount*vCount)
	for _, speed := range speeds {
		for _, angle := range angles {
			out = append(out, Velocity{
				VX: speed * math.Cos(angle),
				VY: speed * math.Sin(angle),
			})
		}
	}

	return out
}

/*****************************************************************************************************************/

// roundHalfAwayFromZero implements the symmetric rounding spec.md §9 chooses
// over the prototype's truncation-toward-zero, so predictions near the image
// edges round outward consistently in both directions.
func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return math.Ceil(v - 0.5)
}

/*****************************************************************************************************************/

// PredictPosition returns the nearest-integer pixel position of a trajectory
// starting at (x0, y0) with velocity v, after dt days.
func PredictPosition(x0, y0 int, v Velocity, dt float64) (x, y int) {
	px := float64(x0) + v.VX*dt
	py := float64(y0) + v.VY*dt
	return int(roundHalfAwayFromZero(px)), int(roundHalfAwayFromZero(py))
}

/*****************************************************************************************************************/

// Less implements the tie-break total order of spec.md §4.5: likelihood
// descending, then obs_count descending, then |vx|+|vy| ascending, then
// lexicographic (x0, y0, vx, vy).
func Less(a, b Trajectory) bool {
	if a.Likelihood != b.Likelihood {
		return a.Likelihood > b.Likelihood
	}

	if a.ObsCount != b.ObsCount {
		return a.ObsCount > b.ObsCount
	}

	aSpeed := math.Abs(a.VX) + math.Abs(a.VY)
	bSpeed := math.Abs(b.VX) + math.Abs(b.VY)
	if aSpeed != bSpeed {
		return aSpeed < bSpeed
	}

	if a.X0 != b.X0 {
		return a.X0 < b.X0
	}
	if a.Y0 != b.Y0 {
		return a.Y0 < b.Y0
	}
	if a.VX != b.VX {
		return a.VX < b.VX
	}
	return a.VY < b.VY
}

/*****************************************************************************************************************/
