/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package stamp implements the C8 coadded postage-stamp filter: it builds a
// small (2r+1)x(2r+1) image centred on a trajectory's predicted path in
// every exposure, coadds it, and checks that the coadd looks like a real
// point source rather than a detector artifact or a chance noise pile-up.
package stamp

/*****************************************************************************************************************/

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/fogleman/gg"

	"github.com/observerly/kbmgo/pkg/image"
	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

// StampKind selects how per-exposure postage stamps are combined into one
// coadd, per spec.md §6's stamp_type.
type StampKind int

/*****************************************************************************************************************/

const (
	Sum StampKind = iota
	Mean
	Median
	// CppMedian is a distinct enum value from Median rather than an alias,
	// so a config that names it doesn't silently fall through to a
	// different algorithm if a future revision distinguishes them; today
	// it computes the same per-pixel median as Median.
	CppMedian
)

/*****************************************************************************************************************/

func ParseStampKind(s string) (StampKind, error) {
	switch s {
	case "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	case "cpp_median":
		return CppMedian, nil
	default:
		return 0, fmt.Errorf("stamp: unrecognized stamp_type %q", s)
	}
}

/*****************************************************************************************************************/

// Stamp is a (2*Radius+1)x(2*Radius+1) coadded postage stamp, row-major.
type Stamp struct {
	Radius int
	Pixels [][]float64
}

/*****************************************************************************************************************/

// Coadd builds the postage stamp for t by sampling the science layer (not
// the psi/phi tensor, so the stamp reflects physical flux) at the
// trajectory's predicted position in every exposure, within a radius-sized
// box, and combining the per-exposure stamps per kind.
func Coadd(
	t trajectory.Trajectory,
	layers []image.Layer,
	dt []float64,
	radius int,
	kind StampKind,
) (Stamp, error) {
	if radius <= 0 {
		return Stamp{}, fmt.Errorf("stamp: radius must be positive, got %d", radius)
	}

	side := 2*radius + 1

	var perExposure [][][]float64

	for i, layer := range layers {
		if !t.ObsValid.Test(i) {
			continue
		}

		cx, cy := trajectory.PredictPosition(t.X0, t.Y0, trajectory.Velocity{VX: t.VX, VY: t.VY}, dt[i])

		box := make([][]float64, side)
		hasValidPixel := false
		for dy := -radius; dy <= radius; dy++ {
			row := make([]float64, side)
			for dx := -radius; dx <= radius; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || x >= layer.Width || y < 0 || y >= layer.Height {
					row[dx+radius] = math.NaN()
					continue
				}
				idx := y*layer.Width + x
				if !layer.Mask[idx] {
					row[dx+radius] = math.NaN()
					continue
				}
				row[dx+radius] = layer.Science[idx]
				hasValidPixel = true
			}
			box[dy+radius] = row
		}

		if hasValidPixel {
			perExposure = append(perExposure, box)
		}
	}

	pixels := make([][]float64, side)
	for r := 0; r < side; r++ {
		pixels[r] = make([]float64, side)
		for c := 0; c < side; c++ {
			values := make([]float64, 0, len(perExposure))
			for _, box := range perExposure {
				v := box[r][c]
				if !math.IsNaN(v) {
					values = append(values, v)
				}
			}
			pixels[r][c] = combine(values, kind)
		}
	}

	return Stamp{Radius: radius, Pixels: pixels}, nil
}

/*****************************************************************************************************************/

func combine(values []float64, kind StampKind) float64 {
	if len(values) == 0 {
		return 0
	}

	switch kind {
	case Sum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case Mean:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case Median, CppMedian:
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid]
		}
		return (sorted[mid-1] + sorted[mid]) / 2
	default:
		return 0
	}
}

/*****************************************************************************************************************/

// Check implements spec.md §4.7: the coadd's brightest pixel must lie within
// peakOffset of the stamp's centre, its second moments (computed via
// gonum's stat.Moment about the stamp's own centre of mass) must fall
// within momLims, and the central pixel must carry at least
// centerThresh*total of the coadd's flux.
func Check(s Stamp, peakOffset [2]float64, momLims [5]float64, centerThresh float64) bool {
	side := len(s.Pixels)
	if side == 0 {
		return false
	}
	center := s.Radius

	var total float64
	peakX, peakY, peakV := 0, 0, math.Inf(-1)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			v := s.Pixels[y][x]
			total += v
			if v > peakV {
				peakV, peakX, peakY = v, x, y
			}
		}
	}

	if math.Abs(float64(peakX-center)) > peakOffset[0] || math.Abs(float64(peakY-center)) > peakOffset[1] {
		return false
	}

	if total <= 0 {
		return false
	}

	centerValue := s.Pixels[center][center]
	if centerValue < centerThresh*total {
		return false
	}

	xs := make([]float64, 0, side*side)
	ys := make([]float64, 0, side*side)
	weights := make([]float64, 0, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			w := s.Pixels[y][x]
			if w < 0 {
				w = 0
			}
			xs = append(xs, float64(x))
			ys = append(ys, float64(y))
			weights = append(weights, w)
		}
	}

	meanX := stat.Mean(xs, weights)
	meanY := stat.Mean(ys, weights)
	momXX := stat.Moment(2.0, xs, weights)
	momYY := stat.Moment(2.0, ys, weights)
	momXY := stat.Covariance(xs, ys, weights)

	if momXX > momLims[0] || momYY > momLims[1] {
		return false
	}
	if math.Abs(meanX-float64(center)) > momLims[2] || math.Abs(meanY-float64(center)) > momLims[3] {
		return false
	}
	if math.Abs(momXY) > momLims[4] {
		return false
	}

	return true
}

/*****************************************************************************************************************/

// ApplyStampFilter builds each surviving trajectory's coadded stamp and
// drops those that fail Check.
func ApplyStampFilter(
	l *result.List,
	layers []image.Layer,
	dt []float64,
	radius int,
	kind StampKind,
	peakOffset [2]float64,
	momLims [5]float64,
	centerThresh float64,
) error {
	var kept []trajectory.Trajectory

	for _, t := range l.Trajectories {
		s, err := Coadd(t, layers, dt, radius, kind)
		if err != nil {
			return err
		}
		if Check(s, peakOffset, momLims, centerThresh) {
			kept = append(kept, t)
		}
	}

	l.Trajectories = kept
	return nil
}

/*****************************************************************************************************************/

// RenderDebugPNG draws a stamp as a greyscale grid with a red circle marking
// the stamp's centre pixel, for ad hoc visual inspection. It is only ever called when
// Config.DebugStampDir is non-empty.
func RenderDebugPNG(s Stamp, path string) error {
	side := len(s.Pixels)
	if side == 0 {
		return fmt.Errorf("stamp: cannot render an empty stamp")
	}

	const cell = 12
	dc := gg.NewContext(side*cell, side*cell)
	dc.SetColor(color.Black)
	dc.Clear()

	lo, hi := s.Pixels[0][0], s.Pixels[0][0]
	for _, row := range s.Pixels {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			frac := (s.Pixels[y][x] - lo) / span
			dc.SetRGB(frac, frac, frac)
			dc.DrawRectangle(float64(x*cell), float64(y*cell), cell, cell)
			dc.Fill()
		}
	}

	dc.SetRGB(1, 0, 0)
	dc.DrawCircle(float64(s.Radius*cell+cell/2), float64(s.Radius*cell+cell/2), 3)
	dc.Stroke()

	return dc.SavePNG(path)
}

/*****************************************************************************************************************/
