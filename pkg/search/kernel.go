/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package search implements the C6 grid-search kernel: for every start pixel
// and every candidate velocity, it samples the ψ/φ tensor along the
// predicted trajectory and keeps the best R trajectories per pixel.
package search

/*****************************************************************************************************************/

import (
	"container/heap"
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/observerly/kbmgo/pkg/corrector"
	"github.com/observerly/kbmgo/pkg/errs"
	"github.com/observerly/kbmgo/pkg/psiphi"
	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/sigmag"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

// Run executes the full C6 grid search over every start pixel (x0, y0) in a
// width x height image and every candidate velocity, per spec.md §4.5.
func Run(
	ctx context.Context,
	pairs []psiphi.Pair,
	dt []float64,
	velocities []trajectory.Velocity,
	width, height int,
	cfg Config,
	corr corrector.Corrector,
) (result.List, error) {
	if len(pairs) != len(dt) {
		return result.List{}, errs.New(errs.InputInconsistent, "search: %d psi/phi pairs but %d epoch offsets", len(pairs), len(dt))
	}

	if corr == nil {
		corr = corrector.Identity{}
	}

	sigmaCoeff := sigmag.Coefficient(cfg.SigmaGLimLo, cfg.SigmaGLimHi)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var trajectories []trajectory.Trajectory
	var err error

	if workers == 1 {
		trajectories, err = runSerial(ctx, pairs, dt, velocities, width, height, cfg, corr, sigmaCoeff)
	} else {
		trajectories, err = runParallel(ctx, pairs, dt, velocities, width, height, cfg, corr, sigmaCoeff, workers)
	}

	if err != nil {
		return result.List{}, err
	}

	return result.NewList(trajectories), nil
}

/*****************************************************************************************************************/

// runSerial is the allocation-light, single-goroutine reference path that
// must produce bit-identical scores to runParallel for the same inputs, per
// spec.md §4.5.
func runSerial(
	ctx context.Context,
	pairs []psiphi.Pair,
	dt []float64,
	velocities []trajectory.Velocity,
	width, height int,
	cfg Config,
	corr corrector.Corrector,
	sigmaCoeff float64,
) ([]trajectory.Trajectory, error) {
	var out []trajectory.Trajectory

	for y0 := 0; y0 < height; y0++ {
		select {
		case <-ctx.Done():
			return nil, errs.New(errs.Cancelled, "search: cancelled")
		default:
		}

		for x0 := 0; x0 < width; x0++ {
			best := searchPixel(x0, y0, pairs, dt, velocities, cfg, corr, sigmaCoeff)
			out = append(out, best...)
		}
	}

	return out, nil
}

/*****************************************************************************************************************/

// runParallel fans work out one goroutine per row of start pixels, per
// spec.md §5's CPU-fallback scheduling model.
func runParallel(
	ctx context.Context,
	pairs []psiphi.Pair,
	dt []float64,
	velocities []trajectory.Velocity,
	width, height int,
	cfg Config,
	corr corrector.Corrector,
	sigmaCoeff float64,
	workers int,
) ([]trajectory.Trajectory, error) {
	rows := make([][]trajectory.Trajectory, height)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for y0 := 0; y0 < height; y0++ {
		y0 := y0
		group.Go(func() error {
			select {
			case <-groupCtx.Done():
				return errs.New(errs.Cancelled, "search: cancelled")
			default:
			}

			var rowOut []trajectory.Trajectory
			for x0 := 0; x0 < width; x0++ {
				best := searchPixel(x0, y0, pairs, dt, velocities, cfg, corr, sigmaCoeff)
				rowOut = append(rowOut, best...)
			}
			rows[y0] = rowOut
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []trajectory.Trajectory
	for _, row := range rows {
		out = append(out, row...)
	}
	return out, nil
}

/*****************************************************************************************************************/

// searchPixel scores every candidate velocity for a single start pixel and
// returns its top-R surviving trajectories.
func searchPixel(
	x0, y0 int,
	pairs []psiphi.Pair,
	dt []float64,
	velocities []trajectory.Velocity,
	cfg Config,
	corr corrector.Corrector,
	sigmaCoeff float64,
) []trajectory.Trajectory {
	h := &trajectoryHeap{}

	for _, v := range velocities {
		t, ok := scoreTrajectory(x0, y0, v, pairs, dt, cfg, corr, sigmaCoeff)
		if !ok {
			continue
		}

		if h.Len() < cfg.TopR {
			heap.Push(h, t)
		} else if len(h.items) > 0 && trajectory.Less(t, h.items[0]) {
			// h.items[0] is the current worst-by-reverse-Less top, see heap.go:
			heap.Pop(h)
			heap.Push(h, t)
		}
	}

	out := make([]trajectory.Trajectory, len(h.items))
	copy(out, h.items)
	return out
}

/*****************************************************************************************************************/

// scoreTrajectory implements spec.md §4.5's inner loop for a single
// (x0, y0, vx, vy) candidate.
func scoreTrajectory(
	x0, y0 int,
	v trajectory.Velocity,
	pairs []psiphi.Pair,
	dt []float64,
	cfg Config,
	corr corrector.Corrector,
	sigmaCoeff float64,
) (trajectory.Trajectory, bool) {
	n := len(pairs)
	obs := trajectory.NewEmptyBitset(n)

	type sample struct {
		index    int
		psi, phi float64
	}
	samples := make([]sample, 0, n)

	for i := 0; i < n; i++ {
		px := float64(x0) + v.VX*dt[i]
		py := float64(y0) + v.VY*dt[i]
		px, py = corr.Correct(i, px, py)

		x := int(roundHalfAwayFromZero(px))
		y := int(roundHalfAwayFromZero(py))

		psiValue, phiValue, ok := pairs[i].SampleAt(x, y)
		if !ok {
			continue
		}

		samples = append(samples, sample{index: i, psi: psiValue, phi: phiValue})
	}

	if cfg.GPUFilter && len(samples) > 0 {
		ratios := make([]float64, len(samples))
		for i, s := range samples {
			ratios[i] = s.psi / s.phi
		}
		keep, _, _ := sigmag.Clip(ratios, cfg.SigmaGLimLo, cfg.SigmaGLimHi, sigmaCoeff)

		filtered := samples[:0:0]
		for i, s := range samples {
			if keep[i] {
				filtered = append(filtered, s)
			}
		}
		samples = filtered
	}

	psiValues := make([]float64, len(samples))
	phiValues := make([]float64, len(samples))
	for i, s := range samples {
		psiValues[i] = s.psi
		phiValues[i] = s.phi
		obs.Set(s.index)
	}

	// samples is already in ascending exposure-index order, so floats.Sum
	// gives the fixed reduction order spec.md §5 requires for serial and
	// parallel paths to agree bit-for-bit.
	sumPsi := floats.Sum(psiValues)
	sumPhi := floats.Sum(phiValues)

	if len(samples) < cfg.NumObs || sumPhi <= 0 {
		return trajectory.Trajectory{}, false
	}

	likelihood := sumPsi / math.Sqrt(sumPhi)
	if likelihood <= 0 || likelihood > cfg.MaxLH {
		return trajectory.Trajectory{}, false
	}

	return trajectory.Trajectory{
		X0:         x0,
		Y0:         y0,
		VX:         v.VX,
		VY:         v.VY,
		Flux:       sumPsi / sumPhi,
		Likelihood: likelihood,
		ObsCount:   len(samples),
		ObsValid:   obs,
	}, true
}

/*****************************************************************************************************************/

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return math.Ceil(v - 0.5)
}

/*****************************************************************************************************************/
