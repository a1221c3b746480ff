/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package result implements the ordered result container (C10) and the
// sigma-G post-hoc filter (C7) that mutates it.
package result

/*****************************************************************************************************************/

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/observerly/kbmgo/pkg/errs"
	"github.com/observerly/kbmgo/pkg/psiphi"
	"github.com/observerly/kbmgo/pkg/sigmag"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

// List is an ordered sequence of surviving trajectories, always kept sorted
// by trajectory.Less.
type List struct {
	Trajectories []trajectory.Trajectory
}

/*****************************************************************************************************************/

// NewList sorts the given trajectories per trajectory.Less and wraps them in
// a List.
func NewList(trajectories []trajectory.Trajectory) List {
	l := List{Trajectories: trajectories}
	sort.Stable(l)
	return l
}

/*****************************************************************************************************************/

func (l List) Len() int      { return len(l.Trajectories) }
func (l List) Swap(i, j int) { l.Trajectories[i], l.Trajectories[j] = l.Trajectories[j], l.Trajectories[i] }
func (l List) Less(i, j int) bool {
	return trajectory.Less(l.Trajectories[i], l.Trajectories[j])
}

/*****************************************************************************************************************/

// Observation is a single exposure's contribution to a trajectory's score,
// exposed so a caller can feed a known-object cross-matcher without the core
// needing to know about catalogs (see SPEC_FULL.md's OVERVIEW supplement).
type Observation struct {
	Index    int
	X, Y     int
	Psi, Phi float64
}

/*****************************************************************************************************************/

// PixelTrace returns the per-observation pixel trace for a trajectory.
func (l List) PixelTrace(t trajectory.Trajectory, pairs []psiphi.Pair, dt []float64) []Observation {
	var out []Observation

	for i := range pairs {
		if !t.ObsValid.Test(i) {
			continue
		}

		x, y := trajectory.PredictPosition(t.X0, t.Y0, trajectory.Velocity{VX: t.VX, VY: t.VY}, dt[i])
		psiValue, phiValue, ok := pairs[i].SampleAt(x, y)
		if !ok {
			continue
		}

		out = append(out, Observation{Index: i, X: x, Y: y, Psi: psiValue, Phi: phiValue})
	}

	return out
}

/*****************************************************************************************************************/

// FilterParams carries the subset of search.Config that the result filter
// needs, avoiding an import cycle between pkg/search and pkg/result (the
// search kernel calls into pkg/result to build its ResultList).
type FilterParams struct {
	NumObs      int
	LHLevel     float64
	SigmaGLimLo float64
	SigmaGLimHi float64
	ChunkSize   int
	Workers     int
}

/*****************************************************************************************************************/

// Filter implements spec.md §4.6 / C7: for each trajectory, it recomputes
// per-observation likelihood contributions, sigma-G clips them, clears
// obs_valid bits for outliers, recomputes the aggregate score, and drops
// trajectories that no longer meet the minimum-observation or minimum-
// likelihood thresholds. Trajectories are processed in chunks of
// params.ChunkSize with a cancellation check between chunks, per spec.md §5.
func (l *List) Filter(ctx context.Context, pairs []psiphi.Pair, dt []float64, params FilterParams) error {
	coeff := sigmag.Coefficient(params.SigmaGLimLo, params.SigmaGLimHi)

	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(l.Trajectories)
	}
	if chunkSize == 0 {
		chunkSize = 1
	}

	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))

	var kept []trajectory.Trajectory

	for start := 0; start < len(l.Trajectories); start += chunkSize {
		select {
		case <-ctx.Done():
			return errs.New(errs.Cancelled, "result: cancelled")
		default:
		}

		end := start + chunkSize
		if end > len(l.Trajectories) {
			end = len(l.Trajectories)
		}

		chunk := l.Trajectories[start:end]
		filtered := make([]trajectory.Trajectory, len(chunk))
		survived := make([]bool, len(chunk))

		var wg sync.WaitGroup
		for i, t := range chunk {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return errs.New(errs.Cancelled, "result: cancelled")
			}

			wg.Add(1)
			go func(i int, t trajectory.Trajectory) {
				defer wg.Done()
				defer sem.Release(1)
				if out, ok := filterOne(t, pairs, dt, coeff, params); ok {
					filtered[i], survived[i] = out, true
				}
			}(i, t)
		}
		wg.Wait()

		for i, ok := range survived {
			if ok {
				kept = append(kept, filtered[i])
			}
		}
	}

	l.Trajectories = kept
	sort.Stable(l)
	return nil
}

/*****************************************************************************************************************/

func filterOne(
	t trajectory.Trajectory,
	pairs []psiphi.Pair,
	dt []float64,
	coeff float64,
	params FilterParams,
) (trajectory.Trajectory, bool) {
	type contribution struct {
		index    int
		psi, phi float64
		ratio    float64
	}

	var contributions []contribution
	for i := range pairs {
		if !t.ObsValid.Test(i) {
			continue
		}

		x, y := trajectory.PredictPosition(t.X0, t.Y0, trajectory.Velocity{VX: t.VX, VY: t.VY}, dt[i])
		psiValue, phiValue, ok := pairs[i].SampleAt(x, y)
		if !ok {
			continue
		}

		contributions = append(contributions, contribution{
			index: i, psi: psiValue, phi: phiValue, ratio: psiValue / math.Sqrt(phiValue),
		})
	}

	if len(contributions) == 0 {
		return trajectory.Trajectory{}, false
	}

	ratios := make([]float64, len(contributions))
	for i, c := range contributions {
		ratios[i] = c.ratio
	}

	keep, _, _ := sigmag.Clip(ratios, params.SigmaGLimLo, params.SigmaGLimHi, coeff)

	obs := trajectory.NewEmptyBitset(t.ObsValid.Len())
	var sumPsi, sumPhi float64
	count := 0

	for i, c := range contributions {
		if !keep[i] {
			continue
		}
		obs.Set(c.index)
		sumPsi += c.psi
		sumPhi += c.phi
		count++
	}

	if count < params.NumObs || sumPhi <= 0 {
		return trajectory.Trajectory{}, false
	}

	likelihood := sumPsi / math.Sqrt(sumPhi)
	if likelihood < params.LHLevel {
		return trajectory.Trajectory{}, false
	}

	return trajectory.Trajectory{
		X0: t.X0, Y0: t.Y0, VX: t.VX, VY: t.VY,
		Flux:       sumPsi / sumPhi,
		Likelihood: likelihood,
		ObsCount:   count,
		ObsValid:   obs,
	}, true
}

/*****************************************************************************************************************/
