/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package cluster implements the C9 parameter-space deduplication step:
// many nearby (x0, y0, vx, vy) candidates typically describe the same real
// object, so surviving trajectories are grouped by proximity in feature
// space and only the best-scoring member of each group is kept.
package cluster

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

// FeatureKind selects which components of a trajectory contribute to its
// clustering feature vector, per spec.md §4.8's cluster_type.
type FeatureKind int

/*****************************************************************************************************************/

const (
	All FeatureKind = iota
	Position
	MidPosition
)

/*****************************************************************************************************************/

func ParseFeatureKind(s string) (FeatureKind, error) {
	switch s {
	case "all":
		return All, nil
	case "position":
		return Position, nil
	case "mid_position":
		return MidPosition, nil
	default:
		return 0, fmt.Errorf("cluster: unrecognized cluster_type %q", s)
	}
}

/*****************************************************************************************************************/

// FeatureVector maps a trajectory onto a normalized 4-component point. The
// components are always (x, y, vx, vy)-shaped so a single distance
// implementation covers every FeatureKind; kinds that don't use a component
// fix it at 0 on both sides of every comparison, so it never perturbs
// distance.
//
//   - All: (x0/w, y0/h, vx/vMax, vy/vMax)
//   - Position: (x0/w, y0/h, 0, 0)
//   - MidPosition: (xMid/w, yMid/h, 0, 0), where (xMid, yMid) is the
//     trajectory's predicted position at the midpoint of the stack's
//     time baseline.
func FeatureVector(t trajectory.Trajectory, kind FeatureKind, w, h int, vMax, duration float64) [4]float64 {
	if vMax == 0 {
		vMax = 1
	}
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}

	switch kind {
	case Position:
		return [4]float64{float64(t.X0) / float64(w), float64(t.Y0) / float64(h), 0, 0}
	case MidPosition:
		x, y := trajectory.PredictPosition(t.X0, t.Y0, trajectory.Velocity{VX: t.VX, VY: t.VY}, duration/2)
		return [4]float64{float64(x) / float64(w), float64(y) / float64(h), 0, 0}
	default: // All
		return [4]float64{
			float64(t.X0) / float64(w),
			float64(t.Y0) / float64(h),
			t.VX / vMax,
			t.VY / vMax,
		}
	}
}

/*****************************************************************************************************************/

// point wraps a [4]float64 feature vector so it implements
// vptree.Comparable, mirroring the teacher's quad.Quad.Distance pattern.
type point [4]float64

/*****************************************************************************************************************/

func (p point) Distance(other vptree.Comparable) float64 {
	o, ok := other.(point)
	if !ok {
		panic("cluster: incompatible type for distance calculation")
	}

	var sumSq float64
	for i := 0; i < 4; i++ {
		d := p[i] - o[i]
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}

/*****************************************************************************************************************/

// DBSCAN labels each point with a cluster id (0-based) or -1 for noise,
// using gonum's vptree for epsilon-neighborhood queries. The tree only
// exposes a nearest-neighbor query directly (same as the teacher's
// spatial.QuadMatcher.MatchQuad), so the ball query here repeatedly rebuilds
// the tree over a shrinking candidate set and calls Tree.Nearest, stopping
// once the nearest remaining candidate falls outside eps.
func DBSCAN(points [][4]float64, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited sentinel, distinct from -1 (noise)
	}

	if n == 0 {
		return labels
	}

	neighbors := func(i int) []int {
		candidates := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				candidates = append(candidates, j)
			}
		}

		var out []int

		for len(candidates) > 0 {
			remaining := make([][4]float64, len(candidates))
			for k, j := range candidates {
				remaining[k] = points[j]
			}

			idx, dist, err := NearestWithinTree(remaining, points[i])
			if err != nil || dist > eps {
				break
			}

			out = append(out, candidates[idx])
			candidates = append(candidates[:idx], candidates[idx+1:]...)
		}

		return out
	}

	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}

		neigh := neighbors(i)
		if len(neigh)+1 < minSamples {
			labels[i] = -1
			continue
		}

		labels[i] = clusterID
		queue := append([]int{}, neigh...)

		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != -2 {
				continue
			}

			labels[j] = clusterID
			jNeigh := neighbors(j)
			if len(jNeigh)+1 >= minSamples {
				queue = append(queue, jNeigh...)
			}
		}

		clusterID++
	}

	return labels
}

/*****************************************************************************************************************/

// NearestWithinTree builds a vptree over points and returns the index and
// distance of the nearest point to query. DBSCAN's neighbors closure calls
// this once per remaining candidate to expand each eps-ball, and it is also
// exposed directly for callers that just want a single nearest-neighbor
// lookup, e.g. a debugging tool asking "what's the closest surviving
// candidate to this one?"
func NearestWithinTree(points [][4]float64, query [4]float64) (index int, distance float64, err error) {
	if len(points) == 0 {
		return -1, 0, fmt.Errorf("cluster: cannot search an empty tree")
	}

	comparables := make([]vptree.Comparable, len(points))
	for i, p := range points {
		comparables[i] = point(p)
	}

	tree, err := vptree.New(comparables, 2, nil)
	if err != nil {
		return -1, 0, fmt.Errorf("cluster: failed to build vptree: %w", err)
	}

	nearest, dist := tree.Nearest(point(query))

	for i, p := range points {
		if point(p) == nearest.(point) {
			return i, dist, nil
		}
	}

	return -1, dist, nil
}

/*****************************************************************************************************************/

// ApplyClustering buckets l's trajectories by DBSCAN label in feature space
// and keeps only the highest-likelihood member of each non-noise cluster.
// Noise-labeled trajectories (-1) are kept individually: "not part of any
// duplicate cluster" is not the same as "reject".
func ApplyClustering(l *result.List, kind FeatureKind, eps float64, minSamples int, w, h int, vMax, duration float64) {
	if len(l.Trajectories) == 0 {
		return
	}

	points := make([][4]float64, len(l.Trajectories))
	for i, t := range l.Trajectories {
		points[i] = FeatureVector(t, kind, w, h, vMax, duration)
	}

	labels := DBSCAN(points, eps, minSamples)

	best := make(map[int]int) // cluster id -> index of best trajectory so far
	var kept []trajectory.Trajectory

	for i, label := range labels {
		if label == -1 {
			kept = append(kept, l.Trajectories[i])
			continue
		}

		if existing, ok := best[label]; !ok {
			best[label] = i
		} else if trajectory.Less(l.Trajectories[i], l.Trajectories[existing]) {
			best[label] = i
		}
	}

	for _, i := range best {
		kept = append(kept, l.Trajectories[i])
	}

	l.Trajectories = kept
	sort.Stable(*l)
}

/*****************************************************************************************************************/
