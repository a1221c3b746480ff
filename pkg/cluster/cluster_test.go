/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cluster

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

func TestParseFeatureKind(t *testing.T) {
	cases := map[string]FeatureKind{"all": All, "position": Position, "mid_position": MidPosition}
	for s, want := range cases {
		got, err := ParseFeatureKind(s)
		if err != nil || got != want {
			t.Fatalf("ParseFeatureKind(%q) = %v, %v; want %v, nil", s, got, err, want)
		}
	}
	if _, err := ParseFeatureKind("bogus"); err == nil {
		t.Fatalf("expected an error for an unrecognized cluster_type")
	}
}

/*****************************************************************************************************************/

func TestFeatureVectorPositionIgnoresVelocity(t *testing.T) {
	a := trajectory.Trajectory{X0: 10, Y0: 20, VX: 5, VY: -5}
	b := trajectory.Trajectory{X0: 10, Y0: 20, VX: 500, VY: -500}

	fa := FeatureVector(a, Position, 100, 100, 1, 1)
	fb := FeatureVector(b, Position, 100, 100, 1, 1)

	if fa != fb {
		t.Fatalf("expected Position feature vectors to ignore velocity, got %v vs %v", fa, fb)
	}
}

/*****************************************************************************************************************/

func TestDBSCANGroupsNearbyPoints(t *testing.T) {
	points := [][4]float64{
		{0, 0, 0, 0},
		{0.01, 0, 0, 0},
		{0.02, 0.01, 0, 0},
		{5, 5, 0, 0},
	}

	labels := DBSCAN(points, 0.05, 2)

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Fatalf("expected the first three points in one cluster, got labels %v", labels)
	}
	if labels[3] != -1 {
		t.Fatalf("expected the isolated fourth point to be noise, got label %d", labels[3])
	}
}

/*****************************************************************************************************************/

func TestDBSCANAllNoiseWhenSparse(t *testing.T) {
	points := [][4]float64{{0, 0, 0, 0}, {10, 10, 0, 0}, {20, 20, 0, 0}}
	labels := DBSCAN(points, 0.5, 2)

	for _, l := range labels {
		if l != -1 {
			t.Fatalf("expected all points to be noise when far apart, got labels %v", labels)
		}
	}
}

/*****************************************************************************************************************/

func TestApplyClusteringKeepsBestPerCluster(t *testing.T) {
	l := result.List{Trajectories: []trajectory.Trajectory{
		{X0: 10, Y0: 10, VX: 0, VY: 0, Likelihood: 20, ObsCount: 5},
		{X0: 10, Y0: 11, VX: 0, VY: 0, Likelihood: 50, ObsCount: 5}, // same cluster, better score
		{X0: 10, Y0: 10, VX: 0.01, VY: 0, Likelihood: 15, ObsCount: 5},
		{X0: 500, Y0: 500, VX: 0, VY: 0, Likelihood: 1, ObsCount: 5}, // isolated, noise
	}}

	ApplyClustering(&l, Position, 0.02, 2, 1000, 1000, 1, 1)

	if len(l.Trajectories) != 2 {
		t.Fatalf("expected one deduplicated cluster survivor plus one noise point, got %d: %+v",
			len(l.Trajectories), l.Trajectories)
	}

	foundBest := false
	for _, tr := range l.Trajectories {
		if tr.Likelihood == 50 {
			foundBest = true
		}
	}
	if !foundBest {
		t.Fatalf("expected the highest-likelihood cluster member to survive, got %+v", l.Trajectories)
	}
}

/*****************************************************************************************************************/

func TestNearestWithinTreeFindsClosestPoint(t *testing.T) {
	points := [][4]float64{
		{0, 0, 0, 0},
		{10, 10, 0, 0},
		{1, 1, 0, 0},
	}

	idx, dist, err := NearestWithinTree(points, [4]float64{0.9, 0.9, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 2 {
		t.Fatalf("expected index 2 to be nearest, got %d", idx)
	}
	if dist <= 0 || dist > 0.2 {
		t.Fatalf("expected a small positive distance, got %v", dist)
	}
}

/*****************************************************************************************************************/

func TestNearestWithinTreeRejectsEmptySet(t *testing.T) {
	if _, _, err := NearestWithinTree(nil, [4]float64{0, 0, 0, 0}); err == nil {
		t.Fatalf("expected an error when searching an empty tree")
	}
}

/*****************************************************************************************************************/

func TestApplyClusteringNoopOnEmptyList(t *testing.T) {
	l := result.List{}
	ApplyClustering(&l, All, 0.1, 1, 100, 100, 1, 1)
	if len(l.Trajectories) != 0 {
		t.Fatalf("expected empty list to remain empty")
	}
}

/*****************************************************************************************************************/
