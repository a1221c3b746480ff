/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package searchcmd

/*****************************************************************************************************************/

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

func demoParams() Params {
	return Params{
		UseSynthetic: true,
		PSFSigma:     1.4,

		VMin: 0.5, VMax: 2.5, VCount: 3,
		AngMinus: 0.3, AngPlus: 0.3, AngCount: 3,
		HasAverageAngle: true,
		AverageAngle:    -0.48805,

		NumObs:  6,
		LHLevel: 5,
		MaxLH:   1000,
		TopR:    3,

		SigmaGLimLo: 25,
		SigmaGLimHi: 75,

		ChunkSize: 1000,
		Workers:   1,

		DoStampFilter: true,
		StampType:     "sum",
		StampRadius:   5,
		CenterThresh:  0,
		PeakOffset:    []float64{4, 4},
		MomLims:       []float64{40, 40, 4, 4, 4},

		DoClustering: true,
		ClusterType:  "all",
		Eps:          0.1,
		MinSamples:   1,

		DoMask:        true,
		MaskNumImages: 2,
		MaskGrow:      0,
	}
}

/*****************************************************************************************************************/

func TestBuildConfigAppliesOverrides(t *testing.T) {
	cfg, warnings, err := buildConfig(demoParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if cfg.NumObs != 6 {
		t.Fatalf("expected NumObs=6, got %d", cfg.NumObs)
	}
	if cfg.TopR != 3 {
		t.Fatalf("expected TopR=3, got %d", cfg.TopR)
	}
	if cfg.AverageAngle != -0.48805 {
		t.Fatalf("expected AverageAngle to be applied, got %v", cfg.AverageAngle)
	}
}

/*****************************************************************************************************************/

func TestBuildConfigRejectsInvalidStampType(t *testing.T) {
	params := demoParams()
	params.StampType = "not-a-real-stamp-type"

	if _, _, err := buildConfig(params); err == nil {
		t.Fatalf("expected an error for an invalid stamp_type")
	}
}

/*****************************************************************************************************************/

func TestRunSearchSyntheticWritesJSONOutput(t *testing.T) {
	params := demoParams()
	params.OutputFileLocation = filepath.Join(t.TempDir(), "results.json")

	if err := RunSearch(params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(params.OutputFileLocation)
	if err != nil {
		t.Fatalf("expected an output file to be written: %v", err)
	}

	var trajectories []trajectory.Trajectory
	if err := json.Unmarshal(data, &trajectories); err != nil {
		t.Fatalf("expected valid JSON trajectory list, got error: %v", err)
	}
}

/*****************************************************************************************************************/

func TestRunSearchRequiresInputOrSynthetic(t *testing.T) {
	params := demoParams()
	params.UseSynthetic = false
	params.InputFileLocation = ""

	err := RunSearch(params)
	if err == nil {
		t.Fatalf("expected an error when neither --input nor --synthetic is given")
	}
}

/*****************************************************************************************************************/
