/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package search

/*****************************************************************************************************************/

import "testing"

/*****************************************************************************************************************/

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

/*****************************************************************************************************************/

func TestNewConfigAppliesOverrides(t *testing.T) {
	cfg, warnings, err := NewConfig(map[string]any{
		"num_obs": 5,
		"top_r":   3,
		"v_arr":   []float64{50, 100, 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if cfg.NumObs != 5 || cfg.TopR != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.VMin != 50 || cfg.VMax != 100 || cfg.VCount != 10 {
		t.Fatalf("v_arr override not applied: %+v", cfg)
	}
}

/*****************************************************************************************************************/

func TestNewConfigWarnsOnUnknownKey(t *testing.T) {
	_, warnings, err := NewConfig(map[string]any{"not_a_real_key": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Key != "not_a_real_key" {
		t.Fatalf("expected a single warning for the unknown key, got %v", warnings)
	}
}

/*****************************************************************************************************************/

func TestNewConfigRejectsBadSigmaGLims(t *testing.T) {
	_, _, err := NewConfig(map[string]any{"sigmaG_lims": []float64{75, 25}})
	if err == nil {
		t.Fatalf("expected an error for inverted sigmaG_lims")
	}
}

/*****************************************************************************************************************/

func TestNewConfigRejectsBadStampType(t *testing.T) {
	_, _, err := NewConfig(map[string]any{"stamp_type": "bogus"})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized stamp_type")
	}
}

/*****************************************************************************************************************/

func TestNewConfigRejectsNonPositiveTopR(t *testing.T) {
	_, _, err := NewConfig(map[string]any{"top_r": 0})
	if err == nil {
		t.Fatalf("expected an error for top_r=0")
	}
}

/*****************************************************************************************************************/

func TestNewConfigRejectsInvertedVRange(t *testing.T) {
	_, _, err := NewConfig(map[string]any{"v_arr": []float64{500, 100, 10}})
	if err == nil {
		t.Fatalf("expected an error for v_min > v_max")
	}
}

/*****************************************************************************************************************/
