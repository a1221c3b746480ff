/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package search

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/observerly/kbmgo/pkg/errs"
)

/*****************************************************************************************************************/

// Warning describes an unrecognized configuration key that was ignored,
// per spec.md §6's "unknown keys must warn and be ignored".
type Warning struct {
	Key string
}

/*****************************************************************************************************************/

func (w Warning) String() string {
	return fmt.Sprintf(`key "%s" is not a valid option. It is being ignored.`, w.Key)
}

/*****************************************************************************************************************/

// Config is the immutable, by-value configuration record threaded through
// every search component, replacing the "global mutable config dictionary"
// re-architecture pointer of spec.md §9.
type Config struct {
	// Velocity and angle grid, spec.md §4.4 / §6 v_arr, ang_arr:
	VMin, VMax      float64
	VCount          int
	AngMinus        float64
	AngPlus         float64
	AngCount        int
	AverageAngle    float64
	HasAverageAngle bool

	// Per-trajectory acceptance thresholds:
	NumObs  int     // K
	LHLevel float64 // L_min
	MaxLH   float64 // L_max
	TopR    int     // trajectories retained per start pixel

	// Sigma-G clipping:
	SigmaGLimLo float64
	SigmaGLimHi float64
	GPUFilter   bool

	// Byte encoding:
	EncodePsiBytes int
	EncodePhiBytes int

	// Host/device chunking:
	ChunkSize int

	// Stamp filter, spec.md §4.7 / §6:
	DoStampFilter bool
	StampType     string
	StampRadius   int
	CenterThresh  float64
	PeakOffset    [2]float64
	MomLims       [5]float64

	// Clustering, spec.md §4.8 / §6:
	DoClustering    bool
	ClusterType     string
	Eps             float64
	ClusterFunction string
	MinSamples      int

	// Masking, spec.md §4.2 / §6:
	DoMask           bool
	MaskNumImages    int
	MaskThreshold    float64
	HasMaskThreshold bool
	MaskGrow         int
	MaskBitsDict     map[string]int
	FlagKeys         []string
	RepeatedFlagKeys []string

	// Concurrency, spec.md §5:
	Workers int

	// Optional debug rendering (ambient, see SPEC_FULL.md pkg/stamp):
	DebugStampDir string
}

/*****************************************************************************************************************/

var defaultMaskBitsDict = map[string]int{
	"BAD":                0,
	"CLIPPED":            9,
	"CR":                 3,
	"CROSSTALK":          10,
	"DETECTED":           5,
	"DETECTED_NEGATIVE":  6,
	"EDGE":               4,
	"INEXACT_PSF":        11,
	"INTRP":              2,
	"NOT_DEBLENDED":      12,
	"NO_DATA":            8,
	"REJECTED":           13,
	"SAT":                1,
	"SENSOR_EDGE":        14,
	"SUSPECT":            7,
	"UNMASKEDNAN":        15,
}

/*****************************************************************************************************************/

var defaultFlagKeys = []string{"BAD", "EDGE", "NO_DATA", "SUSPECT", "UNMASKEDNAN"}

/*****************************************************************************************************************/

// recognizedKeys is the set of configuration keys NewConfig accepts: the
// keys spec.md §6 lists plus top_r, min_samples, workers and
// debug_stamp_dir. Anything not in this set produces a Warning rather than
// an error.
var recognizedKeys = map[string]bool{
	"v_arr": true, "ang_arr": true, "average_angle": true,
	"num_obs": true, "lh_level": true, "max_lh": true,
	"sigmaG_lims": true, "gpu_filter": true,
	"encode_psi_bytes": true, "encode_phi_bytes": true,
	"chunk_size": true,
	"do_stamp_filter": true, "stamp_type": true, "stamp_radius": true,
	"center_thresh": true, "peak_offset": true, "mom_lims": true,
	"do_clustering": true, "cluster_type": true, "eps": true, "cluster_function": true,
	"do_mask": true, "mask_num_images": true, "mask_threshold": true, "mask_grow": true,
	"mask_bits_dict": true, "flag_keys": true, "repeated_flag_keys": true,
	"top_r": true, "min_samples": true, "workers": true, "debug_stamp_dir": true,
}

/*****************************************************************************************************************/

// DefaultConfig returns the recognized defaults, ported from
// original_source/src/kbmod/run_search.py's `defaults` dictionary.
func DefaultConfig() Config {
	return Config{
		VMin: 92.0, VMax: 526.0, VCount: 256,
		AngMinus: 0.20943951, AngPlus: 0.20943951, AngCount: 128, // pi/15
		NumObs:  10,
		LHLevel: 10.0,
		MaxLH:   1000.0,
		TopR:    8,

		SigmaGLimLo: 25,
		SigmaGLimHi: 75,
		GPUFilter:   false,

		EncodePsiBytes: -1,
		EncodePhiBytes: -1,

		ChunkSize: 500000,

		DoStampFilter: true,
		StampType:     "sum",
		StampRadius:   10,
		CenterThresh:  0.00,
		PeakOffset:    [2]float64{2.0, 2.0},
		MomLims:       [5]float64{35.5, 35.5, 2.0, 0.3, 0.3},

		DoClustering:    true,
		ClusterType:     "all",
		Eps:             0.03,
		ClusterFunction: "DBSCAN",
		MinSamples:      1,

		DoMask:        true,
		MaskNumImages: 2,
		MaskGrow:      10,
		MaskBitsDict:  defaultMaskBitsDict,
		FlagKeys:      defaultFlagKeys,

		Workers: 1,
	}
}

/*****************************************************************************************************************/

// NewConfig applies raw onto the recognized defaults. Unknown keys produce a
// Warning and are ignored, per spec.md §6 (scenario S6). Bad ranges or
// unknown enum values return a ConfigInvalid error.
func NewConfig(raw map[string]any) (Config, []Warning, error) {
	cfg := DefaultConfig()
	var warnings []Warning

	for key, value := range raw {
		if !recognizedKeys[key] {
			warnings = append(warnings, Warning{Key: key})
			continue
		}

		if err := applyKey(&cfg, key, value); err != nil {
			return Config{}, warnings, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, warnings, err
	}

	return cfg, warnings, nil
}

/*****************************************************************************************************************/

func applyKey(cfg *Config, key string, value any) error {
	switch key {
	case "v_arr":
		arr, ok := value.([]float64)
		if !ok || len(arr) != 3 {
			return errs.New(errs.ConfigInvalid, "v_arr must be [v_min, v_max, n_v]")
		}
		cfg.VMin, cfg.VMax, cfg.VCount = arr[0], arr[1], int(arr[2])
	case "ang_arr":
		arr, ok := value.([]float64)
		if !ok || len(arr) != 3 {
			return errs.New(errs.ConfigInvalid, "ang_arr must be [ang_minus, ang_plus, n_theta]")
		}
		cfg.AngMinus, cfg.AngPlus, cfg.AngCount = arr[0], arr[1], int(arr[2])
	case "average_angle":
		v, ok := value.(float64)
		if !ok {
			return errs.New(errs.ConfigInvalid, "average_angle must be a float")
		}
		cfg.AverageAngle, cfg.HasAverageAngle = v, true
	case "num_obs":
		v, err := toInt(value)
		if err != nil || v < 0 {
			return errs.New(errs.ConfigInvalid, "num_obs must be a non-negative integer")
		}
		cfg.NumObs = v
	case "lh_level":
		v, err := toFloat(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "lh_level must be a float")
		}
		cfg.LHLevel = v
	case "max_lh":
		v, err := toFloat(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "max_lh must be a float")
		}
		cfg.MaxLH = v
	case "sigmaG_lims":
		arr, ok := value.([]float64)
		if !ok || len(arr) != 2 {
			return errs.New(errs.ConfigInvalid, "sigmaG_lims must be [q_lo, q_hi]")
		}
		if arr[0] < 0 || arr[1] > 100 || arr[0] >= arr[1] {
			return errs.New(errs.ConfigInvalid, "sigmaG_lims must satisfy 0 <= q_lo < q_hi <= 100")
		}
		cfg.SigmaGLimLo, cfg.SigmaGLimHi = arr[0], arr[1]
	case "gpu_filter":
		v, ok := value.(bool)
		if !ok {
			return errs.New(errs.ConfigInvalid, "gpu_filter must be a bool")
		}
		cfg.GPUFilter = v
	case "encode_psi_bytes":
		v, err := toInt(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "encode_psi_bytes must be an integer")
		}
		cfg.EncodePsiBytes = v
	case "encode_phi_bytes":
		v, err := toInt(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "encode_phi_bytes must be an integer")
		}
		cfg.EncodePhiBytes = v
	case "chunk_size":
		v, err := toInt(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "chunk_size must be a positive integer")
		}
		cfg.ChunkSize = v
	case "do_stamp_filter":
		v, ok := value.(bool)
		if !ok {
			return errs.New(errs.ConfigInvalid, "do_stamp_filter must be a bool")
		}
		cfg.DoStampFilter = v
	case "stamp_type":
		v, ok := value.(string)
		if !ok {
			return errs.New(errs.ConfigInvalid, "stamp_type must be a string")
		}
		switch v {
		case "sum", "mean", "median", "cpp_median":
		default:
			return errs.New(errs.ConfigInvalid, "stamp_type must be one of sum, mean, median, cpp_median")
		}
		cfg.StampType = v
	case "stamp_radius":
		v, err := toInt(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "stamp_radius must be a positive integer")
		}
		cfg.StampRadius = v
	case "center_thresh":
		v, err := toFloat(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "center_thresh must be a float")
		}
		cfg.CenterThresh = v
	case "peak_offset":
		arr, ok := value.([]float64)
		if !ok || len(arr) != 2 {
			return errs.New(errs.ConfigInvalid, "peak_offset must be [x, y]")
		}
		cfg.PeakOffset = [2]float64{arr[0], arr[1]}
	case "mom_lims":
		arr, ok := value.([]float64)
		if !ok || len(arr) != 5 {
			return errs.New(errs.ConfigInvalid, "mom_lims must have 5 elements")
		}
		cfg.MomLims = [5]float64{arr[0], arr[1], arr[2], arr[3], arr[4]}
	case "do_clustering":
		v, ok := value.(bool)
		if !ok {
			return errs.New(errs.ConfigInvalid, "do_clustering must be a bool")
		}
		cfg.DoClustering = v
	case "cluster_type":
		v, ok := value.(string)
		if !ok {
			return errs.New(errs.ConfigInvalid, "cluster_type must be a string")
		}
		switch v {
		case "all", "position", "mid_position":
		default:
			return errs.New(errs.ConfigInvalid, "cluster_type must be one of all, position, mid_position")
		}
		cfg.ClusterType = v
	case "eps":
		v, err := toFloat(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "eps must be a positive float")
		}
		cfg.Eps = v
	case "cluster_function":
		v, ok := value.(string)
		if !ok || v != "DBSCAN" {
			return errs.New(errs.ConfigInvalid, "cluster_function must be \"DBSCAN\"")
		}
		cfg.ClusterFunction = v
	case "do_mask":
		v, ok := value.(bool)
		if !ok {
			return errs.New(errs.ConfigInvalid, "do_mask must be a bool")
		}
		cfg.DoMask = v
	case "mask_num_images":
		v, err := toInt(value)
		if err != nil || v < 0 {
			return errs.New(errs.ConfigInvalid, "mask_num_images must be a non-negative integer")
		}
		cfg.MaskNumImages = v
	case "mask_threshold":
		v, err := toFloat(value)
		if err != nil {
			return errs.New(errs.ConfigInvalid, "mask_threshold must be a float")
		}
		cfg.MaskThreshold, cfg.HasMaskThreshold = v, true
	case "mask_grow":
		v, err := toInt(value)
		if err != nil || v < 0 {
			return errs.New(errs.ConfigInvalid, "mask_grow must be a non-negative integer")
		}
		cfg.MaskGrow = v
	case "mask_bits_dict":
		v, ok := value.(map[string]int)
		if !ok {
			return errs.New(errs.ConfigInvalid, "mask_bits_dict must be a map[string]int")
		}
		cfg.MaskBitsDict = v
	case "flag_keys":
		v, ok := value.([]string)
		if !ok {
			return errs.New(errs.ConfigInvalid, "flag_keys must be a []string")
		}
		cfg.FlagKeys = v
	case "repeated_flag_keys":
		v, ok := value.([]string)
		if !ok {
			return errs.New(errs.ConfigInvalid, "repeated_flag_keys must be a []string")
		}
		cfg.RepeatedFlagKeys = v
	case "top_r":
		v, err := toInt(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "top_r must be a positive integer")
		}
		cfg.TopR = v
	case "min_samples":
		v, err := toInt(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "min_samples must be a positive integer")
		}
		cfg.MinSamples = v
	case "workers":
		v, err := toInt(value)
		if err != nil || v <= 0 {
			return errs.New(errs.ConfigInvalid, "workers must be a positive integer")
		}
		cfg.Workers = v
	case "debug_stamp_dir":
		v, ok := value.(string)
		if !ok {
			return errs.New(errs.ConfigInvalid, "debug_stamp_dir must be a string")
		}
		cfg.DebugStampDir = v
	}

	return nil
}

/*****************************************************************************************************************/

func validate(cfg Config) error {
	if cfg.VCount <= 0 || cfg.AngCount <= 0 {
		return errs.New(errs.ConfigInvalid, "v_arr and ang_arr counts must be positive")
	}
	if cfg.VMin > cfg.VMax {
		return errs.New(errs.ConfigInvalid, "v_arr min must not exceed max")
	}
	return nil
}

/*****************************************************************************************************************/

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", value)
	}
}

/*****************************************************************************************************************/

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a float, got %T", value)
	}
}

/*****************************************************************************************************************/
