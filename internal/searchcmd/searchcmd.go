/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package searchcmd implements the "search" cobra subcommand: it wires
// together every component of the C1-C10 pipeline (pkg/psf, pkg/image,
// pkg/psiphi, pkg/search, pkg/result, pkg/stamp, pkg/cluster) behind the
// flag surface spec.md §6 names, the same way internal/solver.AstrometryCommand
// wires the plate-solving pipeline behind a flag surface.
package searchcmd

/*****************************************************************************************************************/

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/observerly/kbmgo/internal/checkpoint"
	"github.com/observerly/kbmgo/pkg/cluster"
	"github.com/observerly/kbmgo/pkg/image"
	"github.com/observerly/kbmgo/pkg/psf"
	"github.com/observerly/kbmgo/pkg/psiphi"
	"github.com/observerly/kbmgo/pkg/result"
	"github.com/observerly/kbmgo/pkg/search"
	"github.com/observerly/kbmgo/pkg/stamp"
	"github.com/observerly/kbmgo/pkg/trajectory"
)

/*****************************************************************************************************************/

var (
	InputFileLocation  string
	UseSynthetic       bool
	OutputFileLocation string

	PSFSigma float64

	VMin, VMax   float64
	VCount       int
	AngMinus     float64
	AngPlus      float64
	AngCount     int
	AverageAngle float64

	NumObs  int
	LHLevel float64
	MaxLH   float64
	TopR    int

	SigmaGLimLo float64
	SigmaGLimHi float64
	GPUFilter   bool

	ChunkSize int
	Workers   int

	EncodePsiBytes int
	EncodePhiBytes int

	DoStampFilter bool
	StampType     string
	StampRadius   int
	CenterThresh  float64
	PeakOffset    []float64
	MomLims       []float64

	DoClustering bool
	ClusterType  string
	Eps          float64
	MinSamples   int

	DoMask        bool
	MaskNumImages int
	MaskGrow      int

	DebugStampDir string

	CheckpointDB string
	ResumeRun    string
)

/*****************************************************************************************************************/

// SearchCommand runs the full shift-and-stack trajectory search over a
// synthetic or --input-supplied image stack and prints the surviving
// trajectories as JSON.
var SearchCommand = &cobra.Command{
	Use:   "search",
	Short: "search performs a shift-and-stack moving-object trajectory search over an image stack",
	Long:  "search performs a shift-and-stack moving-object trajectory search over an image stack",
	Run: func(cmd *cobra.Command, args []string) {
		if InputFileLocation == "" && !UseSynthetic {
			fmt.Println("either --input or --synthetic must be given")
			cmd.Usage()
			return
		}

		params := Params{
			InputFileLocation:  InputFileLocation,
			UseSynthetic:       UseSynthetic,
			OutputFileLocation: OutputFileLocation,

			PSFSigma: PSFSigma,

			VMin: VMin, VMax: VMax, VCount: VCount,
			AngMinus: AngMinus, AngPlus: AngPlus, AngCount: AngCount,
			AverageAngle:    AverageAngle,
			HasAverageAngle: cmd.Flags().Changed("average-angle"),

			NumObs:  NumObs,
			LHLevel: LHLevel,
			MaxLH:   MaxLH,
			TopR:    TopR,

			SigmaGLimLo: SigmaGLimLo,
			SigmaGLimHi: SigmaGLimHi,
			GPUFilter:   GPUFilter,

			ChunkSize: ChunkSize,
			Workers:   Workers,

			EncodePsiBytes: EncodePsiBytes,
			EncodePhiBytes: EncodePhiBytes,

			DoStampFilter: DoStampFilter,
			StampType:     StampType,
			StampRadius:   StampRadius,
			CenterThresh:  CenterThresh,
			PeakOffset:    PeakOffset,
			MomLims:       MomLims,

			DoClustering: DoClustering,
			ClusterType:  ClusterType,
			Eps:          Eps,
			MinSamples:   MinSamples,

			DoMask:        DoMask,
			MaskNumImages: MaskNumImages,
			MaskGrow:      MaskGrow,

			DebugStampDir: DebugStampDir,

			CheckpointDB: CheckpointDB,
			ResumeRun:    ResumeRun,
		}

		if err := RunSearch(params); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	},
}

/*****************************************************************************************************************/

func init() {
	SearchCommand.Flags().StringVarP(&InputFileLocation, "input", "i", "", "JSON stack file location on the filesystem")
	SearchCommand.Flags().BoolVar(&UseSynthetic, "synthetic", false, "run against a small built-in synthetic demo stack instead of --input")
	SearchCommand.Flags().StringVarP(&OutputFileLocation, "output", "o", "", "output file location for the resulting JSON trajectory list (default stdout)")

	SearchCommand.Flags().Float64Var(&PSFSigma, "psf-sigma", 1.4, "Gaussian PSF standard deviation, in pixels, used to build the matched filter")

	d := search.DefaultConfig()

	SearchCommand.Flags().Float64Var(&VMin, "v-min", d.VMin, "minimum candidate speed, in pixels/day")
	SearchCommand.Flags().Float64Var(&VMax, "v-max", d.VMax, "maximum candidate speed, in pixels/day")
	SearchCommand.Flags().IntVar(&VCount, "v-count", d.VCount, "number of candidate speeds sampled over [v-min, v-max]")
	SearchCommand.Flags().Float64Var(&AngMinus, "ang-minus", d.AngMinus, "radians below the average angle to search")
	SearchCommand.Flags().Float64Var(&AngPlus, "ang-plus", d.AngPlus, "radians above the average angle to search")
	SearchCommand.Flags().IntVar(&AngCount, "ang-count", d.AngCount, "number of candidate angles sampled over [average-angle-ang-minus, average-angle+ang-plus]")
	SearchCommand.Flags().Float64Var(&AverageAngle, "average-angle", 0, "centre angle (radians) for the candidate angle grid (defaults to 0 if not given)")

	SearchCommand.Flags().IntVar(&NumObs, "num-obs", d.NumObs, "minimum number of surviving observations for a trajectory to be kept")
	SearchCommand.Flags().Float64Var(&LHLevel, "lh-level", d.LHLevel, "minimum likelihood for a trajectory to be kept")
	SearchCommand.Flags().Float64Var(&MaxLH, "max-lh", d.MaxLH, "maximum likelihood, above which a trajectory is treated as a saturated artifact")
	SearchCommand.Flags().IntVar(&TopR, "top-r", d.TopR, "number of trajectories retained per start pixel")

	SearchCommand.Flags().Float64Var(&SigmaGLimLo, "sigma-g-lo", d.SigmaGLimLo, "lower percentile for sigma-G clipping")
	SearchCommand.Flags().Float64Var(&SigmaGLimHi, "sigma-g-hi", d.SigmaGLimHi, "upper percentile for sigma-G clipping")
	SearchCommand.Flags().BoolVar(&GPUFilter, "gpu-filter", d.GPUFilter, "apply the in-kernel sigma-G filter during the grid search")

	SearchCommand.Flags().IntVar(&ChunkSize, "chunk-size", d.ChunkSize, "number of trajectories filtered per chunk, with a cancellation check between chunks")
	SearchCommand.Flags().IntVar(&Workers, "workers", d.Workers, "number of goroutines used for the parallel search and filter paths")

	SearchCommand.Flags().IntVar(&EncodePsiBytes, "encode-psi-bytes", d.EncodePsiBytes, "bytes per pixel to quantize psi to (1 or 2), or -1 to leave unencoded")
	SearchCommand.Flags().IntVar(&EncodePhiBytes, "encode-phi-bytes", d.EncodePhiBytes, "bytes per pixel to quantize phi to (1 or 2), or -1 to leave unencoded")

	SearchCommand.Flags().BoolVar(&DoStampFilter, "do-stamp-filter", d.DoStampFilter, "enable the coadded postage-stamp shape filter")
	SearchCommand.Flags().StringVar(&StampType, "stamp-type", d.StampType, "stamp coaddition method: sum, mean, median, or cpp_median")
	SearchCommand.Flags().IntVar(&StampRadius, "stamp-radius", d.StampRadius, "postage stamp radius, in pixels")
	SearchCommand.Flags().Float64Var(&CenterThresh, "center-thresh", d.CenterThresh, "minimum fraction of total stamp flux required in the centre pixel")
	SearchCommand.Flags().Float64SliceVar(&PeakOffset, "peak-offset", d.PeakOffset[:], "[x, y] maximum pixel offset of the stamp's peak from its centre")
	SearchCommand.Flags().Float64SliceVar(&MomLims, "mom-lims", d.MomLims[:], "[xx, yy, x, y, xy] stamp second-moment limits")

	SearchCommand.Flags().BoolVar(&DoClustering, "do-clustering", d.DoClustering, "enable parameter-space DBSCAN deduplication")
	SearchCommand.Flags().StringVar(&ClusterType, "cluster-type", d.ClusterType, "clustering feature vector: all, position, or mid_position")
	SearchCommand.Flags().Float64Var(&Eps, "eps", d.Eps, "DBSCAN epsilon, in normalized feature space")
	SearchCommand.Flags().IntVar(&MinSamples, "min-samples", d.MinSamples, "DBSCAN minimum samples per cluster")

	SearchCommand.Flags().BoolVar(&DoMask, "do-mask", d.DoMask, "enable global-mask synthesis and mask growth ahead of the search")
	SearchCommand.Flags().IntVar(&MaskNumImages, "mask-num-images", d.MaskNumImages, "minimum number of layers a pixel must be invalid in to join the global mask")
	SearchCommand.Flags().IntVar(&MaskGrow, "mask-grow", d.MaskGrow, "Chebyshev-distance radius (pixels) to grow each layer's mask by")

	SearchCommand.Flags().StringVar(&DebugStampDir, "debug-stamp-dir", "", "if set, render a debug PNG of every surviving trajectory's coadded stamp into this directory")

	SearchCommand.Flags().StringVar(&CheckpointDB, "checkpoint-db", "", "if set, spool the final result list into this SQLite file under a fresh run id")
	SearchCommand.Flags().StringVar(&ResumeRun, "resume-run", "", "if set (with --checkpoint-db), skip the search and reload a previously spooled run id instead")
}

/*****************************************************************************************************************/

// Params carries every flag-bound value RunSearch needs, mirroring
// internal/solver.RunSolverParams's role as a plain value type handed from
// the cobra command into the actual run function.
type Params struct {
	InputFileLocation  string
	UseSynthetic       bool
	OutputFileLocation string

	PSFSigma float64

	VMin, VMax      float64
	VCount          int
	AngMinus        float64
	AngPlus         float64
	AngCount        int
	AverageAngle    float64
	HasAverageAngle bool

	NumObs  int
	LHLevel float64
	MaxLH   float64
	TopR    int

	SigmaGLimLo float64
	SigmaGLimHi float64
	GPUFilter   bool

	ChunkSize int
	Workers   int

	EncodePsiBytes int
	EncodePhiBytes int

	DoStampFilter bool
	StampType     string
	StampRadius   int
	CenterThresh  float64
	PeakOffset    []float64
	MomLims       []float64

	DoClustering bool
	ClusterType  string
	Eps          float64
	MinSamples   int

	DoMask        bool
	MaskNumImages int
	MaskGrow      int

	DebugStampDir string

	CheckpointDB string
	ResumeRun    string
}

/*****************************************************************************************************************/

// buildConfig assembles a search.Config from params via search.NewConfig's
// raw key/value map, so a single validated path handles both CLI-driven and
// programmatic configuration.
func buildConfig(params Params) (search.Config, []search.Warning, error) {
	raw := map[string]any{
		"v_arr":            []float64{params.VMin, params.VMax, float64(params.VCount)},
		"ang_arr":          []float64{params.AngMinus, params.AngPlus, float64(params.AngCount)},
		"num_obs":          params.NumObs,
		"lh_level":         params.LHLevel,
		"max_lh":           params.MaxLH,
		"top_r":            params.TopR,
		"sigmaG_lims":      []float64{params.SigmaGLimLo, params.SigmaGLimHi},
		"gpu_filter":       params.GPUFilter,
		"chunk_size":       params.ChunkSize,
		"workers":          params.Workers,
		"encode_psi_bytes": params.EncodePsiBytes,
		"encode_phi_bytes": params.EncodePhiBytes,
		"do_stamp_filter":  params.DoStampFilter,
		"stamp_type":       params.StampType,
		"stamp_radius":     params.StampRadius,
		"center_thresh":    params.CenterThresh,
		"peak_offset":      params.PeakOffset,
		"mom_lims":         params.MomLims,
		"do_clustering":    params.DoClustering,
		"cluster_type":     params.ClusterType,
		"eps":              params.Eps,
		"min_samples":      params.MinSamples,
		"do_mask":          params.DoMask,
		"mask_num_images":  params.MaskNumImages,
		"mask_grow":        params.MaskGrow,
		"debug_stamp_dir":  params.DebugStampDir,
	}

	if params.HasAverageAngle {
		raw["average_angle"] = params.AverageAngle
	}

	return search.NewConfig(raw)
}

/*****************************************************************************************************************/

// RunSearch executes the full C1-C10 pipeline against the stack named by
// params, per SPEC_FULL.md's cmd module: load/build a stack, mask it, build
// the PSF and psi/phi pairs, run the grid search, sigma-G filter, stamp
// filter, and cluster, then write the surviving trajectories out as JSON.
func RunSearch(params Params) error {
	cfg, warnings, err := buildConfig(params)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		fmt.Println("Warning:", w.String())
	}

	ctx := context.Background()

	if params.ResumeRun != "" {
		if params.CheckpointDB == "" {
			return fmt.Errorf("--resume-run requires --checkpoint-db")
		}
		store, err := checkpoint.Open(params.CheckpointDB)
		if err != nil {
			return err
		}
		resumed, _, err := store.Resume(checkpoint.RunID(params.ResumeRun))
		if err != nil {
			return err
		}
		fmt.Printf("Resumed %d trajectories from run %s\n", len(resumed.Trajectories), params.ResumeRun)
		return writeResults(resumed, params.OutputFileLocation)
	}

	var stack image.Stack
	if params.UseSynthetic {
		stack, err = syntheticDemoStack()
	} else {
		stack, err = loadStackFile(params.InputFileLocation)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Stack: %dx%d pixels, %d exposures\n", stack.Width, stack.Height, len(stack.Layers))

	if cfg.DoMask {
		globalMask := stack.GlobalMask(cfg.MaskNumImages)
		stack.ApplyGlobalMask(globalMask)
		stack.GrowMask(cfg.MaskGrow)
	}

	kernel, err := psf.NewGaussianKernel(params.PSFSigma)
	if err != nil {
		return fmt.Errorf("failed to build PSF kernel: %w", err)
	}

	pairs, err := psiphi.Build(stack, kernel)
	if err != nil {
		return fmt.Errorf("failed to build psi/phi pairs: %w", err)
	}

	if cfg.EncodePsiBytes > 0 || cfg.EncodePhiBytes > 0 {
		for i := range pairs {
			if err := pairs[i].EncodeBytes(cfg.EncodePsiBytes, cfg.EncodePhiBytes); err != nil {
				return fmt.Errorf("failed to encode psi/phi pair %d: %w", i, err)
			}
		}
	}

	dt := stack.EpochOffsets()

	averageAngle := cfg.AverageAngle
	velocities := trajectory.Generate(averageAngle, cfg.AngMinus, cfg.AngPlus, cfg.AngCount, cfg.VMin, cfg.VMax, cfg.VCount)

	fmt.Printf("Searching %d candidate velocities over %d start pixels...\n", len(velocities), stack.Width*stack.Height)

	results, err := search.Run(ctx, pairs, dt, velocities, stack.Width, stack.Height, cfg, nil)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Grid search produced %d candidate trajectories\n", len(results.Trajectories))

	if err := search.Filter(ctx, &results, pairs, dt, cfg); err != nil {
		return fmt.Errorf("sigma-G filter failed: %w", err)
	}

	fmt.Printf("After sigma-G filtering: %d trajectories\n", len(results.Trajectories))

	if cfg.DoStampFilter {
		kind, err := stamp.ParseStampKind(cfg.StampType)
		if err != nil {
			return err
		}
		if err := stamp.ApplyStampFilter(
			&results, stack.Layers, dt, cfg.StampRadius, kind, cfg.PeakOffset, cfg.MomLims, cfg.CenterThresh,
		); err != nil {
			return fmt.Errorf("stamp filter failed: %w", err)
		}
		fmt.Printf("After stamp filtering: %d trajectories\n", len(results.Trajectories))

		if params.DebugStampDir != "" {
			if err := renderDebugStamps(results, stack.Layers, dt, cfg, params.DebugStampDir); err != nil {
				return err
			}
		}
	}

	if cfg.DoClustering {
		kind, err := cluster.ParseFeatureKind(cfg.ClusterType)
		if err != nil {
			return err
		}
		vMax := math.Max(math.Abs(cfg.VMin), math.Abs(cfg.VMax))
		cluster.ApplyClustering(&results, kind, cfg.Eps, cfg.MinSamples, stack.Width, stack.Height, vMax, stack.Duration())
		fmt.Printf("After clustering: %d trajectories\n", len(results.Trajectories))
	}

	if params.CheckpointDB != "" {
		store, err := checkpoint.Open(params.CheckpointDB)
		if err != nil {
			return err
		}
		run := store.NewRun()
		if err := store.SpoolChunk(run, 0, results.Trajectories); err != nil {
			return err
		}
		fmt.Printf("Spooled run %s to %s\n", run, params.CheckpointDB)
	}

	return writeResults(results, params.OutputFileLocation)
}

/*****************************************************************************************************************/

func renderDebugStamps(l result.List, layers []image.Layer, dt []float64, cfg search.Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug stamp directory: %w", err)
	}

	kind, err := stamp.ParseStampKind(cfg.StampType)
	if err != nil {
		return err
	}

	for i, t := range l.Trajectories {
		s, err := stamp.Coadd(t, layers, dt, cfg.StampRadius, kind)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("%s/stamp-%04d.png", dir, i)
		if err := stamp.RenderDebugPNG(s, path); err != nil {
			return fmt.Errorf("failed to render debug stamp %d: %w", i, err)
		}
	}

	return nil
}

/*****************************************************************************************************************/

func writeResults(l result.List, outputPath string) error {
	encoded, err := json.MarshalIndent(l.Trajectories, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(encoded))
		return nil
	}

	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Printf("Results written to: %s\n", outputPath)
	return nil
}

/*****************************************************************************************************************/
