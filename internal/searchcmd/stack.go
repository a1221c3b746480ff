/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package searchcmd

/*****************************************************************************************************************/

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/observerly/kbmgo/internal/testimage"
	"github.com/observerly/kbmgo/pkg/image"
)

/*****************************************************************************************************************/

// jsonLayer is the on-disk shape of a single exposure for the --input JSON
// stack format. This format is a stand-in for real FITS I/O, which spec.md
// §1 places out of scope as an external collaborator's responsibility; it
// exists so the search command is independently runnable without a FITS
// reader wired in.
type jsonLayer struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Science  []float64 `json:"science"`
	Variance []float64 `json:"variance"`
	Mask     []bool    `json:"mask"`
	MJD      float64   `json:"mjd"`
}

/*****************************************************************************************************************/

type jsonStack struct {
	Layers []jsonLayer `json:"layers"`
}

/*****************************************************************************************************************/

// loadStackFile reads a JSON-encoded stack from path and builds an
// image.Stack from it.
func loadStackFile(path string) (image.Stack, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Stack{}, fmt.Errorf("searchcmd: failed to open input file: %w", err)
	}
	defer f.Close()

	var raw jsonStack
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return image.Stack{}, fmt.Errorf("searchcmd: failed to decode input file: %w", err)
	}

	layers := make([]image.Layer, len(raw.Layers))
	for i, l := range raw.Layers {
		layer, err := image.NewLayer(l.Width, l.Height, l.Science, l.Variance, l.Mask, l.MJD)
		if err != nil {
			return image.Stack{}, fmt.Errorf("searchcmd: layer %d: %w", i, err)
		}
		layers[i] = layer
	}

	return image.NewStack(layers)
}

/*****************************************************************************************************************/

// syntheticDemoStack builds a small built-in moving-source stack for
// --synthetic runs, so the command is exercisable without any input file at
// all (a quick "does this work" smoke test, the same role the teacher's
// sample FITS fixtures under examples/ play for the plate solver).
func syntheticDemoStack() (image.Stack, error) {
	stack, err := testimage.BlankStack(64, 64, 12, 60000)
	if err != nil {
		return image.Stack{}, fmt.Errorf("searchcmd: failed to build synthetic stack: %w", err)
	}
	testimage.InjectMovingSource(&stack, 20, 40, 1.5, -0.8, 150, 1.4)
	return stack, nil
}

/*****************************************************************************************************************/
