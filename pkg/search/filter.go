/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package search

/*****************************************************************************************************************/

import (
	"context"

	"github.com/observerly/kbmgo/pkg/psiphi"
	"github.com/observerly/kbmgo/pkg/result"
)

/*****************************************************************************************************************/

// Filter runs the C7 post-hoc sigma-G filter over l in place. It is a thin
// adapter from Config onto result.FilterParams: pkg/result cannot import
// pkg/search directly without creating an import cycle (pkg/search already
// imports pkg/result for its Run return type), so the subset of Config the
// filter actually needs is copied across the package boundary here.
func Filter(ctx context.Context, l *result.List, pairs []psiphi.Pair, dt []float64, cfg Config) error {
	return l.Filter(ctx, pairs, dt, result.FilterParams{
		NumObs:      cfg.NumObs,
		LHLevel:     cfg.LHLevel,
		SigmaGLimLo: cfg.SigmaGLimLo,
		SigmaGLimHi: cfg.SigmaGLimHi,
		ChunkSize:   cfg.ChunkSize,
		Workers:     cfg.Workers,
	})
}

/*****************************************************************************************************************/
