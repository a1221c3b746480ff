/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package sigmag implements the sigma-G clipping primitive shared by the
// search kernel's optional in-kernel pre-filter (C6) and the post-hoc result
// filter (C7), so that spec.md §8's Equivalence property holds by
// construction: both call sites funnel through the same functions.
package sigmag

/*****************************************************************************************************************/

import (
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

/*****************************************************************************************************************/

// Coefficient resolves the closed-form relationship between the clipping
// percentiles (qLo, qHi, expressed as 0-100) and the sigma-equivalent
// coefficient c = 2 / (Φ⁻¹(qHi) − Φ⁻¹(qLo)). For Gaussian residuals the
// IQR spans Φ⁻¹(qHi) − Φ⁻¹(qLo) sigma, so median ± c*IQR is median ± 2σ,
// which retains ~95% of samples (spec.md §4.6, and the Open Question
// recorded in spec.md §9 / SPEC_FULL.md).
func Coefficient(qLo, qHi float64) float64 {
	n := distuv.Normal{Mu: 0, Sigma: 1}
	lo := n.Quantile(qLo / 100.0)
	hi := n.Quantile(qHi / 100.0)
	return 2.0 / (hi - lo)
}

/*****************************************************************************************************************/

// Clip computes the [qLo, qHi] inter-percentile range of values, derives
// bounds = median ± coeff*IQR, and returns a keep-mask aligned with values
// (true = retained), along with the resolved bounds.
func Clip(values []float64, qLo, qHi, coeff float64) (keep []bool, lo, hi float64) {
	keep = make([]bool, len(values))

	if len(values) == 0 {
		return keep, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	lowQuantile := stat.Quantile(qLo/100.0, stat.Empirical, sorted, nil)
	highQuantile := stat.Quantile(qHi/100.0, stat.Empirical, sorted, nil)
	iqr := highQuantile - lowQuantile

	lo = median - coeff*iqr
	hi = median + coeff*iqr

	for i, v := range values {
		keep[i] = v >= lo && v <= hi
	}

	return keep, lo, hi
}

/*****************************************************************************************************************/
