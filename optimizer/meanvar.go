// Copyright 2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package optimizer computes unconstrained mean-variance portfolio weights.
package optimizer

import (
	"gonum.org/v1/gonum/mat"
)

// OptimalWeights computes the unconstrained mean-variance weight vector
// w = μᵀΣ⁻¹ for the assets in `returns` (K columns of fractional returns,
// one row per observation).
//
// When expectedReturns is nil it is derived as the column-wise arithmetic
// mean of the returns matrix. When covariance is nil it is derived as the
// column-wise sample covariance (N-1 normalization). For the derived
// covariance to be invertible the returns matrix needs at least K+1 rows;
// that is the caller's responsibility. When both expectedReturns and
// covariance are given, returns may be nil.
//
// The result is not normalized and no constraints are applied: weights may
// be negative (short) or sum to more than one (leveraged). Applying a
// budget, leverage cap, or long-only constraint is up to the caller.
//
// Fails with ErrDimensionMismatch when the input shapes disagree and
// ErrSingularMatrix when Σ cannot be inverted.
func OptimalWeights(returns mat.Matrix, expectedReturns []float64, covariance *mat.SymDense) ([]float64, error) {
	if returns == nil && (expectedReturns == nil || covariance == nil) {
		return nil, ErrDimensionMismatch
	}

	if expectedReturns == nil {
		expectedReturns = ColumnMeans(returns)
	}

	if covariance == nil {
		covariance = SampleCovariance(returns)
	}

	if returns != nil {
		if _, cols := returns.Dims(); cols != len(expectedReturns) {
			return nil, ErrDimensionMismatch
		}
	}

	return TangencyWeights(expectedReturns, covariance)
}

// TangencyWeights computes w = μᵀΣ⁻¹, the tangency portfolio direction
// before any budget or leverage constraint is applied. μ and Σ are taken
// as given; use OptimalWeights to derive them from a returns matrix.
func TangencyWeights(expectedReturns []float64, covariance *mat.SymDense) ([]float64, error) {
	k := len(expectedReturns)
	if k == 0 {
		return nil, ErrNoAssets
	}

	if covariance.Symmetric() != k {
		return nil, ErrDimensionMismatch
	}

	var inv mat.Dense
	if err := inv.Inverse(covariance); err != nil {
		return nil, ErrSingularMatrix
	}

	mu := mat.NewVecDense(k, expectedReturns)

	// w = μᵀΣ⁻¹, computed as (Σ⁻¹)ᵀμ
	var w mat.VecDense
	w.MulVec(inv.T(), mu)

	weights := make([]float64, k)
	copy(weights, w.RawVector().Data)
	return weights, nil
}
