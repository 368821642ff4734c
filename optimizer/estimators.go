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

package optimizer

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ColumnMeans returns the arithmetic mean of each column of x
func ColumnMeans(x mat.Matrix) []float64 {
	rows, cols := x.Dims()
	means := make([]float64, cols)
	col := make([]float64, rows)
	for idx := range means {
		mat.Col(col, idx, x)
		means[idx] = stat.Mean(col, nil)
	}
	return means
}

// SampleCovariance returns the pairwise covariance of the columns of x
// using the unbiased sample estimator (N-1 normalization)
func SampleCovariance(x mat.Matrix) *mat.SymDense {
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	return &cov
}
