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

package dataframe

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ColMeans returns the arithmetic mean of each column
func (df *DataFrame) ColMeans() []float64 {
	means := make([]float64, len(df.Vals))
	for idx, col := range df.Vals {
		means[idx] = stat.Mean(col, nil)
	}
	return means
}

// CovarianceMatrix computes the pairwise covariance of the dataframe
// columns; entry (i, j) is the covariance of column i with column j. The
// unbiased sample estimator (N-1 normalization) is used.
func (df *DataFrame) CovarianceMatrix() *mat.SymDense {
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, df.Matrix(), nil)
	return &cov
}

// Matrix converts the dataframe values to a gonum matrix with one row per
// date and one column per asset
func (df *DataFrame) Matrix() *mat.Dense {
	m := mat.NewDense(df.Len(), df.ColCount(), nil)
	for colIdx, col := range df.Vals {
		for rowIdx, v := range col {
			m.Set(rowIdx, colIdx, v)
		}
	}
	return m
}
