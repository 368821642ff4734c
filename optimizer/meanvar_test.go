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

package optimizer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfolio/qf-optimize/optimizer"
)

var _ = Describe("When computing unconstrained mean-variance weights", func() {
	Context("with an explicit expected return vector and covariance matrix", func() {
		It("matches an independently computed μᵀΣ⁻¹", func() {
			mu := []float64{0.02, 0.05, 0.01, 0.03}
			sigma := mat.NewSymDense(4, []float64{
				0.0009, 0.0002, 0.0001, 0.0003,
				0.0002, 0.0016, 0.0002, 0.0001,
				0.0001, 0.0002, 0.0004, 0.0001,
				0.0003, 0.0001, 0.0001, 0.0025,
			})

			weights, err := optimizer.TangencyWeights(mu, sigma)
			Expect(err).To(BeNil())
			Expect(weights).To(HaveLen(4))

			// reference computed via LU solve of Σᵀx = μ rather than an
			// explicit inverse
			var ref mat.VecDense
			err = ref.SolveVec(sigma.T(), mat.NewVecDense(4, mu))
			Expect(err).To(BeNil())

			for idx, w := range weights {
				Expect(w).Should(BeNumerically("~", ref.AtVec(idx), 1e-9))
			}
		})

		It("reproduces the two asset scenario computable by hand", func() {
			mu := []float64{0.01, 0.02}
			sigma := mat.NewSymDense(2, []float64{
				0.0004, 0.0001,
				0.0001, 0.0009,
			})

			weights, err := optimizer.TangencyWeights(mu, sigma)
			Expect(err).To(BeNil())

			// det = .0004*.0009 - .0001² = 3.5e-7
			// w1 = (.01*.0009 - .02*.0001) / det = 20
			// w2 = (.02*.0004 - .01*.0001) / det = 20
			Expect(weights[0]).Should(BeNumerically("~", 20.0, 1e-9))
			Expect(weights[1]).Should(BeNumerically("~", 20.0, 1e-9))
		})

		It("returns the expected return vector unchanged for an identity covariance", func() {
			mu := []float64{0.05, 0.03, 0.04}
			sigma := mat.NewSymDense(3, []float64{
				1, 0, 0,
				0, 1, 0,
				0, 0, 1,
			})

			weights, err := optimizer.TangencyWeights(mu, sigma)
			Expect(err).To(BeNil())
			Expect(weights).To(Equal(mu))
		})

		It("reduces to expected return over variance for a single asset", func() {
			weights, err := optimizer.TangencyWeights([]float64{0.03}, mat.NewSymDense(1, []float64{0.0004}))
			Expect(err).To(BeNil())
			Expect(weights).To(HaveLen(1))
			Expect(weights[0]).Should(BeNumerically("~", 0.03/0.0004, 1e-9))
		})

		It("fails with ErrSingularMatrix for a rank-deficient covariance", func() {
			mu := []float64{0.01, 0.02}
			sigma := mat.NewSymDense(2, []float64{
				0.0004, 0.0004,
				0.0004, 0.0004,
			})

			_, err := optimizer.TangencyWeights(mu, sigma)
			Expect(err).To(MatchError(optimizer.ErrSingularMatrix))
		})

		It("fails with ErrDimensionMismatch when μ and Σ disagree", func() {
			mu := []float64{0.01, 0.02}
			sigma := mat.NewSymDense(3, []float64{
				1, 0, 0,
				0, 1, 0,
				0, 0, 1,
			})

			_, err := optimizer.TangencyWeights(mu, sigma)
			Expect(err).To(MatchError(optimizer.ErrDimensionMismatch))
		})

		It("fails with ErrNoAssets for an empty expected return vector", func() {
			_, err := optimizer.TangencyWeights([]float64{}, &mat.SymDense{})
			Expect(err).To(MatchError(optimizer.ErrNoAssets))
		})
	})

	Context("with a matrix of historical returns", func() {
		var returns *mat.Dense

		BeforeEach(func() {
			returns = mat.NewDense(6, 2, []float64{
				0.010, 0.020,
				-0.005, 0.031,
				0.021, -0.012,
				0.004, 0.009,
				-0.013, 0.024,
				0.017, 0.002,
			})
		})

		It("derives μ and Σ exactly as the named estimators do", func() {
			derived, err := optimizer.OptimalWeights(returns, nil, nil)
			Expect(err).To(BeNil())

			explicit, err := optimizer.OptimalWeights(returns,
				optimizer.ColumnMeans(returns), optimizer.SampleCovariance(returns))
			Expect(err).To(BeNil())

			Expect(derived).To(Equal(explicit))
		})

		It("permutes the weights when the asset columns are permuted", func() {
			weights, err := optimizer.OptimalWeights(returns, nil, nil)
			Expect(err).To(BeNil())

			rows, _ := returns.Dims()
			swapped := mat.NewDense(rows, 2, nil)
			swapped.SetCol(0, mat.Col(nil, 1, returns))
			swapped.SetCol(1, mat.Col(nil, 0, returns))

			swappedWeights, err := optimizer.OptimalWeights(swapped, nil, nil)
			Expect(err).To(BeNil())

			Expect(swappedWeights[0]).Should(BeNumerically("~", weights[1], 1e-12))
			Expect(swappedWeights[1]).Should(BeNumerically("~", weights[0], 1e-12))
		})

		It("fails with ErrDimensionMismatch when μ does not match the column count", func() {
			_, err := optimizer.OptimalWeights(returns, []float64{0.01, 0.02, 0.03}, nil)
			Expect(err).To(MatchError(optimizer.ErrDimensionMismatch))
		})

		It("fails with ErrDimensionMismatch when no returns matrix is given and μ or Σ is missing", func() {
			_, err := optimizer.OptimalWeights(nil, []float64{0.01, 0.02}, nil)
			Expect(err).To(MatchError(optimizer.ErrDimensionMismatch))

			_, err = optimizer.OptimalWeights(nil, nil, mat.NewSymDense(1, []float64{1}))
			Expect(err).To(MatchError(optimizer.ErrDimensionMismatch))
		})
	})
})

var _ = Describe("When estimating column moments", func() {
	Context("with a known returns matrix", func() {
		It("computes the column-wise arithmetic mean", func() {
			x := mat.NewDense(4, 2, []float64{
				0.01, 0.04,
				0.02, 0.00,
				0.03, 0.08,
				0.02, 0.04,
			})

			means := optimizer.ColumnMeans(x)
			Expect(means).To(HaveLen(2))
			Expect(means[0]).Should(BeNumerically("~", 0.02, 1e-12))
			Expect(means[1]).Should(BeNumerically("~", 0.04, 1e-12))
		})

		It("computes the unbiased sample covariance", func() {
			x := mat.NewDense(3, 2, []float64{
				0.01, 0.02,
				0.02, 0.04,
				0.03, 0.06,
			})

			cov := optimizer.SampleCovariance(x)
			Expect(cov.Symmetric()).To(Equal(2))

			// var(col0) = ((-.01)² + 0 + (.01)²) / (3-1) = 1e-4
			Expect(cov.At(0, 0)).Should(BeNumerically("~", 1e-4, 1e-12))
			Expect(cov.At(1, 1)).Should(BeNumerically("~", 4e-4, 1e-12))
			Expect(cov.At(0, 1)).Should(BeNumerically("~", 2e-4, 1e-12))
			Expect(cov.At(1, 0)).To(Equal(cov.At(0, 1)))
		})
	})
})
