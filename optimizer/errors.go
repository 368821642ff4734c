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

import "errors"

var (
	// ErrSingularMatrix indicates the covariance matrix is singular or too
	// ill-conditioned to invert. The caller may regularize the matrix and
	// try again; retrying with the same input always fails.
	ErrSingularMatrix = errors.New("covariance matrix is singular or ill-conditioned")

	// ErrDimensionMismatch indicates the shapes of the returns matrix, the
	// expected return vector, and the covariance matrix do not agree.
	ErrDimensionMismatch = errors.New("input dimensions do not match")

	// ErrNoAssets indicates there are no assets to optimize over.
	ErrNoAssets = errors.New("no assets")
)
