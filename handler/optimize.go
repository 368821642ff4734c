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

package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfolio/qf-optimize/common"
	"github.com/quantfolio/qf-optimize/data"
	"github.com/quantfolio/qf-optimize/optimizer"
)

// OptimizeRequest is the body of POST /v1/optimize. Returns holds one row
// per observation and one column per asset, in the order of Assets.
// ExpectedReturns and Covariance are optional; when omitted they are derived
// from the returns matrix.
type OptimizeRequest struct {
	Assets          []string    `json:"assets"`
	Returns         [][]float64 `json:"returns"`
	ExpectedReturns []float64   `json:"expectedReturns"`
	Covariance      [][]float64 `json:"covariance"`
}

type OptimizeResponse struct {
	Assets  []string  `json:"assets"`
	Weights []float64 `json:"weights"`
}

// Optimize computes unconstrained mean-variance weights for an inline
// returns matrix
func Optimize(c *fiber.Ctx) error {
	subLog := log.With().Str("Endpoint", "Optimize").Logger()

	cacheKey := common.CacheKey("optimize", c.Body())
	if payload, err := common.CacheGet(cacheKey); err == nil {
		return c.Type("json").Send(payload)
	}

	var req OptimizeRequest
	if err := c.BodyParser(&req); err != nil {
		subLog.Warn().Err(err).Msg("could not parse request body")
		return fiber.ErrBadRequest
	}

	returns, err := req.returnsMatrix()
	if err != nil {
		subLog.Warn().Err(err).Msg("invalid returns matrix")
		return fiber.ErrBadRequest
	}

	covariance, err := req.covarianceMatrix()
	if err != nil {
		subLog.Warn().Err(err).Msg("invalid covariance matrix")
		return fiber.ErrBadRequest
	}

	weights, err := optimizer.OptimalWeights(returns, req.ExpectedReturns, covariance)
	switch {
	case errors.Is(err, optimizer.ErrSingularMatrix):
		subLog.Warn().Err(err).Msg("covariance matrix is singular")
		return fiber.ErrUnprocessableEntity
	case errors.Is(err, optimizer.ErrDimensionMismatch), errors.Is(err, optimizer.ErrNoAssets):
		subLog.Warn().Err(err).Msg("request dimensions do not agree")
		return fiber.ErrBadRequest
	case err != nil:
		subLog.Error().Stack().Err(err).Msg("optimization failed")
		return fiber.ErrInternalServerError
	}

	payload, err := json.Marshal(OptimizeResponse{
		Assets:  req.Assets,
		Weights: weights,
	})
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not marshal response")
		return fiber.ErrInternalServerError
	}

	if err := common.CacheSet(cacheKey, payload); err != nil {
		subLog.Warn().Err(err).Msg("could not cache response")
	}

	return c.Type("json").Send(payload)
}

// OptimizeHistorical computes unconstrained mean-variance weights from
// historical end-of-day returns for the requested tickers
func OptimizeHistorical(c *fiber.Ctx) error {
	subLog := log.With().Str("Endpoint", "OptimizeHistorical").Logger()

	tickerList := c.Query("tickers")
	if tickerList == "" {
		subLog.Warn().Msg("no tickers requested")
		return fiber.ErrBadRequest
	}

	tickers := strings.Split(strings.ToUpper(tickerList), ",")

	tz := common.GetTimezone()
	startDate, err := time.ParseInLocation("2006-01-02", c.Query("startDate", "1990-01-01"), tz)
	if err != nil {
		subLog.Warn().Err(err).Str("StartDateStr", c.Query("startDate")).Msg("cannot parse start date query parameter")
		return fiber.ErrNotAcceptable
	}

	var endDate time.Time
	endDateStr := c.Query("endDate", "now")
	if endDateStr == "now" {
		year, month, day := time.Now().In(tz).Date()
		endDate = time.Date(year, month, day, 0, 0, 0, 0, tz)
	} else {
		endDate, err = time.ParseInLocation("2006-01-02", endDateStr, tz)
		if err != nil {
			subLog.Warn().Err(err).Str("EndDateStr", endDateStr).Msg("cannot parse end date query parameter")
			return fiber.ErrNotAcceptable
		}
	}

	manager := data.NewManager()
	manager.Begin = startDate
	manager.End = endDate

	returns, err := manager.GetReturns(context.Background(), tickers)
	switch {
	case errors.Is(err, data.ErrNoTickers), errors.Is(err, data.ErrInvalidPeriod):
		subLog.Warn().Err(err).Strs("Tickers", tickers).Msg("invalid request")
		return fiber.ErrBadRequest
	case errors.Is(err, data.ErrNoData):
		subLog.Warn().Err(err).Strs("Tickers", tickers).Msg("no usable data for request")
		return fiber.ErrNotFound
	case err != nil:
		subLog.Error().Stack().Err(err).Msg("could not load returns")
		return fiber.ErrInternalServerError
	}

	weights, err := optimizer.OptimalWeights(returns.Matrix(), nil, nil)
	switch {
	case errors.Is(err, optimizer.ErrSingularMatrix):
		subLog.Warn().Err(err).Strs("Tickers", tickers).Msg("covariance matrix is singular")
		return fiber.ErrUnprocessableEntity
	case err != nil:
		subLog.Error().Stack().Err(err).Msg("optimization failed")
		return fiber.ErrInternalServerError
	}

	return c.JSON(OptimizeResponse{
		Assets:  returns.ColNames,
		Weights: weights,
	})
}

func (req *OptimizeRequest) returnsMatrix() (mat.Matrix, error) {
	if len(req.Returns) == 0 {
		return nil, nil
	}

	// a zero column count would panic inside gonum before the per-row
	// checks run
	k := len(req.Assets)
	if k == 0 {
		return nil, optimizer.ErrDimensionMismatch
	}

	m := mat.NewDense(len(req.Returns), k, nil)
	for rowIdx, row := range req.Returns {
		if len(row) != k {
			return nil, optimizer.ErrDimensionMismatch
		}
		m.SetRow(rowIdx, row)
	}
	return m, nil
}

func (req *OptimizeRequest) covarianceMatrix() (*mat.SymDense, error) {
	if len(req.Covariance) == 0 {
		return nil, nil
	}

	k := len(req.Covariance)
	flat := make([]float64, 0, k*k)
	for _, row := range req.Covariance {
		if len(row) != k {
			return nil, optimizer.ErrDimensionMismatch
		}
		flat = append(flat, row...)
	}
	return mat.NewSymDense(k, flat), nil
}
