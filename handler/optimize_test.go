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

package handler_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/spf13/viper"

	"github.com/quantfolio/qf-optimize/common"
	"github.com/quantfolio/qf-optimize/data/database"
	"github.com/quantfolio/qf-optimize/handler"
	"github.com/quantfolio/qf-optimize/router"
)

func postOptimize(app *fiber.App, body string) *http.Response {
	req := httptest.NewRequest("POST", "/v1/optimize/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	Expect(err).To(BeNil())
	return resp
}

var _ = Describe("When calling the optimize endpoint", func() {
	var app *fiber.App

	BeforeEach(func() {
		viper.Set("cache.local_size", 100)
		viper.Set("cache.redis", false)
		common.SetupCache()

		app = fiber.New()
		router.SetupRoutes(app)
	})

	Context("with an explicit identity covariance", func() {
		It("returns the expected returns as weights", func() {
			resp := postOptimize(app, `{
				"assets": ["VFINX", "PRIDX", "VUSTX"],
				"expectedReturns": [0.05, 0.03, 0.04],
				"covariance": [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			var res handler.OptimizeResponse
			Expect(json.Unmarshal(body, &res)).To(BeNil())
			Expect(res.Assets).To(Equal([]string{"VFINX", "PRIDX", "VUSTX"}))
			Expect(res.Weights).To(Equal([]float64{0.05, 0.03, 0.04}))
		})

		It("serves repeated requests from the cache", func() {
			reqBody := `{
				"assets": ["VFINX"],
				"expectedReturns": [0.03],
				"covariance": [[0.0004]]
			}`

			resp := postOptimize(app, reqBody)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			body1, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			resp = postOptimize(app, reqBody)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			body2, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			Expect(body2).To(Equal(body1))
		})
	})

	Context("with a returns matrix and no explicit moments", func() {
		It("derives expected returns and covariance", func() {
			resp := postOptimize(app, `{
				"assets": ["VFINX", "PRIDX"],
				"returns": [
					[0.010, 0.020],
					[-0.005, 0.031],
					[0.021, -0.012],
					[0.004, 0.009],
					[-0.013, 0.024],
					[0.017, 0.002]
				]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			var res handler.OptimizeResponse
			Expect(json.Unmarshal(body, &res)).To(BeNil())
			Expect(res.Weights).To(HaveLen(2))
		})
	})

	Context("with historical returns from the database", func() {
		var dbPool pgxmock.PgxConnIface

		BeforeEach(func() {
			var err error
			dbPool, err = pgxmock.NewConn()
			Expect(err).To(BeNil())
			database.SetPool(dbPool)

			tz := common.GetTimezone()
			begin := time.Date(2021, time.January, 1, 0, 0, 0, 0, tz)
			end := time.Date(2021, time.January, 31, 0, 0, 0, 0, tz)

			day1 := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
			day2 := time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC)
			day3 := time.Date(2021, time.January, 6, 0, 0, 0, 0, time.UTC)
			day4 := time.Date(2021, time.January, 7, 0, 0, 0, 0, time.UTC)

			rows := pgxmock.NewRows([]string{"event_date", "ticker", "adj_close"}).
				AddRow(day1, "PRIDX", 50.0).
				AddRow(day1, "VFINX", 100.0).
				AddRow(day2, "PRIDX", 40.0).
				AddRow(day2, "VFINX", 110.0).
				AddRow(day3, "PRIDX", 50.0).
				AddRow(day3, "VFINX", 121.0).
				AddRow(day4, "PRIDX", 55.0).
				AddRow(day4, "VFINX", 127.05)

			dbPool.ExpectQuery("SELECT event_date, ticker, adj_close FROM eod").
				WithArgs([]string{"VFINX", "PRIDX"}, begin, end).
				WillReturnRows(rows)
		})

		It("parses the period in the reference timezone and optimizes", func() {
			req := httptest.NewRequest("GET",
				"/v1/optimize/historical?tickers=vfinx,pridx&startDate=2021-01-01&endDate=2021-01-31", nil)
			resp, err := app.Test(req)
			Expect(err).To(BeNil())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())

			var res handler.OptimizeResponse
			Expect(json.Unmarshal(body, &res)).To(BeNil())
			Expect(res.Assets).To(Equal([]string{"VFINX", "PRIDX"}))
			Expect(res.Weights).To(HaveLen(2))
		})
	})

	Context("with bad input", func() {
		It("responds 422 for a singular covariance matrix", func() {
			resp := postOptimize(app, `{
				"assets": ["VFINX", "PRIDX"],
				"expectedReturns": [0.01, 0.02],
				"covariance": [[0.0004, 0.0004], [0.0004, 0.0004]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
		})

		It("responds 400 when dimensions disagree", func() {
			resp := postOptimize(app, `{
				"assets": ["VFINX", "PRIDX"],
				"expectedReturns": [0.01, 0.02, 0.03],
				"covariance": [[1, 0], [0, 1]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("responds 400 when the asset list is empty but returns are supplied", func() {
			resp := postOptimize(app, `{
				"assets": [],
				"returns": [[0.01]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("responds 400 when the asset list is omitted but returns are supplied", func() {
			resp := postOptimize(app, `{
				"returns": [[0.010, 0.020], [0.015, 0.005]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("responds 400 for a ragged returns matrix", func() {
			resp := postOptimize(app, `{
				"assets": ["VFINX", "PRIDX"],
				"returns": [[0.01, 0.02], [0.01]]
			}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("responds 400 for a malformed body", func() {
			resp := postOptimize(app, `{not json`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})
})
