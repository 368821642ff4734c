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

package data

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantfolio/qf-optimize/data/database"
	"github.com/quantfolio/qf-optimize/dataframe"
)

const eodSQL = `SELECT event_date, ticker, adj_close FROM eod WHERE ticker = ANY($1) AND event_date BETWEEN $2 AND $3 ORDER BY event_date ASC, ticker ASC`

// Manager loads historical end-of-day data for a period of interest
type Manager struct {
	Begin time.Time
	End   time.Time
}

// NewManager creates a new data manager
func NewManager() *Manager {
	return &Manager{}
}

// GetAdjustedClose loads adjusted close prices for the requested tickers
// over the manager's period, one dataframe column per ticker. Dates where
// any ticker is missing a price are dropped.
func (m *Manager) GetAdjustedClose(ctx context.Context, tickers []string) (*dataframe.DataFrame, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}

	if !m.Begin.Before(m.End) {
		return nil, ErrInvalidPeriod
	}

	subLog := log.With().Strs("Tickers", tickers).Time("Begin", m.Begin).Time("End", m.End).Logger()

	rows, err := database.Pool().Query(ctx, eodSQL, tickers, m.Begin, m.End)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not query eod prices")
		return nil, err
	}
	defer rows.Close()

	colIdx := make(map[string]int, len(tickers))
	for idx, ticker := range tickers {
		colIdx[ticker] = idx
	}

	byDate := make(map[time.Time][]float64)
	dates := make([]time.Time, 0, 252)

	for rows.Next() {
		var eventDate time.Time
		var ticker string
		var adjClose float64

		if err := rows.Scan(&eventDate, &ticker, &adjClose); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not scan eod row")
			return nil, err
		}

		idx, ok := colIdx[ticker]
		if !ok {
			subLog.Warn().Str("Ticker", ticker).Msg("query returned un-requested ticker")
			continue
		}

		row, ok := byDate[eventDate]
		if !ok {
			row = make([]float64, len(tickers))
			for ii := range row {
				row[ii] = math.NaN()
			}
			byDate[eventDate] = row
			dates = append(dates, eventDate)
		}
		row[idx] = adjClose
	}

	if err := rows.Err(); err != nil {
		subLog.Error().Stack().Err(err).Msg("error while reading eod rows")
		return nil, err
	}

	if len(dates) == 0 {
		return nil, ErrNoData
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	df := &dataframe.DataFrame{
		Dates:    dates,
		ColNames: tickers,
		Vals:     make([][]float64, len(tickers)),
	}

	for idx := range tickers {
		df.Vals[idx] = make([]float64, len(dates))
		for rowIdx, dt := range dates {
			df.Vals[idx][rowIdx] = byDate[dt][idx]
		}
	}

	// remove dates where one or more tickers did not trade
	df = df.Drop(math.NaN())
	if df.Len() == 0 {
		return nil, ErrNoData
	}

	return df, nil
}

// GetReturns loads adjusted close prices for the requested tickers and
// converts them to fractional period-over-period returns. At least two
// price observations per ticker are required.
func (m *Manager) GetReturns(ctx context.Context, tickers []string) (*dataframe.DataFrame, error) {
	prices, err := m.GetAdjustedClose(ctx, tickers)
	if err != nil {
		return nil, err
	}

	if prices.Len() < 2 {
		return nil, ErrNoData
	}

	return prices.Returns(), nil
}
