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

package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfolio/qf-optimize/common"
	"github.com/quantfolio/qf-optimize/data"
	"github.com/quantfolio/qf-optimize/data/database"
	"github.com/quantfolio/qf-optimize/dataframe"
	"github.com/quantfolio/qf-optimize/optimizer"
)

var (
	optimizeCmdCSV       string
	optimizeCmdTickers   string
	optimizeCmdBegin     string
	optimizeCmdEnd       string
	optimizeCmdNormalize bool
)

func init() {
	optimizeCmd.Flags().StringVar(&optimizeCmdCSV, "csv", "", "CSV file of fractional returns; header row holds asset names")
	optimizeCmd.Flags().StringVar(&optimizeCmdTickers, "tickers", "", "Comma separated list of tickers to load from the database")
	optimizeCmd.Flags().StringVar(&optimizeCmdBegin, "begin", "1990-01-01", "Start of the historical period (YYYY-MM-DD)")
	optimizeCmd.Flags().StringVar(&optimizeCmdEnd, "end", "now", "End of the historical period (YYYY-MM-DD or `now`)")
	optimizeCmd.Flags().BoolVar(&optimizeCmdNormalize, "normalize", false, "Scale weights so they sum to 1")

	rootCmd.AddCommand(optimizeCmd)
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compute unconstrained mean-variance portfolio weights",
	Long: `Compute the unconstrained mean-variance weight vector w = μᵀΣ⁻¹ for a
set of assets. Returns are read from a CSV file or derived from historical
end-of-day prices in the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		var assets []string
		var returns mat.Matrix

		switch {
		case optimizeCmdCSV != "":
			var err error
			assets, returns, err = readReturnsCSV(optimizeCmdCSV)
			if err != nil {
				log.Fatal().Err(err).Str("CsvFn", optimizeCmdCSV).Msg("could not read returns from csv")
			}
		case optimizeCmdTickers != "":
			df := loadHistoricalReturns()
			assets = df.ColNames
			returns = df.Matrix()
		default:
			log.Fatal().Msg("one of --csv or --tickers must be specified")
		}

		weights, err := optimizer.OptimalWeights(returns, nil, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("optimization failed")
		}

		if optimizeCmdNormalize {
			sum := floats.Sum(weights)
			if sum != 0 {
				floats.Scale(1/sum, weights)
			}
		}

		printWeights(assets, weights)
	},
}

func loadHistoricalReturns() *dataframe.DataFrame {
	tz := common.GetTimezone()
	begin, err := time.ParseInLocation("2006-01-02", optimizeCmdBegin, tz)
	if err != nil {
		log.Fatal().Err(err).Str("Begin", optimizeCmdBegin).Msg("could not parse begin date")
	}

	var end time.Time
	if optimizeCmdEnd == "now" {
		year, month, day := time.Now().In(tz).Date()
		end = time.Date(year, month, day, 0, 0, 0, 0, tz)
	} else {
		end, err = time.ParseInLocation("2006-01-02", optimizeCmdEnd, tz)
		if err != nil {
			log.Fatal().Err(err).Str("End", optimizeCmdEnd).Msg("could not parse end date")
		}
	}

	ctx := context.Background()
	if err := database.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}

	manager := data.NewManager()
	manager.Begin = begin
	manager.End = end

	tickers := strings.Split(strings.ToUpper(optimizeCmdTickers), ",")
	df, err := manager.GetReturns(ctx, tickers)
	if err != nil {
		log.Fatal().Err(err).Strs("Tickers", tickers).Msg("could not load returns")
	}

	return df
}

func readReturnsCSV(fn string) ([]string, mat.Matrix, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, nil, err
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return nil, nil, fmt.Errorf("csv must have a header row and at least one row of returns")
	}

	assets := records[0]
	k := len(assets)
	m := mat.NewDense(len(records)-1, k, nil)

	for rowIdx, record := range records[1:] {
		if len(record) != k {
			return nil, nil, fmt.Errorf("row %d has %d fields; expected %d", rowIdx+2, len(record), k)
		}
		for colIdx, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d col %d: %w", rowIdx+2, colIdx+1, err)
			}
			m.Set(rowIdx, colIdx, v)
		}
	}

	return assets, m, nil
}

func printWeights(assets []string, weights []float64) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Asset", "Weight"})

	for idx, asset := range assets {
		table.Append([]string{asset, strconv.FormatFloat(weights[idx], 'f', 6, 64)})
	}

	table.SetFooter([]string{"Sum", strconv.FormatFloat(floats.Sum(weights), 'f', 6, 64)})
	table.Render()
}
