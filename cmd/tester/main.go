// Copyright 2023-2024 daviszhen
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

package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rowix/rowix/pkg/column"
	"github.com/rowix/rowix/pkg/parallel"
	"github.com/rowix/rowix/pkg/progress"
	"github.com/rowix/rowix/pkg/rowindex"
	"github.com/rowix/rowix/pkg/sorteng"
	"github.com/rowix/rowix/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initBenchCmd()
}

var testerCfg = &util.Config{}

///root cmd

var info = "tester"
var RootCmd = &cobra.Command{
	Use:          "tester",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use tester --help or -h")
	},
}

//bench cmd

var benchInfo = "sort generated columns across thread counts"
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: benchInfo,
	Long:  benchInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		initBenchCfg()
		return runBench(testerCfg)
	},
}

func initBenchCfg() {
	testerCfg.Bench.Rows = viper.GetInt("bench.rows")
	testerCfg.Bench.Columns = viper.GetInt("bench.columns")
	testerCfg.Bench.Kind = viper.GetString("bench.kind")
	testerCfg.Bench.NullPct = viper.GetInt("bench.nullPct")
	testerCfg.Bench.Seed = viper.GetInt64("bench.seed")
	testerCfg.Run.Threads = viper.GetIntSlice("run.threads")
	testerCfg.Run.Descending = viper.GetBool("run.descending")
	testerCfg.Run.Groups = viper.GetBool("run.groups")
	testerCfg.Debug.PrintResult = viper.GetBool("debug.printResult")
	testerCfg.Debug.PrintProgress = viper.GetBool("debug.printProgress")
	testerCfg.Debug.MaxOutputRows = viper.GetInt("debug.maxOutputRows")
}

func initBenchCmd() {
	RootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&testerCfg.Bench.Rows, "rows", 1000000, "row count")
	benchCmd.Flags().IntVar(&testerCfg.Bench.Columns, "columns", 1, "sort column count")
	benchCmd.Flags().StringVar(&testerCfg.Bench.Kind, "kind", "int32", "column kind. int32, int64, float64, string")
	benchCmd.Flags().IntVar(&testerCfg.Bench.NullPct, "null_pct", 5, "percentage of NA rows")
	benchCmd.Flags().Int64Var(&testerCfg.Bench.Seed, "seed", 42, "random seed")

	viper.BindPFlag("bench.rows", benchCmd.Flags().Lookup("rows"))
	viper.BindPFlag("bench.columns", benchCmd.Flags().Lookup("columns"))
	viper.BindPFlag("bench.kind", benchCmd.Flags().Lookup("kind"))
	viper.BindPFlag("bench.nullPct", benchCmd.Flags().Lookup("null_pct"))
	viper.BindPFlag("bench.seed", benchCmd.Flags().Lookup("seed"))
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "tester.toml"

func loadConfig() {
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			viper.SetConfigFile(fpath)
			err := viper.ReadInConfig()
			if err != nil {
				util.Error("viper load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			break
		}
	}
}

func genColumns(cfg *util.Config) []column.Column {
	rng := rand.New(rand.NewSource(cfg.Bench.Seed))
	rows := cfg.Bench.Rows
	cols := make([]column.Column, 0, cfg.Bench.Columns)
	for c := 0; c < cfg.Bench.Columns; c++ {
		nulls := make([]bool, rows)
		for i := range nulls {
			nulls[i] = rng.Intn(100) < cfg.Bench.NullPct
		}
		switch cfg.Bench.Kind {
		case "int32":
			data := make([]int32, rows)
			for i := range data {
				data[i] = rng.Int31()
			}
			cols = append(cols, column.NewInt32(data, nulls))
		case "int64":
			data := make([]int64, rows)
			for i := range data {
				data[i] = rng.Int63()
			}
			cols = append(cols, column.NewInt64(data, nulls))
		case "float64":
			data := make([]float64, rows)
			for i := range data {
				data[i] = rng.NormFloat64()
			}
			cols = append(cols, column.NewFloat64(data, nulls))
		case "string":
			data := make([]string, rows)
			for i := range data {
				data[i] = fmt.Sprintf("key-%012d", rng.Int63n(int64(rows)))
			}
			cols = append(cols, column.NewString(data, nulls))
		default:
			util.Error("unknown column kind", zap.String("kind", cfg.Bench.Kind))
			os.Exit(1)
		}
	}
	return cols
}

func runBench(cfg *util.Config) error {
	cols := genColumns(cfg)
	rows := int64(cfg.Bench.Rows)
	desc := make([]bool, len(cols))
	for i := range desc {
		desc[i] = cfg.Run.Descending
	}
	threads := cfg.Run.Threads
	if len(threads) == 0 {
		threads = []int{0}
	}

	var baseline *rowindex.RowIndex
	for _, nworkers := range threads {
		pool := parallel.NewPool(nworkers)
		sorter := sorteng.NewSorter(pool)
		tracker := progress.NewTracker(float64(rows))
		if cfg.Debug.PrintProgress {
			tracker.Subscribe(func(fraction float64, status progress.Status) {
				util.Info("sort progress",
					zap.Int("workers", pool.WorkerCount()),
					zap.Float64("fraction", fraction),
					zap.Stringer("status", status))
			})
		}
		opts := []sorteng.Option{sorteng.WithTracker(tracker)}
		if cfg.Run.Groups {
			opts = append(opts, sorteng.WithGroups())
		}
		sel, groups, err := sorter.Sort(cols, desc, opts...)
		pool.Close()
		if err != nil {
			return err
		}
		util.Info("sort done",
			zap.Int("workers", pool.WorkerCount()),
			zap.Int64("rows", sel.Len()),
			zap.Int("groups", len(groups)))

		if baseline == nil {
			baseline = sel
		} else if !sameSelection(baseline, sel) {
			return fmt.Errorf("output differs between %d and %d workers", threads[0], nworkers)
		}
		if cfg.Debug.PrintResult {
			printHead(sel, cfg.Debug.MaxOutputRows)
		}
	}
	return nil
}

func sameSelection(a, b *rowindex.RowIndex) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := int64(0); i < a.Len(); i++ {
		if a.Get(i) != b.Get(i) {
			return false
		}
	}
	return true
}

func printHead(sel *rowindex.RowIndex, limit int) {
	if limit <= 0 {
		limit = 20
	}
	for i := int64(0); i < sel.Len() && i < int64(limit); i++ {
		fmt.Println(i, sel.Get(i))
	}
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		util.Error("tester failed", zap.Error(err))
		os.Exit(1)
	}
}
