package reshape

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ValentinKolb/dReshard/cmd/util"
	"github.com/ValentinKolb/dReshard/lib/bench"
	"github.com/ValentinKolb/dReshard/lib/snapshot"
	"github.com/ValentinKolb/dReshard/lib/verify"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfCmd = &cobra.Command{
		Use:   "bench",
		Short: "Time all four read/write strategy pairs on a snapshot set",
		Long: `Reshape the input set once per strategy pair (parallel/parallel,
parallel/serial, serial/parallel, serial/serial) and report the minimum,
maximum and mean duration of every phase over all ranks. Each pair writes
into its own directory below --scratch.`,
		PreRunE: processPerfConfig,
		RunE:    runPerf,
	}
	perfInput   = ""
	perfScratch = ""
	perfRepeat  = 1
	perfVerify  = true
	perfKeep    = false
)

// strategy pairs in the order they are run
var perfPairs = [][2]common.Strategy{
	{common.StrategyParallel, common.StrategyParallel},
	{common.StrategyParallel, common.StrategySerial},
	{common.StrategySerial, common.StrategyParallel},
	{common.StrategySerial, common.StrategySerial},
}

// perfResult holds the phase reports of one run of one pair
type perfResult struct {
	read, write common.Strategy
	run         int
	reports     []bench.PhaseReport
}

func init() {
	key := "input"
	perfCmd.Flags().String(key, "", util.WrapString("Directory holding the snapshot set <base>.<i>.<ext>"))
	key = "scratch"
	perfCmd.Flags().String(key, "", util.WrapString("Directory for the outputs of each pair (default: a new temporary directory)"))
	key = "repeat"
	perfCmd.Flags().Int(key, 1, util.WrapString("How many times to run each pair"))
	key = "verify"
	perfCmd.Flags().Bool(key, true, util.WrapString("Compare the outputs of all pairs after the runs"))
	key = "keep"
	perfCmd.Flags().Bool(key, false, util.WrapString("Keep the outputs in the scratch directory"))
	key = "csv"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics-out"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save the byte and row counters in the Prometheus text format"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if worldConfig, err = util.GetWorldConfig(); err != nil {
		return err
	}

	perfInput = viper.GetString("input")
	perfScratch = viper.GetString("scratch")
	perfRepeat = viper.GetInt("repeat")
	perfVerify = viper.GetBool("verify")
	perfKeep = viper.GetBool("keep")

	if perfInput == "" {
		return fmt.Errorf("--input is required")
	}
	if perfRepeat < 1 {
		return fmt.Errorf("--repeat must be at least 1 (got %d)", perfRepeat)
	}
	if perfScratch == "" && worldConfig.Transport != common.TransportLocal {
		return fmt.Errorf("--scratch is required for the %s transport", worldConfig.Transport)
	}

	return common.InitLoggers(worldConfig.LogLevel)
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if perfScratch == "" {
		dir, err := os.MkdirTemp("", "dreshard-bench-")
		if err != nil {
			return err
		}
		perfScratch = dir
	}

	root := util.IsRootProcess(worldConfig)
	if root {
		fmt.Println("Benchmark of the reshape strategies")
		fmt.Println()
		fmt.Println("Configuration:")
		fmt.Print(worldConfig.String())
		fmt.Printf("\n  %-22s: %s\n  %-22s: %s\n  %-22s: %d\n\n", "Input", perfInput, "Scratch", perfScratch, "Repeat", perfRepeat)
	}

	fs := afero.NewOsFs()
	var results []perfResult
	err := util.RunWorld(ctx, worldConfig, func(ctx context.Context, c *comm.Comm) error {
		rec := bench.NewRecorder()
		for _, pair := range perfPairs {
			opts := snapshot.Options{
				ReshapeConfig: common.ReshapeConfig{
					InputDir:      perfInput,
					OutputDir:     pairDir(pair),
					ReadStrategy:  pair[0],
					WriteStrategy: pair[1],
				},
				Fs:       fs,
				Recorder: rec,
			}
			for run := 0; run < perfRepeat; run++ {
				rec.Reset()
				if _, err := snapshot.Reshape(ctx, c, opts); err != nil {
					return fmt.Errorf("%s/%s: %w", pair[0], pair[1], err)
				}
				reports, err := rec.Report(ctx, c)
				if err != nil {
					return err
				}
				if c.IsRoot() {
					results = append(results, perfResult{read: pair[0], write: pair[1], run: run, reports: reports})
					printResult(results[len(results)-1])
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !root {
		return util.WriteMetrics(viper.GetString("metrics-out"), worldConfig, bench.WritePrometheus)
	}

	if perfVerify {
		if err := verifyPairs(fs); err != nil {
			return err
		}
	}
	if !perfKeep {
		for _, pair := range perfPairs {
			if err := os.RemoveAll(pairDir(pair)); err != nil {
				util.Logger.Warningf("failed to remove %s: %v", pairDir(pair), err)
			}
		}
	}
	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return err
		}
		fmt.Printf("Results saved to %s\n", csvPath)
	}
	return util.WriteMetrics(viper.GetString("metrics-out"), worldConfig, bench.WritePrometheus)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func pairDir(pair [2]common.Strategy) string {
	return filepath.Join(perfScratch, fmt.Sprintf("%s-%s", pair[0], pair[1]))
}

// verifyPairs compares the output of every pair with the output of the first
func verifyPairs(fs afero.Fs) error {
	ref := pairDir(perfPairs[0])
	for _, pair := range perfPairs[1:] {
		diffs, err := verify.Sets(fs, ref, pairDir(pair), 10)
		if err != nil {
			return err
		}
		for _, d := range diffs {
			fmt.Println(d)
		}
		if len(diffs) > 0 {
			return fmt.Errorf("output of %s/%s differs from %s/%s", pair[0], pair[1], perfPairs[0][0], perfPairs[0][1])
		}
	}
	fmt.Println("Outputs of all strategy pairs are identical")
	return nil
}

// printResult prints the phase reports of one run
func printResult(r perfResult) {
	fmt.Printf("%s/%s (run %d)\n", r.read, r.write, r.run+1)
	for _, p := range r.reports {
		fmt.Printf("  %s\n", p)
	}
}

// writeResultsToCSV writes one row per run and phase
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Read", "Write", "Run", "Phase", "Ranks",
		"MinSec", "MaxSec", "MeanSec", "StdDevSec", "MinMaxRatio",
		"Transport", "Serializer", "Endpoints", "Input",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		for _, p := range r.reports {
			row := []string{
				string(r.read),
				string(r.write),
				strconv.Itoa(r.run + 1),
				p.Phase,
				strconv.Itoa(p.Ranks),
				strconv.FormatFloat(p.Min.Seconds(), 'f', 6, 64),
				strconv.FormatFloat(p.Max.Seconds(), 'f', 6, 64),
				strconv.FormatFloat(p.Mean.Seconds(), 'f', 6, 64),
				strconv.FormatFloat(p.Stats.StdDeviation, 'f', 6, 64),
				strconv.FormatFloat(p.Stats.MinMaxRatio, 'f', 4, 64),
				string(worldConfig.Transport),
				worldConfig.Serializer,
				strings.Join(worldConfig.Endpoints, ";"),
				perfInput,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row for %s/%s: %v", r.read, r.write, err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
