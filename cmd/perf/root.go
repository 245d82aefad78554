package perf

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ValentinKolb/oak/cmd/util"
	"github.com/ValentinKolb/oak/lib/bench"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfConfig = bench.DefaultConfig()
	perfCSV    = ""

	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Measure how the concurrent tree scales",
		Long: `Runs a give/query workload against the concurrent tree for 1 up to --max-threads
worker goroutines, followed by the single threaded insert/get baseline.
The format of the environment variables is OAK_<flag> (e.g. OAK_KEYS=100000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "max-threads"
	PerfCmd.Flags().Int(key, max(runtime.NumCPU()-1, 1), util.WrapString("Highest number of worker goroutines to test"))
	key = "runs"
	PerfCmd.Flags().Int(key, 4, util.WrapString("Number of runs every measurement is averaged over"))
	key = "keys"
	PerfCmd.Flags().Int(key, 500_000, util.WrapString("Number of distinct keys given in every run"))
	key = "sleep"
	PerfCmd.Flags().Duration(key, 0, util.WrapString("Upper bound of a random pause between a give and its query (e.g. 5ms), 0 disables it"))
	key = "seed"
	PerfCmd.Flags().Int64(key, time.Now().UnixNano(), util.WrapString("Seed of the key permutation"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfConfig.Threads = viper.GetInt("max-threads")
	perfConfig.Runs = viper.GetInt("runs")
	perfConfig.Keys = viper.GetInt("keys")
	perfConfig.Sleep = viper.GetDuration("sleep")
	perfConfig.Seed = viper.GetInt64("seed")
	perfCSV = viper.GetString("csv")

	if perfConfig.Threads < 1 {
		return fmt.Errorf("max-threads must be at least 1, got %d", perfConfig.Threads)
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the oak tree")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Max threads: %d\n", perfConfig.Threads)
	fmt.Printf("Runs: %d\n", perfConfig.Runs)
	fmt.Printf("Keys: %d\n", perfConfig.Keys)
	fmt.Printf("Sleep: %s\n", perfConfig.Sleep)
	fmt.Printf("Seed: %d\n", perfConfig.Seed)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make([]bench.Result, 0, perfConfig.Threads+1)
	for n := 1; n <= perfConfig.Threads; n++ {
		result, err := bench.RunThreads(perfConfig, n)
		if err != nil {
			return err
		}
		results = append(results, result)
		printResult(fmt.Sprintf("%d thread(s)", n), result)
	}

	result, err := bench.RunSingle(perfConfig)
	if err != nil {
		return err
	}
	results = append(results, result)
	printResult("single", result)

	if perfCSV != "" {
		if err := writeResultsToCSV(perfCSV, results); err != nil {
			return err
		}
		fmt.Printf("\nresults in: %s\n", perfCSV)
	}
	return nil
}

func printResult(test string, result bench.Result) {
	runTime := time.Duration(result.RunTime.Mean * float64(time.Millisecond))
	nsPerOp := float64(runTime) / float64(max(result.Ops, 1))
	opsPerSec := 1.0 / (max(nsPerOp, 1) / 1e9)

	fmt.Printf("%-20s%s/run (±%.1fms)\t%.0fns/op\t%.0f ops/sec\tp99 %s/op\n",
		test, runTime.Round(time.Microsecond), result.RunTime.StdDeviation, nsPerOp, opsPerSec, time.Duration(result.OpP99))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []bench.Result) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := bench.WriteCSV(file, results); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return file.Close()
}
