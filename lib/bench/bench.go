package bench

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/oak/lib/common"
	"github.com/ValentinKolb/oak/lib/db/util"
	"github.com/ValentinKolb/oak/lib/maybe"
	"github.com/ValentinKolb/oak/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

// every timedEvery-th operation of a worker is timed
const timedEvery = 64

var (
	ErrInvalidConfig = errors.New("invalid benchmark config")
	ErrWrongValue    = errors.New("query returned a value that was never given")
)

var log = logger.GetLogger(common.LogBench)

// Config describes a benchmark
type Config struct {
	Threads int           // highest number of worker goroutines to measure
	Runs    int           // runs averaged per measurement
	Keys    int           // number of distinct keys given per run
	Sleep   time.Duration // upper bound of a random pause between a give and its query (0 disables it)
	Seed    int64         // seed of the key permutation
}

// DefaultConfig returns the configuration used by the perf command
func DefaultConfig() Config {
	return Config{
		Threads: 1,
		Runs:    4,
		Keys:    500_000,
		Seed:    1,
	}
}

func (c Config) validate() error {
	if c.Runs < 1 {
		return fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidConfig, c.Runs)
	}
	if c.Keys < 1 {
		return fmt.Errorf("%w: keys must be positive, got %d", ErrInvalidConfig, c.Keys)
	}
	if c.Sleep < 0 {
		return fmt.Errorf("%w: sleep must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Result of one measurement
type Result struct {
	Threads   int        // worker goroutines, 0 for the single threaded baseline
	Runs      int        // number of runs
	Ops       int64      // operations per run
	RunTime   util.Stats // wall time per run in milliseconds
	RunsPerMs float64    // mean over all runs of 1/run time in milliseconds
	OpP50     float64    // median latency of a timed operation in nanoseconds
	OpP99     float64    // 99th percentile latency in nanoseconds
}

// Label is "single" for the baseline and the thread count otherwise
func (r Result) Label() string {
	if r.Threads == 0 {
		return "single"
	}
	return strconv.Itoa(r.Threads)
}

// Perf is the average number of runs per millisecond, higher is better.
// It averages the per run rates, so one slow run weighs less than in 1/RunTime.Mean.
func (r Result) Perf() float64 {
	return r.RunsPerMs
}

// minRunTimeMs keeps the rate of a run finite when the clock reports no time
const minRunTimeMs = 1e-3

func newResult(threads int, ops int64, runTimes []float64, timer metrics.Timer) Result {
	var rate float64
	for _, ms := range runTimes {
		rate += 1 / max(ms, minRunTimeMs)
	}
	if len(runTimes) > 0 {
		rate /= float64(len(runTimes))
	}

	snapshot := timer.Snapshot()
	return Result{
		Threads:   threads,
		Runs:      len(runTimes),
		Ops:       ops,
		RunTime:   util.NewStats(runTimes),
		RunsPerMs: rate,
		OpP50:     snapshot.Percentile(0.5),
		OpP99:     snapshot.Percentile(0.99),
	}
}

// threadedOps is the number of tree operations of one RunThreads run: every
// key is given once and queried twice, and the giver adds keys/50 gives.
func threadedOps(keys int) int64 {
	return int64(3*keys + keys/50)
}

// singleOps is the number of tree operations of one RunSingle run: two inserts
// and two gets per key.
func singleOps(keys int) int64 {
	return int64(4 * keys)
}

// RandomKeys returns a permutation of 0..n-1
func RandomKeys(n int, seed int64) []int {
	return rand.New(rand.NewSource(seed)).Perm(n)
}

// RunThreads measures a give/query workload with n workers plus one giver.
func RunThreads(cfg Config, n int) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	if n < 1 {
		return Result{}, fmt.Errorf("%w: need at least one worker, got %d", ErrInvalidConfig, n)
	}

	keys := RandomKeys(cfg.Keys, cfg.Seed)
	timer := metrics.NewTimer()
	defer timer.Stop()

	runTimes := make([]float64, cfg.Runs)
	for run := 0; run < cfg.Runs; run++ {
		elapsed, err := runThreadsOnce(keys, n, cfg, timer, cfg.Seed+int64(run))
		if err != nil {
			return Result{}, fmt.Errorf("run %d with %d workers: %w", run, n, err)
		}
		runTimes[run] = float64(elapsed) / float64(time.Millisecond)
	}

	log.Infof("done testing %d worker(s)", n)

	return newResult(n, threadedOps(len(keys)), runTimes, timer), nil
}

func runThreadsOnce(keys []int, n int, cfg Config, timer metrics.Timer, seed int64) (time.Duration, error) {
	t := tree.NewIntTree()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	check := func(v int, found maybe.Maybe[int]) error {
		got, ok := found.Get()
		if !ok || (got != v && got != v+1) {
			return fmt.Errorf("%w: key %d -> %s", ErrWrongValue, v, found)
		}
		return nil
	}

	start := time.Now()

	// the giver
	wg.Add(1)
	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(seed))
		for i := 0; i < len(keys)/50; i++ {
			v := keys[r.Intn(len(keys))]
			t.Give(v, v+1)
		}
	}()

	for w := 0; w < n; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(w) + 1))

			for j := w; j < len(keys); j += n {
				v := keys[j]

				if j%timedEvery == 0 {
					opStart := time.Now()
					t.Give(v, v)
					timer.UpdateSince(opStart)
				} else {
					t.Give(v, v)
				}

				if cfg.Sleep > 0 {
					time.Sleep(time.Duration(r.Int63n(int64(cfg.Sleep))))
				}

				if err := check(v, t.Query(v)); err != nil {
					fail(err)
					return
				}
			}

			// second pass, every key of the stride must still be there
			for j := w; j < len(keys); j += n {
				v := keys[j]
				if err := check(v, t.Query(v)); err != nil {
					fail(err)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	return time.Since(start), firstErr
}

// RunSingle measures the unsynchronized Insert and Get path.
func RunSingle(cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	keys := RandomKeys(cfg.Keys, cfg.Seed)
	timer := metrics.NewTimer()
	defer timer.Stop()

	runTimes := make([]float64, cfg.Runs)
	for run := 0; run < cfg.Runs; run++ {
		t := tree.NewIntTree()
		start := time.Now()

		for i, v := range keys {
			if i%timedEvery == 0 {
				opStart := time.Now()
				t.Insert(v, v+1)
				timer.UpdateSince(opStart)
			} else {
				t.Insert(v, v+1)
			}
			t.Insert(v, v)
			if got := t.Get(v); !maybe.Equal(got, maybe.Some(v+1)) {
				return Result{}, fmt.Errorf("run %d: %w: key %d -> %s", run, ErrWrongValue, v, got)
			}
		}
		for _, v := range keys {
			if got := t.Get(v); !maybe.Equal(got, maybe.Some(v+1)) {
				return Result{}, fmt.Errorf("run %d: %w: key %d -> %s", run, ErrWrongValue, v, got)
			}
		}

		runTimes[run] = float64(time.Since(start)) / float64(time.Millisecond)
	}

	log.Infof("done testing single threaded baseline")

	return newResult(0, singleOps(len(keys)), runTimes, timer), nil
}

// WriteCSV writes one row per result with a header row
func WriteCSV(w io.Writer, results []Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"threads", "perf", "avg_ms", "p99_op_ns"}); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.Label(),
			strconv.FormatFloat(r.Perf(), 'g', 6, 64),
			strconv.FormatFloat(r.RunTime.Mean, 'f', 2, 64),
			strconv.FormatFloat(r.OpP99, 'f', 0, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing row %s: %w", r.Label(), err)
		}
	}

	writer.Flush()
	return writer.Error()
}
