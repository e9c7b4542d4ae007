/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: run.go
Description: Parallel triage of many seeds. Bounds concurrency to the configured cores,
gives each worker its own scratch directory, reports progress and stores the triaged
seeds as JSON grouped by fuzzer and benchmark.
*/

package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/fixreverter-harness/pkg/logging"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Runner triages seed batches.
type Runner struct {
	config  *Config
	fs      afero.Fs
	triager *Triager
	logger  *logging.Logger
}

// NewRunner creates a runner. Worker directories are created on fs.
func NewRunner(config *Config, fs afero.Fs, triager *Triager, logger *logging.Logger) *Runner {
	return &Runner{config: config, fs: fs, triager: triager, logger: logger}
}

// Summary describes one triage run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Type     SeedType      `json:"type"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Pairs    []PairSummary `json:"pairs"`
}

// PairSummary aggregates the seeds of one benchmark/fuzzer pair.
type PairSummary struct {
	Benchmark  string `json:"benchmark"`
	Fuzzer     string `json:"fuzzer"`
	Seeds      int    `json:"seeds"`
	Reaching   int    `json:"reaching"`
	Triggering int    `json:"triggering"`
	CrashSets  int    `json:"crash_sets"`
}

// Run triages seeds in parallel. Results keep the input order. The first
// failure cancels the remaining work.
func (r *Runner) Run(ctx context.Context, seeds []Seed) ([]Seed, *Summary, error) {
	summary := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	if len(seeds) > 0 {
		summary.Type = seeds[0].Type
	}
	r.logger.GetLogger().WithField("run_id", summary.RunID).
		Infof("Triage of %d seeds with %d parallel jobs", len(seeds), r.config.Cores)

	slots := make(chan int, r.config.Cores)
	for i := 0; i < r.config.Cores; i++ {
		dir := r.config.RunningDir(i)
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create worker directory: %w", err)
		}
		slots <- i
	}

	out := make([]Seed, len(seeds))
	copy(out, seeds)

	step := max(1, len(seeds)/100)
	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Cores)
	for i := range out {
		i := i
		g.Go(func() error {
			slot := <-slots
			defer func() { slots <- slot }()
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.triager.Seed(ctx, &out[i], r.config.RunningDir(slot)); err != nil {
				return err
			}
			if n := done.Add(1); n%int64(step) == 0 || int(n) == len(out) {
				r.logger.LogProgress(int(n), len(out))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	summary.Duration = time.Since(summary.Started)
	summary.Pairs = Summarize(out)
	return out, summary, nil
}

// Summarize aggregates seeds per pair, sorted by fuzzer then benchmark.
func Summarize(seeds []Seed) []PairSummary {
	index := make(map[[2]string]*PairSummary)
	for _, s := range seeds {
		key := [2]string{s.Fuzzer, s.Benchmark}
		p, ok := index[key]
		if !ok {
			p = &PairSummary{Benchmark: s.Benchmark, Fuzzer: s.Fuzzer}
			index[key] = p
		}
		p.Seeds++
		if len(s.Reaches) > 0 {
			p.Reaching++
		}
		if len(s.Triggers) > 0 {
			p.Triggering++
		}
		p.CrashSets += len(s.Crashes)
	}

	pairs := make([]PairSummary, 0, len(index))
	for _, p := range index {
		pairs = append(pairs, *p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Fuzzer != pairs[j].Fuzzer {
			return pairs[i].Fuzzer < pairs[j].Fuzzer
		}
		return pairs[i].Benchmark < pairs[j].Benchmark
	})
	return pairs
}

// Store writes seeds to one JSON file per fuzzer/benchmark pair.
func Store(fs afero.Fs, config *Config, seeds []Seed) error {
	groups := make(map[[2]string][]Seed)
	for _, s := range seeds {
		key := [2]string{s.Fuzzer, s.Benchmark}
		groups[key] = append(groups[key], s)
	}
	for key, group := range groups {
		path := config.ParsedSeedsStore(key[0], key[1], group[0].Type)
		if err := writeJSON(fs, path, group); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the stored seeds of a pair.
func Load(fs afero.Fs, config *Config, fuzzer, benchmark string, typ SeedType) ([]Seed, error) {
	path := config.ParsedSeedsStore(fuzzer, benchmark, typ)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var seeds []Seed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return seeds, nil
}

// StoreSummary writes the run summary under the output directory.
func StoreSummary(fs afero.Fs, config *Config, summary *Summary) error {
	return writeJSON(fs, filepath.Join(config.OutDir, "runs", summary.RunID+".json"), summary)
}

func writeJSON(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
