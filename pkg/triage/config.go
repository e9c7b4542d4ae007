/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Triage configuration and the on-disk layout derived from it: extracted
trial data, triage binaries, per-worker scratch directories and parsed seed stores.
*/

package triage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

const (
	DefaultUnitTimeout    = time.Second
	DefaultRSSLimitMB     = 2048
	DefaultMaxCombination = 3
)

// Config holds the triage settings.
type Config struct {
	WorkDir         string            `mapstructure:"work_dir"`
	OutDir          string            `mapstructure:"out_dir"`
	FuzzbenchExpDir string            `mapstructure:"fuzzbench_exp_dir"`
	Experiments     []string          `mapstructure:"experiments"`
	Benchmarks      []string          `mapstructure:"benchmarks"`
	Fuzzers         []string          `mapstructure:"fuzzers"`
	Cores           int               `mapstructure:"cores"`
	Targets         map[string]string `mapstructure:"targets"` // benchmark -> fuzz target binary name
	UnitTimeout     time.Duration     `mapstructure:"unit_timeout"`
	RSSLimitMB      int               `mapstructure:"rss_limit_mb"`
	MaxCombination  int               `mapstructure:"max_combination"`
}

// DefaultConfig returns a configuration rooted at the current directory.
func DefaultConfig() *Config {
	return &Config{
		WorkDir:        "work",
		OutDir:         "out",
		Cores:          1,
		UnitTimeout:    DefaultUnitTimeout,
		RSSLimitMB:     DefaultRSSLimitMB,
		MaxCombination: DefaultMaxCombination,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return errors.New("work_dir is required")
	}
	if c.OutDir == "" {
		return errors.New("out_dir is required")
	}
	if c.Cores <= 0 {
		return fmt.Errorf("cores must be positive, got %d", c.Cores)
	}
	if c.UnitTimeout <= 0 {
		return fmt.Errorf("unit_timeout must be positive, got %s", c.UnitTimeout)
	}
	if c.MaxCombination <= 0 {
		return fmt.Errorf("max_combination must be positive, got %d", c.MaxCombination)
	}
	for _, f := range c.Fuzzers {
		if _, err := Stores(f, SeedQueue); err != nil {
			return err
		}
	}
	return nil
}

// DataDir holds extracted fuzzing results.
func (c *Config) DataDir() string { return filepath.Join(c.WorkDir, "data") }

// PairDataDir holds the trials of one benchmark/fuzzer pair.
func (c *Config) PairDataDir(benchmark, fuzzer string) string {
	return filepath.Join(c.DataDir(), benchmark, fuzzer)
}

// TrialDataDir holds one extracted trial.
func (c *Config) TrialDataDir(benchmark, fuzzer, trial string) string {
	return filepath.Join(c.PairDataDir(benchmark, fuzzer), trial)
}

// FuzzbenchDataDir is where FuzzBench stores the trials of a pair.
func (c *Config) FuzzbenchDataDir(benchmark, fuzzer, experiment string) string {
	return filepath.Join(c.FuzzbenchExpDir, experiment, "experiment-folders", benchmark+"-"+fuzzer)
}

// Target returns the fuzz target binary name of a benchmark.
func (c *Config) Target(benchmark string) string {
	if name, ok := c.Targets[benchmark]; ok {
		return name
	}
	return benchmark
}

// TriageBinary is the instrumented binary used to replay seeds of a benchmark.
func (c *Config) TriageBinary(benchmark string) string {
	return filepath.Join(c.WorkDir, "triage-binaries", benchmark, c.Target(benchmark))
}

// DDAFile is the probe site list written next to the triage binary.
func (c *Config) DDAFile(benchmark string) string {
	return filepath.Join(c.WorkDir, "triage-binaries", benchmark, "dda.json")
}

// RunningDir is the scratch working directory of a worker.
func (c *Config) RunningDir(worker int) string {
	return filepath.Join(c.WorkDir, "tmp", fmt.Sprintf("worker-%d", worker))
}

// ParsedSeedsStore is the JSON file holding triaged seeds of a pair.
func (c *Config) ParsedSeedsStore(fuzzer, benchmark string, typ SeedType) string {
	return filepath.Join(c.OutDir, "parsed_seeds", fuzzer, benchmark, string(typ)+".json")
}

// ReportPath is the HTML summary of a triage run.
func (c *Config) ReportPath() string { return filepath.Join(c.OutDir, "report.html") }

// Trials maps each extracted trial of a pair to its directory.
func (c *Config) Trials(fs afero.Fs, benchmark, fuzzer string) (map[string]string, error) {
	dir := c.PairDataDir(benchmark, fuzzer)
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials in %s: %w", dir, err)
	}
	trials := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			trials[e.Name()] = filepath.Join(dir, e.Name())
		}
	}
	return trials, nil
}

// Pairs returns every configured benchmark/fuzzer pair in a stable order.
func (c *Config) Pairs() [][2]string {
	benchmarks := append([]string(nil), c.Benchmarks...)
	fuzzers := append([]string(nil), c.Fuzzers...)
	sort.Strings(benchmarks)
	sort.Strings(fuzzers)

	pairs := make([][2]string, 0, len(benchmarks)*len(fuzzers))
	for _, f := range fuzzers {
		for _, b := range benchmarks {
			pairs = append(pairs, [2]string{b, f})
		}
	}
	return pairs
}
