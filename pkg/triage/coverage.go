/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: Injection coverage over triaged queue and crash seeds: per trial, the
injections reached, triggered, crashing alone and crashing in any minimal set.
*/

package triage

import (
	"io"
	"sort"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/spf13/afero"
)

// CoverageMetrics names the coverage columns in report order.
var CoverageMetrics = []string{"reaches", "triggers", "single_causes", "all_causes"}

// TrialCoverage holds the injections covered by one trial.
type TrialCoverage struct {
	Trial        string `json:"trial"`
	Reaches      []int  `json:"reaches"`
	Triggers     []int  `json:"triggers"`
	SingleCauses []int  `json:"single_causes"`
	AllCauses    []int  `json:"all_causes"`
}

// metrics returns the id sets in CoverageMetrics order.
func (t TrialCoverage) metrics() [][]int {
	return [][]int{t.Reaches, t.Triggers, t.SingleCauses, t.AllCauses}
}

// PairCoverage holds the per-trial coverage of a benchmark/fuzzer pair.
type PairCoverage struct {
	Benchmark string          `json:"benchmark"`
	Fuzzer    string          `json:"fuzzer"`
	Trials    []TrialCoverage `json:"trials"`
	Sites     gate.Sites      `json:"-"`
}

// CoverageTrials groups queue and crash seeds by trial. Causes come from the
// minimal crash sets of crash seeds only.
func CoverageTrials(seeds []Seed) []TrialCoverage {
	type sets [4]map[int]struct{}
	byTrial := make(map[string]*sets)
	for _, s := range seeds {
		acc, ok := byTrial[s.Trial]
		if !ok {
			acc = &sets{{}, {}, {}, {}}
			byTrial[s.Trial] = acc
		}
		for _, id := range s.Reaches {
			acc[0][id] = struct{}{}
		}
		for _, id := range s.Triggers {
			acc[1][id] = struct{}{}
		}
		if s.Type != SeedCrash {
			continue
		}
		for _, set := range s.Crashes {
			for _, id := range set {
				if len(set) == 1 {
					acc[2][id] = struct{}{}
				}
				acc[3][id] = struct{}{}
			}
		}
	}

	trials := make([]TrialCoverage, 0, len(byTrial))
	for name, acc := range byTrial {
		trials = append(trials, TrialCoverage{
			Trial:        name,
			Reaches:      sortedKeys(acc[0]),
			Triggers:     sortedKeys(acc[1]),
			SingleCauses: sortedKeys(acc[2]),
			AllCauses:    sortedKeys(acc[3]),
		})
	}
	sort.Slice(trials, func(i, j int) bool { return trials[i].Trial < trials[j].Trial })
	return trials
}

// CoverPair builds the coverage of one pair.
func CoverPair(benchmark, fuzzer string, seeds []Seed, sites gate.Sites) PairCoverage {
	return PairCoverage{
		Benchmark: benchmark,
		Fuzzer:    fuzzer,
		Trials:    CoverageTrials(seeds),
		Sites:     sites,
	}
}

// Medians returns the median size of each metric across trials.
func (c PairCoverage) Medians() []float64 {
	medians := make([]float64, len(CoverageMetrics))
	for m := range CoverageMetrics {
		sizes := make([]int, len(c.Trials))
		for i, t := range c.Trials {
			sizes[i] = len(t.metrics()[m])
		}
		medians[m] = Median(sizes)
	}
	return medians
}

// CoverageAll loads the queue and crash results of every configured pair.
func CoverageAll(fs afero.Fs, config *Config) ([]PairCoverage, error) {
	var pairs []PairCoverage
	for _, pair := range config.Pairs() {
		benchmark, fuzzer := pair[0], pair[1]
		queue, err := Load(fs, config, fuzzer, benchmark, SeedQueue)
		if err != nil {
			return nil, err
		}
		crash, err := Load(fs, config, fuzzer, benchmark, SeedCrash)
		if err != nil {
			return nil, err
		}
		sites, err := LoadSites(fs, config, benchmark)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, CoverPair(benchmark, fuzzer, append(queue, crash...), sites))
	}
	return pairs, nil
}

// RenderCoverage writes one table per fuzzer with the median coverage of each
// benchmark, followed by the MetaFuzzer table of injections covered by any
// trial of any fuzzer.
func RenderCoverage(w io.Writer, pairs []PairCoverage) {
	byFuzzer := make(map[string][]PairCoverage)
	byBenchmark := make(map[string][]PairCoverage)
	for _, c := range pairs {
		byFuzzer[c.Fuzzer] = append(byFuzzer[c.Fuzzer], c)
		byBenchmark[c.Benchmark] = append(byBenchmark[c.Benchmark], c)
	}

	for _, fuzzer := range sortedNames(byFuzzer) {
		table := newTable(w, fuzzer, CoverageMetrics...)
		rows := byFuzzer[fuzzer]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Benchmark < rows[j].Benchmark })
		for _, c := range rows {
			row := []string{c.Benchmark}
			for m, median := range c.Medians() {
				sets := make([][]int, len(c.Trials))
				for i, t := range c.Trials {
					sets[i] = t.metrics()[m]
				}
				row = append(row, formatCell(c.Sites, median, medianBreakdown(c.Sites, sets)))
			}
			table.Append(row)
		}
		table.Render()
	}

	table := newTable(w, "MetaFuzzer", CoverageMetrics...)
	for _, benchmark := range sortedNames(byBenchmark) {
		group := byBenchmark[benchmark]
		row := []string{benchmark}
		for _, ids := range CoverageUnion(group) {
			row = append(row, countCell(group[0].Sites, ids))
		}
		table.Append(row)
	}
	table.Render()
}

// CoverageUnion returns, per metric, the injections covered by any trial of
// any of the pairs.
func CoverageUnion(pairs []PairCoverage) [][]int {
	union := make([]map[int]struct{}, len(CoverageMetrics))
	for m := range union {
		union[m] = make(map[int]struct{})
	}
	for _, c := range pairs {
		for _, t := range c.Trials {
			for m, ids := range t.metrics() {
				for _, id := range ids {
					union[m][id] = struct{}{}
				}
			}
		}
	}
	out := make([][]int, len(union))
	for m, set := range union {
		out[m] = sortedKeys(set)
	}
	return out
}
