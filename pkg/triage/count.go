/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: count.go
Description: Crash counting over triaged crash seeds. Per trial, an injection counts as
individual when it crashes alone and as combined when it appears in any minimal crash
set; per pair the median across trials is reported.
*/

package triage

import (
	"io"
	"sort"
	"strconv"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
)

// TrialCount holds the crashing injections found in one trial.
type TrialCount struct {
	Trial      string `json:"trial"`
	Individual []int  `json:"individual"`
	Combined   []int  `json:"combined"`
}

// PairCount holds the per-trial counts of a benchmark/fuzzer pair.
type PairCount struct {
	Benchmark        string       `json:"benchmark"`
	Fuzzer           string       `json:"fuzzer"`
	Trials           []TrialCount `json:"trials"`
	MedianIndividual float64      `json:"median_individual"`
	MedianCombined   float64      `json:"median_combined"`
	Sites            gate.Sites   `json:"-"` // benchmark site list, for pattern columns
}

// CountTrials groups crash seeds by trial.
func CountTrials(seeds []Seed) []TrialCount {
	individual := make(map[string]map[int]struct{})
	combined := make(map[string]map[int]struct{})
	for _, s := range seeds {
		if _, ok := combined[s.Trial]; !ok {
			individual[s.Trial] = make(map[int]struct{})
			combined[s.Trial] = make(map[int]struct{})
		}
		for _, set := range s.Crashes {
			for _, id := range set {
				if len(set) == 1 {
					individual[s.Trial][id] = struct{}{}
				}
				combined[s.Trial][id] = struct{}{}
			}
		}
	}

	trials := make([]TrialCount, 0, len(combined))
	for name := range combined {
		trials = append(trials, TrialCount{
			Trial:      name,
			Individual: sortedKeys(individual[name]),
			Combined:   sortedKeys(combined[name]),
		})
	}
	sort.Slice(trials, func(i, j int) bool { return trials[i].Trial < trials[j].Trial })
	return trials
}

// CountPair builds the counts of one pair from its crash seeds.
func CountPair(benchmark, fuzzer string, seeds []Seed) PairCount {
	trials := CountTrials(seeds)
	indi := make([]int, len(trials))
	comb := make([]int, len(trials))
	for i, t := range trials {
		indi[i] = len(t.Individual)
		comb[i] = len(t.Combined)
	}
	return PairCount{
		Benchmark:        benchmark,
		Fuzzer:           fuzzer,
		Trials:           trials,
		MedianIndividual: Median(indi),
		MedianCombined:   Median(comb),
	}
}

// CountAll counts the stored crash seeds of every configured pair.
func CountAll(fs afero.Fs, config *Config) ([]PairCount, error) {
	var counts []PairCount
	for _, pair := range config.Pairs() {
		seeds, err := Load(fs, config, pair[1], pair[0], SeedCrash)
		if err != nil {
			return nil, err
		}
		sites, err := LoadSites(fs, config, pair[0])
		if err != nil {
			return nil, err
		}
		count := CountPair(pair[0], pair[1], seeds)
		count.Sites = sites
		counts = append(counts, count)
	}
	return counts, nil
}

// Median returns the median of values, or 0 when empty.
func Median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// Union returns the injections found by any trial of any of the pairs.
func Union(counts []PairCount) (individual, combined []int) {
	indi := make(map[int]struct{})
	comb := make(map[int]struct{})
	for _, c := range counts {
		for _, t := range c.Trials {
			for _, id := range t.Individual {
				indi[id] = struct{}{}
			}
			for _, id := range t.Combined {
				comb[id] = struct{}{}
			}
		}
	}
	return sortedKeys(indi), sortedKeys(comb)
}

// RenderCounts writes one table per fuzzer with the median counts of each
// benchmark, followed by a table of injections found by any fuzzer. Pairs with
// a site list get a per-pattern breakdown in each cell.
func RenderCounts(w io.Writer, counts []PairCount) {
	byFuzzer := make(map[string][]PairCount)
	byBenchmark := make(map[string][]PairCount)
	for _, c := range counts {
		byFuzzer[c.Fuzzer] = append(byFuzzer[c.Fuzzer], c)
		byBenchmark[c.Benchmark] = append(byBenchmark[c.Benchmark], c)
	}

	for _, fuzzer := range sortedNames(byFuzzer) {
		table := newTable(w, fuzzer)
		rows := byFuzzer[fuzzer]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Benchmark < rows[j].Benchmark })
		for _, c := range rows {
			indi := make([][]int, len(c.Trials))
			comb := make([][]int, len(c.Trials))
			for i, t := range c.Trials {
				indi[i], comb[i] = t.Individual, t.Combined
			}
			table.Append([]string{
				c.Benchmark,
				formatCell(c.Sites, c.MedianIndividual, medianBreakdown(c.Sites, indi)),
				formatCell(c.Sites, c.MedianCombined, medianBreakdown(c.Sites, comb)),
			})
		}
		table.Render()
	}

	table := newTable(w, "MetaFuzzer")
	for _, benchmark := range sortedNames(byBenchmark) {
		pairs := byBenchmark[benchmark]
		indi, comb := Union(pairs)
		sites := pairs[0].Sites
		table.Append([]string{benchmark, countCell(sites, indi), countCell(sites, comb)})
	}
	table.Render()
}

func newTable(w io.Writer, title string, columns ...string) *tablewriter.Table {
	if len(columns) == 0 {
		columns = []string{"indi", "all"}
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(append([]string{title}, columns...))
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatMedian(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
