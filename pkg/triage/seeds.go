/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: seeds.go
Description: Seed discovery over fuzzer output directories. Knows where each supported
fuzzer keeps its queue and crash corpora and how it names the files, and recovers seed
ids and discovery times from those names or from file modification times.
*/

package triage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// SeedType selects the queue or crash corpus of a trial.
type SeedType string

const (
	SeedQueue SeedType = "queue"
	SeedCrash SeedType = "crash"
)

// ErrUnknownFuzzer is returned for fuzzers without a known corpus layout.
var ErrUnknownFuzzer = errors.New("unknown fuzzer")

var queueStores = map[string][]string{
	"aflplusplus": {"corpus/default/queue"},
	"afl":         {"corpus/queue"},
	"libfuzzer":   {"corpus/corpus"},
	"eclipser":    {"corpus/afl-worker/queue", "corpus/eclipser_output/queue"},
	"fairfuzz":    {"corpus/queue"},
}

var crashStores = map[string][]string{
	"aflplusplus": {"corpus/default/crashes"},
	"afl":         {"corpus/crashes"},
	"libfuzzer":   {"corpus/crashes"},
	"eclipser":    {"corpus/afl-worker/crashes", "corpus/eclipser_output/crashes"},
	"fairfuzz":    {"corpus/crashes"},
}

// Seed is one corpus entry and, once triaged, what it exercised.
type Seed struct {
	Path      string   `json:"path"`
	Type      SeedType `json:"type"`
	Benchmark string   `json:"benchmark"`
	Fuzzer    string   `json:"fuzzer"`
	Trial     string   `json:"trial"`
	ID        int      `json:"id"`
	Time      float64  `json:"time"` // seconds since the trial's first seed
	Reaches   []int    `json:"reaches"`
	Triggers  []int    `json:"triggers"`
	Crashes   [][]int  `json:"crashes"` // minimal crash sets, crash seeds only
}

// Stores returns the corpus directories of a fuzzer, relative to a trial.
func Stores(fuzzer string, typ SeedType) ([]string, error) {
	stores := queueStores
	if typ == SeedCrash {
		stores = crashStores
	}
	dirs, ok := stores[fuzzer]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFuzzer, fuzzer)
	}
	return dirs, nil
}

// Fuzzers lists the fuzzers with a known layout.
func Fuzzers() []string {
	names := make([]string, 0, len(queueStores))
	for name := range queueStores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover lists the seeds of every trial. trials maps a trial name to its
// extracted directory. Missing corpus directories yield no seeds.
func Discover(fs afero.Fs, trials map[string]string, benchmark, fuzzer string, typ SeedType) ([]Seed, error) {
	dirs, err := Stores(fuzzer, typ)
	if err != nil {
		return nil, err
	}
	hasTime := fuzzer == "aflplusplus"
	hasID := fuzzer != "libfuzzer" && fuzzer != "eclipser"

	var all []Seed
	for _, trial := range TrialNames(trials) {
		var seeds []Seed
		var mtimes []float64
		for _, rel := range dirs {
			dir := filepath.Join(trials[trial], rel)
			entries, err := afero.ReadDir(fs, dir)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", dir, err)
			}
			for _, entry := range entries {
				name := entry.Name()
				if !entry.Mode().IsRegular() || !wantFile(name, fuzzer, typ) {
					continue
				}
				seed := Seed{
					Path:      filepath.Join(dir, name),
					Type:      typ,
					Benchmark: benchmark,
					Fuzzer:    fuzzer,
					Trial:     trial,
				}
				fields := nameFields(name)
				if hasTime {
					if ms, err := strconv.ParseInt(fields["time"], 10, 64); err == nil {
						seed.Time = float64(ms) / 1000
					}
				}
				if hasID {
					if id, err := strconv.Atoi(fields["id"]); err == nil {
						seed.ID = id
					}
				}
				seeds = append(seeds, seed)
				mtimes = append(mtimes, float64(entry.ModTime().UnixNano())/1e9)
			}
		}

		if !hasTime {
			for i := range seeds {
				seeds[i].Time = mtimes[i]
			}
		}
		// Seeds without a recorded time are ordered by mtime.
		sortSeeds(seeds, hasID && hasTime)
		if !hasID {
			for i := range seeds {
				seeds[i].ID = i
			}
		}
		if !hasTime && len(seeds) > 0 {
			first := seeds[0].Time
			for i := range seeds {
				seeds[i].Time = roundCenti(seeds[i].Time - first)
			}
		}
		all = append(all, seeds...)
	}
	return all, nil
}

// TrialNames returns the trial names of a trial map, sorted.
func TrialNames(trials map[string]string) []string {
	names := make([]string, 0, len(trials))
	for name := range trials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortSeeds(seeds []Seed, byID bool) {
	sort.SliceStable(seeds, func(i, j int) bool {
		if byID && seeds[i].ID != seeds[j].ID {
			return seeds[i].ID < seeds[j].ID
		}
		if seeds[i].Time != seeds[j].Time {
			return seeds[i].Time < seeds[j].Time
		}
		return seeds[i].Path < seeds[j].Path
	})
}

func wantFile(name, fuzzer string, typ SeedType) bool {
	if name == "README.txt" || strings.HasPrefix(name, ".") {
		return false
	}
	if fuzzer == "libfuzzer" && typ == SeedCrash {
		return strings.HasPrefix(name, "crash") || strings.HasPrefix(name, "oom")
	}
	return true
}

// nameFields splits an AFL style name such as "id:000012,src:000003,time:812"
// into its key/value pairs.
func nameFields(name string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(name, ",") {
		key, value, ok := strings.Cut(part, ":")
		if ok {
			fields[key] = value
		}
	}
	return fields
}

func roundCenti(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
