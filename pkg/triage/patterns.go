/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: patterns.go
Description: Probe site lists (dda.json) and the per-pattern breakdown of injection sets.
*/

package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/spf13/afero"
)

// siteEntry is one element of a dda.json list. Other keys written by the
// instrumentation pass are ignored.
type siteEntry struct {
	Index   int          `json:"index"`
	Pattern gate.Pattern `json:"pattern"`
}

// LoadSites reads the dda.json of a benchmark. A missing file yields an empty
// map: ids then count toward the totals only.
func LoadSites(afs afero.Fs, config *Config, benchmark string) (gate.Sites, error) {
	path := config.DDAFile(benchmark)
	data, err := afero.ReadFile(afs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return gate.Sites{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var entries []siteEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	sites := make(gate.Sites, len(entries))
	for _, e := range entries {
		sites[e.Index] = e.Pattern
	}
	return sites, nil
}

// StoreSites writes the dda.json of a benchmark, ordered by id.
func StoreSites(afs afero.Fs, config *Config, benchmark string, sites gate.Sites) error {
	entries := make([]siteEntry, 0, len(sites))
	for id, p := range sites {
		entries = append(entries, siteEntry{Index: id, Pattern: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return writeJSON(afs, config.DDAFile(benchmark), entries)
}

// Breakdown counts ids per pattern, in gate.Patterns order. Ids without a
// known pattern are left out.
func Breakdown(sites gate.Sites, ids []int) []int {
	counts := make([]int, len(gate.Patterns))
	for _, id := range ids {
		for i, p := range gate.Patterns {
			if sites[id] == p {
				counts[i]++
			}
		}
	}
	return counts
}

// medianBreakdown is the per-pattern median of a list of id sets.
func medianBreakdown(sites gate.Sites, sets [][]int) []float64 {
	perPattern := make([][]int, len(gate.Patterns))
	for _, ids := range sets {
		for i, n := range Breakdown(sites, ids) {
			perPattern[i] = append(perPattern[i], n)
		}
	}
	medians := make([]float64, len(gate.Patterns))
	for i, values := range perPattern {
		medians[i] = Median(values)
	}
	return medians
}

// formatCell renders a total with its pattern breakdown, e.g. "10 (7 1 2)".
// Without a site list only the total is shown.
func formatCell(sites gate.Sites, total float64, parts []float64) string {
	if len(sites) == 0 {
		return formatMedian(total)
	}
	fields := make([]string, len(parts))
	for i, v := range parts {
		fields[i] = formatMedian(v)
	}
	return formatMedian(total) + " (" + strings.Join(fields, " ") + ")"
}

func countCell(sites gate.Sites, ids []int) string {
	parts := make([]float64, len(gate.Patterns))
	for i, n := range Breakdown(sites, ids) {
		parts[i] = float64(n)
	}
	return formatCell(sites, float64(len(ids)), parts)
}
