/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dashboard.go
Description: HTML dashboard for triage runs. Renders the run summary, per-pair seed
statistics and crash counts into a single self-contained report page.
*/

package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DashboardGenerator writes triage dashboards.
type DashboardGenerator struct {
	fs        afero.Fs
	logger    logrus.FieldLogger
	templates *template.Template
}

// DashboardData contains all data for dashboard generation
type DashboardData struct {
	Title       string
	GeneratedAt time.Time
	Summary     *triage.Summary
	Counts      []triage.PairCount
	Injections  []InjectionRow
}

// InjectionRow lists which fuzzers crashed an injection.
type InjectionRow struct {
	ID         int
	Individual []string
	Combined   []string
}

// NewDashboardGenerator creates a new dashboard generator
func NewDashboardGenerator(fs afero.Fs, logger logrus.FieldLogger) *DashboardGenerator {
	funcs := template.FuncMap{
		"median":   func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
		"duration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
		"join":     joinNames,
	}
	return &DashboardGenerator{
		fs:        fs,
		logger:    logger,
		templates: template.Must(template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate)),
	}
}

// GenerateDashboard renders data to path.
func (dg *DashboardGenerator) GenerateDashboard(path string, data *DashboardData) error {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	if data.Injections == nil {
		data.Injections = Injections(data.Counts)
	}

	var buf bytes.Buffer
	if err := dg.templates.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	if err := dg.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := afero.WriteFile(dg.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write dashboard: %w", err)
	}

	dg.logger.WithField("path", path).Info("Dashboard generated")
	return nil
}

// Injections pivots counts into one row per crashing injection.
func Injections(counts []triage.PairCount) []InjectionRow {
	rows := make(map[int]*InjectionRow)
	get := func(id int) *InjectionRow {
		if r, ok := rows[id]; ok {
			return r
		}
		r := &InjectionRow{ID: id}
		rows[id] = r
		return r
	}
	for _, c := range counts {
		indi, comb := triage.Union([]triage.PairCount{c})
		for _, id := range indi {
			r := get(id)
			r.Individual = appendUnique(r.Individual, c.Fuzzer)
		}
		for _, id := range comb {
			r := get(id)
			r.Combined = appendUnique(r.Combined, c.Fuzzer)
		}
	}

	out := make([]InjectionRow, 0, len(rows))
	for _, r := range rows {
		sort.Strings(r.Individual)
		sort.Strings(r.Combined)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
