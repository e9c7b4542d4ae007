/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dashboard_test.go
Description: Tests for the triage dashboard, parsing the rendered page with goquery.
*/

package reporting_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kleascm/fixreverter-harness/pkg/reporting"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crash(trial string, sets ...[]int) triage.Seed {
	return triage.Seed{Type: triage.SeedCrash, Trial: trial, Crashes: sets}
}

func sampleCounts() []triage.PairCount {
	return []triage.PairCount{
		triage.CountPair("libxml2", "afl", []triage.Seed{crash("t1", []int{1}), crash("t2", []int{1}, []int{2, 3})}),
		triage.CountPair("libxml2", "libfuzzer", []triage.Seed{crash("t1", []int{2})}),
	}
}

func render(t *testing.T, data *reporting.DashboardData) *goquery.Document {
	t.Helper()
	fs := afero.NewMemMapFs()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gen := reporting.NewDashboardGenerator(fs, logger)
	require.NoError(t, gen.GenerateDashboard("/out/report.html", data))

	page, err := afero.ReadFile(fs, "/out/report.html")
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	require.NoError(t, err)
	return doc
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		out = append(out, td.Text())
	})
	return out
}

func TestDashboard(t *testing.T) {
	doc := render(t, &reporting.DashboardData{
		Title:       "libxml2 <triage>",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Summary: &triage.Summary{
			RunID:    "3f0c",
			Type:     triage.SeedCrash,
			Duration: 1500 * time.Millisecond,
			Pairs: []triage.PairSummary{
				{Benchmark: "libxml2", Fuzzer: "afl", Seeds: 12, Reaching: 10, Triggering: 4, CrashSets: 3},
			},
		},
		Counts: sampleCounts(),
	})

	assert.Equal(t, "libxml2 <triage>", doc.Find("h1").Text())
	assert.Equal(t, "3f0c", doc.Find(".run-id").Text())
	assert.Contains(t, doc.Find("#run").Text(), "1.5s")

	seeds := doc.Find("#seeds tbody tr")
	require.Equal(t, 1, seeds.Length())
	assert.Equal(t, []string{"afl", "libxml2", "12", "10", "4", "3"}, cells(seeds.First()))

	counts := doc.Find("#counts tbody tr")
	require.Equal(t, 2, counts.Length())
	assert.Equal(t, []string{"afl", "libxml2", "2", "1", "2"}, cells(counts.Eq(0)))
	assert.Equal(t, []string{"libfuzzer", "libxml2", "1", "1", "1"}, cells(counts.Eq(1)))

	injections := doc.Find("#injections tbody tr")
	require.Equal(t, 3, injections.Length())
	assert.Equal(t, []string{"1", "afl", "afl"}, cells(injections.Eq(0)))
	assert.Equal(t, []string{"2", "libfuzzer", "afl, libfuzzer"}, cells(injections.Eq(1)))
	assert.Equal(t, []string{"3", "-", "afl"}, cells(injections.Eq(2)))
}

func TestDashboardEmpty(t *testing.T) {
	doc := render(t, &reporting.DashboardData{Title: "empty"})

	assert.Equal(t, 0, doc.Find("#seeds").Length())
	assert.Equal(t, 0, doc.Find("#counts").Length())
	assert.Equal(t, 2, doc.Find(".empty").Length())
}
