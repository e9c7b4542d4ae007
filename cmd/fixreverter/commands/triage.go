/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: triage.go
Description: CLI command replaying queue or crash seeds of every configured pair, storing
the triaged seeds and writing the run dashboard.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/reporting"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunTriage triages every seed of the configured pairs.
func RunTriage(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	typ := triage.SeedType(viper.GetString("triage.type"))
	if typ != triage.SeedQueue && typ != triage.SeedCrash {
		return fmt.Errorf("unknown seed type %q", typ)
	}

	fs := afero.NewOsFs()
	log := logger.GetLogger()

	var seeds []triage.Seed
	for _, pair := range config.Pairs() {
		benchmark, fuzzer := pair[0], pair[1]
		trials, err := config.Trials(fs, benchmark, fuzzer)
		if err != nil {
			return err
		}
		found, err := triage.Discover(fs, trials, benchmark, fuzzer, typ)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"benchmark": benchmark,
			"fuzzer":    fuzzer,
			"trials":    len(trials),
			"seeds":     len(found),
		}).Info("Corpus discovered")
		seeds = append(seeds, found...)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	defer execution.Cleanup()

	executor := execution.NewProcessExecutor(config.RunTimeout())
	runner := triage.NewRunner(config, fs, triage.NewTriager(config, executor, logger), logger)
	results, summary, err := runner.Run(ctx, seeds)
	if err != nil {
		return fmt.Errorf("triage failed: %w", err)
	}

	if err := triage.Store(fs, config, results); err != nil {
		return err
	}
	if err := triage.StoreSummary(fs, config, summary); err != nil {
		return err
	}

	data := &reporting.DashboardData{
		Title:   fmt.Sprintf("FIXREVERTER %s triage", typ),
		Summary: summary,
	}
	if typ == triage.SeedCrash {
		data.Counts = countResults(results)
	}
	if err := reporting.NewDashboardGenerator(fs, log).GenerateDashboard(config.ReportPath(), data); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"seeds":    len(results),
		"duration": summary.Duration,
	}).Info("Triage finished")
	return nil
}

func countResults(seeds []triage.Seed) []triage.PairCount {
	groups := make(map[[2]string][]triage.Seed)
	for _, s := range seeds {
		key := [2]string{s.Benchmark, s.Fuzzer}
		groups[key] = append(groups[key], s)
	}
	var counts []triage.PairCount
	for _, p := range triage.Summarize(seeds) {
		counts = append(counts, triage.CountPair(p.Benchmark, p.Fuzzer, groups[[2]string{p.Benchmark, p.Fuzzer}]))
	}
	return counts
}
