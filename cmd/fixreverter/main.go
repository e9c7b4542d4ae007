/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for FIXREVERTER triage. Builds triage binaries,
extracts FuzzBench corpora, replays seeds against instrumented harnesses to find minimal
crash sets, counts crashing injections and coverage, and inspects the built-in targets.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/fixreverter-harness/cmd/fixreverter/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fixreverter",
		Short: "FIXREVERTER triage toolkit",
		Long: `fixreverter drives triage of fuzzing campaigns run against FIXREVERTER
instrumented harnesses. It extracts FuzzBench trial corpora, replays queue and crash
seeds to learn which injections they reach and trigger, searches for minimal crash
sets and summarizes crashing injections per fuzzer.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().String("log-dir", "", "Log output directory (empty for console only)")
	rootCmd.PersistentFlags().Int("log-max-files", 10, "Maximum number of log files to keep")
	rootCmd.PersistentFlags().String("work-dir", "work", "Working directory for extracted data and scratch space")
	rootCmd.PersistentFlags().String("out-dir", "out", "Output directory for parsed seeds and reports")
	rootCmd.PersistentFlags().Int("cores", 1, "Number of parallel replays")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log.output_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log.max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))
	viper.BindPFlag("work_dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("out_dir", rootCmd.PersistentFlags().Lookup("out-dir"))
	viper.BindPFlag("cores", rootCmd.PersistentFlags().Lookup("cores"))

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Compile instrumented triage binaries",
		Long: `Compile the built-in harness target of every configured benchmark with the
frcov tag into the triage binary directory and write its probe site list (dda.json)
next to it. Benchmarks must map to a built-in target through the targets setting.`,
		Args: cobra.NoArgs,
		RunE: commands.RunBuild,
	}
	buildCmd.Flags().String("source-dir", ".", "Module root holding the cmd/<target> packages")
	buildCmd.Flags().String("go", "go", "Go toolchain binary")
	viper.BindPFlag("build.source_dir", buildCmd.Flags().Lookup("source-dir"))
	viper.BindPFlag("build.go", buildCmd.Flags().Lookup("go"))
	rootCmd.AddCommand(buildCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "prepare",
		Short: "Extract trial corpora from FuzzBench experiments",
		Long: `Extract the newest corpus archive of every trial for each configured
benchmark/fuzzer pair into the work directory. Each pair must appear in exactly one
experiment.`,
		Args: cobra.NoArgs,
		RunE: commands.RunPrepare,
	})

	triageCmd := &cobra.Command{
		Use:   "triage",
		Short: "Replay seeds and find minimal crash sets",
		Long: `Replay every queue or crash seed of the configured pairs against the triage
binaries. Queue seeds record reached and triggered injections; crash seeds are also
searched for minimal crash sets. Results are stored as JSON per fuzzer and benchmark.`,
		Args: cobra.NoArgs,
		RunE: commands.RunTriage,
	}
	triageCmd.Flags().String("type", "crash", "Seed type to triage (queue, crash)")
	triageCmd.Flags().Duration("unit-timeout", 0, "Per-input timeout passed to the binary (0 keeps the config value)")
	triageCmd.Flags().Int("max-combination", 0, "Largest trigger combination to try (0 keeps the config value)")
	viper.BindPFlag("triage.type", triageCmd.Flags().Lookup("type"))
	viper.BindPFlag("triage.unit_timeout", triageCmd.Flags().Lookup("unit-timeout"))
	viper.BindPFlag("triage.max_combination", triageCmd.Flags().Lookup("max-combination"))
	rootCmd.AddCommand(triageCmd)

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count crashing injections per fuzzer",
		Long: `Count, per trial, the injections that crash alone (individual) and those in
any minimal crash set (combined), and print the medians per fuzzer and benchmark.`,
		Args: cobra.NoArgs,
		RunE: commands.RunCount,
	}
	countCmd.Flags().Bool("report", false, "Also write the HTML dashboard")
	viper.BindPFlag("count.report", countCmd.Flags().Lookup("report"))
	rootCmd.AddCommand(countCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "coverage",
		Short: "Summarize injection coverage per fuzzer",
		Long: `Summarize, per trial, the injections reached, triggered, crashing alone
(single_causes) and crashing in any minimal set (all_causes) over both queue and
crash results, and print the medians per fuzzer and benchmark. Cells carry a
COND_ABORT COND_EXEC COND_ASSIGN breakdown when the benchmark has a dda.json.`,
		Args: cobra.NoArgs,
		RunE: commands.RunCoverage,
	})

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Triage crash files of running trials as they appear",
		Long: `Watch the crash directories of the extracted trials of one benchmark/fuzzer
pair and triage each new crash file, printing one JSON line per triaged seed.`,
		Args: cobra.NoArgs,
		RunE: commands.RunWatch,
	}
	watchCmd.Flags().String("benchmark", "", "Benchmark to watch (required)")
	watchCmd.Flags().String("fuzzer", "", "Fuzzer to watch (required)")
	watchCmd.MarkFlagRequired("benchmark")
	watchCmd.MarkFlagRequired("fuzzer")
	rootCmd.AddCommand(watchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "probes",
		Short: "List the built-in harness targets and their probe counts",
		Args:  cobra.NoArgs,
		RunE:  commands.ListProbes,
	})

	replayCmd := &cobra.Command{
		Use:   "replay <target> <file>...",
		Short: "Run built-in harness targets in-process on input files",
		Long: `Run a built-in harness target on each file with the given FIXREVERTER
probe setting and print the outcome. Probe sites log to stderr.`,
		Args: cobra.MinimumNArgs(2),
		RunE: commands.RunReplay,
	}
	replayCmd.Flags().String("probes", "", `Probe setting, e.g. "on 1 3" or "off " (empty enables all)`)
	rootCmd.AddCommand(replayCmd)

	return rootCmd
}
