/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: watch.go
Description: CLI command triaging crash files of running trials as they appear.
*/

package commands

import (
	"encoding/json"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RunWatch watches one benchmark/fuzzer pair until interrupted.
func RunWatch(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	benchmark, _ := cmd.Flags().GetString("benchmark")
	fuzzer, _ := cmd.Flags().GetString("fuzzer")

	fs := afero.NewOsFs()
	trials, err := config.Trials(fs, benchmark, fuzzer)
	if err != nil {
		return err
	}
	dir := config.RunningDir(0)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	defer execution.Cleanup()

	executor := execution.NewProcessExecutor(config.RunTimeout())
	watcher := triage.NewWatcher(triage.NewTriager(config, executor, logger), logger, dir)
	enc := json.NewEncoder(cmd.OutOrStdout())
	return watcher.Watch(ctx, trials, benchmark, fuzzer, func(seed triage.Seed) {
		if err := enc.Encode(seed); err != nil {
			logger.GetLogger().WithError(err).Warn("Watch output failed")
		}
	})
}
