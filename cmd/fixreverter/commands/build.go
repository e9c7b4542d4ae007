/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: build.go
Description: CLI command compiling the triage binaries of the configured benchmarks.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/targets"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunBuild builds one triage binary per configured benchmark. Every benchmark
// must map to a built-in target.
func RunBuild(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	defer execution.Cleanup()

	builder := triage.NewBuilder(config, execution.NewProcessExecutor(0), afero.NewOsFs(), logger, viper.GetString("build.source_dir"))
	if gobin := viper.GetString("build.go"); gobin != "" {
		builder.GoBinary = gobin
	}
	for _, benchmark := range config.Benchmarks {
		target, err := targets.Lookup(config.Target(benchmark))
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", benchmark, err)
		}
		if err := builder.Build(ctx, benchmark, targets.SitesOf(target)); err != nil {
			return err
		}
	}
	return nil
}
