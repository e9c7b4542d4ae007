/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: prepare.go
Description: CLI command extracting FuzzBench trial corpora into the work directory.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RunPrepare extracts the configured experiments.
func RunPrepare(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	if config.FuzzbenchExpDir == "" {
		return fmt.Errorf("fuzzbench_exp_dir is required")
	}
	log := logger.GetLogger()
	log.WithField("experiments", config.Experiments).Info("Corpus extraction started")

	if err := triage.NewPreparer(config, afero.NewOsFs(), log).Prepare(); err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}
	log.Info("Corpus extraction finished")
	return nil
}
