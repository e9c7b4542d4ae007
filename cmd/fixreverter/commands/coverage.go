/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: CLI command printing injection coverage tables from stored queue and crash
triage results.
*/

package commands

import (
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RunCoverage prints the coverage tables.
func RunCoverage(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	pairs, err := triage.CoverageAll(afero.NewOsFs(), config)
	if err != nil {
		return err
	}
	triage.RenderCoverage(cmd.OutOrStdout(), pairs)
	return nil
}
