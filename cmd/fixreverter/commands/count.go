/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: count.go
Description: CLI command printing crash count tables from stored crash triage results.
*/

package commands

import (
	"github.com/kleascm/fixreverter-harness/pkg/reporting"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunCount prints the crash tables.
func RunCount(cmd *cobra.Command, args []string) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	fs := afero.NewOsFs()
	counts, err := triage.CountAll(fs, config)
	if err != nil {
		return err
	}
	triage.RenderCounts(cmd.OutOrStdout(), counts)

	if !viper.GetBool("count.report") {
		return nil
	}
	return reporting.NewDashboardGenerator(fs, logger.GetLogger()).GenerateDashboard(config.ReportPath(), &reporting.DashboardData{
		Title:  "FIXREVERTER crash counts",
		Counts: counts,
	})
}
