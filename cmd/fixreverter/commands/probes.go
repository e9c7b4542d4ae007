/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: probes.go
Description: CLI commands for the built-in harness targets: listing their probe slots and
replaying inputs in-process under a chosen probe setting.
*/

package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/targets"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// ListProbes prints each target with its probe slot count.
func ListProbes(cmd *cobra.Command, args []string) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Target", "Probes"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range targets.All() {
		table.Append([]string{t.Name(), strconv.Itoa(t.Probes())})
	}
	table.Render()
	return nil
}

// RunReplay runs a target on each file and prints the outcome.
func RunReplay(cmd *cobra.Command, args []string) error {
	target, err := targets.Lookup(args[0])
	if err != nil {
		return err
	}
	setting, _ := cmd.Flags().GetString("probes")
	table, err := gate.Parse(setting, target.Probes())
	if err != nil {
		return err
	}

	tracker := harness.NewTracker()
	h := harness.New(target,
		harness.WithProbes(table.WithLog(cmd.ErrOrStderr())),
		harness.WithTracker(tracker))

	out := cmd.OutOrStdout()
	crashed := false
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		crashed = replayOne(out, h, path, data) || crashed
	}
	// A crash abandons whatever the target held.
	if leaked := tracker.Outstanding(); !crashed && len(leaked) > 0 {
		return fmt.Errorf("resources not released: %v", leaked)
	}
	return nil
}

func replayOne(out io.Writer, h *harness.Harness, path string, data []byte) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(out, "%s: crashed: %v\n", path, r)
			crashed = true
		}
	}()

	res := h.Exec(data)
	switch {
	case res.OK() && res.Err != nil:
		fmt.Fprintf(out, "%s: %s (%v) %s\n", path, res.Outcome, res.Err, res.Detail)
	case res.OK():
		fmt.Fprintf(out, "%s: %s %s\n", path, res.Outcome, res.Detail)
	default:
		fmt.Fprintf(out, "%s: %s at %s: %v\n", path, res.Outcome, res.Stage, res.Err)
	}
	return false
}
