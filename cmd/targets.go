package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the selected technologies and flows",
	Long:  "Print what `run` would execute with the same --tech, --flow and --runs filters, without running anything.",
	RunE:  runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	addSelectionFlags(targetsCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	sel, err := buildSelection(cmd)
	if err != nil {
		return err
	}
	_, plan, err := loadPlan(cfg, sel)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Runs: %d\n", plan.Runs)
	fmt.Fprintln(out, "Technologies:")
	for _, app := range plan.Apps {
		fmt.Fprintf(out, "  %-10s %-12s %s  %s\n", app.Tech, app.DisplayName(), app.BaseURL(), app.Dir)
		fmt.Fprintf(out, "             preview: %s\n", strings.Join(app.ResolvePreviewCommand(), " "))
	}
	fmt.Fprintln(out, "Flows:")
	for _, flow := range plan.Flows {
		fmt.Fprintf(out, "  %-24s %s\n", flow.Name, flow.EntryPath)
	}
	return nil
}
