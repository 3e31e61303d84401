package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newMeasureCmd() *cobra.Command {
	var (
		connection string
		namespace  string
	)

	measureCmd := &cobra.Command{
		Use:   "measure <name>...",
		Short: "Measure pod startup latency for deployments",
		Long: `Measures startup latency by deleting one pod of each named deployment and
timing how long the replacement pod takes between being initialized and being
ready to start its containers. Deployments whose latency cannot be measured
are reported as unmeasurable, not as failures.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			results, err := e.probe.MeasureSelected(cmd.Context(), connection, namespace, args)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if seconds := results[name]; seconds != nil {
					fmt.Printf("  %s: %ds\n", name, *seconds)
				} else {
					fmt.Printf("  %s: unmeasurable\n", name)
				}
			}
			return nil
		},
	}
	measureCmd.Flags().StringVarP(&connection, "connection", "c", "", "Connection id (required)")
	measureCmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace")
	_ = measureCmd.MarkFlagRequired("connection")
	return measureCmd
}
