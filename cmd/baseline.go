package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	baselineConnection string
	baselineNamespace  string
)

func newBaselineCmd() *cobra.Command {
	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage saved replica baselines",
	}
	baselineCmd.PersistentFlags().StringVarP(&baselineConnection, "connection", "c", "", "Connection id (required)")
	baselineCmd.PersistentFlags().StringVarP(&baselineNamespace, "namespace", "n", "default", "Namespace")
	_ = baselineCmd.MarkPersistentFlagRequired("connection")

	baselineCmd.AddCommand(newBaselineSaveCmd())
	baselineCmd.AddCommand(newBaselineShowCmd())
	baselineCmd.AddCommand(newBaselineClearCmd())
	return baselineCmd
}

func newBaselineSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the namespace's current replica counts as the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			if err := e.orch.SaveCurrentState(cmd.Context(), baselineConnection, baselineNamespace); err != nil {
				return err
			}
			fmt.Printf("Saved baseline for %s/%s\n", baselineConnection, baselineNamespace)
			return nil
		},
	}
}

func newBaselineShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved baseline for the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			baseline := e.baselines.GetBaseline(baselineConnection, baselineNamespace)
			if len(baseline) == 0 {
				fmt.Println("No saved baseline.")
				return nil
			}
			names := make([]string, 0, len(baseline))
			for name := range baseline {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %s: %d\n", name, baseline[name])
			}
			if updated := e.baselines.LastUpdated(baselineConnection, baselineNamespace); !updated.IsZero() {
				fmt.Printf("Last saved %s\n", updated.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newBaselineClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved baseline for the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			if err := e.baselines.Clear(baselineConnection, baselineNamespace); err != nil {
				return err
			}
			fmt.Printf("Cleared baseline for %s/%s\n", baselineConnection, baselineNamespace)
			return nil
		},
	}
}
