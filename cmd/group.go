package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGroupCmd() *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Run operations across every connection in a group",
	}
	groupCmd.AddCommand(newGroupRestartCmd())
	groupCmd.AddCommand(newGroupShutdownCmd())
	groupCmd.AddCommand(newGroupRestoreCmd())
	groupCmd.AddCommand(newGroupScaleCmd())
	groupCmd.AddCommand(newGroupSaveCmd())
	return groupCmd
}

func newGroupRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <group>",
		Short: "Restart every deployment of every connection in the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			result, err := e.orch.GroupRestartAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResults(result.Results)
			return nil
		},
	}
}

func newGroupShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown <group>",
		Short: "Shut down every deployment of every connection in the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			result, err := e.orch.GroupShutdownAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResults(result.Results)
			return nil
		},
	}
}

func newGroupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <group>",
		Short: "Restore every deployment of every connection in the group to its baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			result, err := e.orch.GroupRestoreAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResults(result.Results)
			return nil
		},
	}
}

func newGroupScaleCmd() *cobra.Command {
	var replicas int32

	scaleCmd := &cobra.Command{
		Use:   "scale <group>",
		Short: "Scale every deployment of every connection in the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			result, err := e.orch.GroupScaleAll(cmd.Context(), args[0], replicas)
			if err != nil {
				return err
			}
			printResults(result.Results)
			return nil
		},
	}
	scaleCmd.Flags().Int32Var(&replicas, "replicas", 1, "Target replica count")
	return scaleCmd
}

func newGroupSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <group>",
		Short: "Save the current state of every connection in the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			result, err := e.orch.GroupSaveState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Saved state for %d of %d connections\n", result.SuccessCount, result.TotalCount)
			return nil
		},
	}
}
