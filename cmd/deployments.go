package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deploymentsConnection string
	deploymentsNamespace  string
)

func newDeploymentsCmd() *cobra.Command {
	deploymentsCmd := &cobra.Command{
		Use:   "deployments",
		Short: "Inspect and control deployments on a connection",
	}
	deploymentsCmd.PersistentFlags().StringVarP(&deploymentsConnection, "connection", "c", "", "Connection id (required)")
	deploymentsCmd.PersistentFlags().StringVarP(&deploymentsNamespace, "namespace", "n", "default", "Namespace")
	_ = deploymentsCmd.MarkPersistentFlagRequired("connection")

	deploymentsCmd.AddCommand(newDeploymentsListCmd())
	deploymentsCmd.AddCommand(newDeploymentsNamespacesCmd())
	deploymentsCmd.AddCommand(newDeploymentsScaleCmd())
	deploymentsCmd.AddCommand(newDeploymentsRestartCmd())
	deploymentsCmd.AddCommand(newDeploymentsShutdownCmd())
	deploymentsCmd.AddCommand(newDeploymentsRestoreCmd())
	return deploymentsCmd
}

func newDeploymentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deployments in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			summaries, err := e.orch.List(cmd.Context(), deploymentsConnection, deploymentsNamespace)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No deployments found.")
				return nil
			}
			fmt.Printf("%-30s %8s %10s %8s %10s  %s\n", "NAME", "DESIRED", "AVAILABLE", "READY", "BASELINE", "STATUS")
			for _, s := range summaries {
				fmt.Printf("%-30s %8d %10d %8d %10d  %s\n",
					s.Name, s.DesiredReplicas, s.AvailableReplicas, s.ReadyReplicas, s.BaselineReplicas, s.Status)
			}
			return nil
		},
	}
}

func newDeploymentsNamespacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List namespaces visible through the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			namespaces, err := e.orch.Namespaces(cmd.Context(), deploymentsConnection)
			if err != nil {
				return err
			}
			for _, ns := range namespaces {
				fmt.Println(ns)
			}
			return nil
		},
	}
}

func newDeploymentsScaleCmd() *cobra.Command {
	var replicas int32

	scaleCmd := &cobra.Command{
		Use:   "scale <name>...",
		Short: "Scale deployments to a replica count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			results, err := e.orch.ScaleSelected(cmd.Context(), deploymentsConnection, deploymentsNamespace, args, replicas)
			if err != nil {
				return err
			}
			printResults(results)
			return nil
		},
	}
	scaleCmd.Flags().Int32Var(&replicas, "replicas", 1, "Target replica count")
	return scaleCmd
}

func newDeploymentsRestartCmd() *cobra.Command {
	var deletePods bool

	restartCmd := &cobra.Command{
		Use:   "restart [name]...",
		Short: "Restart deployments (all in the namespace when no name is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if deletePods {
				if len(args) != 1 {
					return fmt.Errorf("--pods requires exactly one deployment name")
				}
				ok, err := e.orch.RestartPods(ctx, deploymentsConnection, deploymentsNamespace, args[0])
				if err != nil {
					return err
				}
				printResults(map[string]bool{args[0]: ok})
				return nil
			}

			var results map[string]bool
			if len(args) == 0 {
				results, err = e.orch.RestartAll(ctx, deploymentsConnection, deploymentsNamespace)
			} else {
				results, err = e.orch.RestartSelected(ctx, deploymentsConnection, deploymentsNamespace, args)
			}
			if err != nil {
				return err
			}
			printResults(results)
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&deletePods, "pods", false, "Restart by deleting the deployment's pods instead of a rolling restart")
	return restartCmd
}

func newDeploymentsShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown [name]...",
		Short: "Scale deployments to zero, saving their replica counts first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var results map[string]bool
			switch len(args) {
			case 0:
				results, err = e.orch.ShutdownAll(ctx, deploymentsConnection, deploymentsNamespace)
			case 1:
				var ok bool
				ok, err = e.orch.Shutdown(ctx, deploymentsConnection, deploymentsNamespace, args[0])
				results = map[string]bool{args[0]: ok}
			default:
				results, err = e.orch.ShutdownSelected(ctx, deploymentsConnection, deploymentsNamespace, args)
			}
			if err != nil {
				return err
			}
			printResults(results)
			return nil
		},
	}
}

func newDeploymentsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [name]...",
		Short: "Scale deployments back to their saved replica counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var results map[string]bool
			switch len(args) {
			case 0:
				results, err = e.orch.RestoreAll(ctx, deploymentsConnection, deploymentsNamespace)
				if err == nil && len(results) == 0 {
					fmt.Println("No saved baseline for this namespace; nothing to restore.")
					return nil
				}
			case 1:
				var ok bool
				ok, err = e.orch.Restore(ctx, deploymentsConnection, deploymentsNamespace, args[0])
				results = map[string]bool{args[0]: ok}
			default:
				results, err = e.orch.RestoreSelected(ctx, deploymentsConnection, deploymentsNamespace, args)
			}
			if err != nil {
				return err
			}
			printResults(results)
			return nil
		},
	}
}
