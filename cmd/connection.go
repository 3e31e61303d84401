package cmd

import (
	"fmt"

	"depctl/internal/connections"

	"github.com/spf13/cobra"
)

func newConnectionCmd() *cobra.Command {
	connectionCmd := &cobra.Command{
		Use:   "connection",
		Short: "Manage cluster connections",
	}
	connectionCmd.AddCommand(newConnectionListCmd())
	connectionCmd.AddCommand(newConnectionSetCmd())
	connectionCmd.AddCommand(newConnectionDeleteCmd())
	return connectionCmd
}

func newConnectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured connections and groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			conns := e.registry.List()
			if len(conns) == 0 {
				fmt.Println("No connections configured.")
				return nil
			}
			for _, conn := range conns {
				kind := "cluster"
				if conn.Simulated {
					kind = "simulated"
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n", conn.ID, conn.Name, kind, conn.ResolvedNamespace(), conn.Group)
			}
			for _, grp := range e.registry.Groups() {
				fmt.Printf("group %s\t%s\n", grp.Name, grp.Description)
			}
			return nil
		},
	}
}

func newConnectionSetCmd() *cobra.Command {
	var conn connections.Connection

	setCmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			conn.ID = args[0]
			if conn.Name == "" {
				conn.Name = conn.ID
			}
			if err := e.registry.Save(conn); err != nil {
				return err
			}
			// A cached client built from the old record is now stale.
			e.clients.Invalidate(conn.ID)
			fmt.Printf("Saved connection %s\n", conn.ID)
			return nil
		},
	}
	setCmd.Flags().StringVar(&conn.Name, "name", "", "Display name (defaults to the id)")
	setCmd.Flags().StringVar(&conn.APIURL, "url", "", "Cluster API server URL")
	setCmd.Flags().StringVar(&conn.Token, "token", "", "Bearer token")
	setCmd.Flags().StringVar(&conn.Namespace, "namespace", "", "Default namespace for this connection")
	setCmd.Flags().StringVar(&conn.Group, "group", "", "Connection group")
	setCmd.Flags().BoolVar(&conn.Simulated, "simulated", false, "Serve synthetic data instead of contacting a cluster")
	return setCmd
}

func newConnectionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			if err := e.registry.Delete(args[0]); err != nil {
				return err
			}
			e.clients.Invalidate(args[0])
			fmt.Printf("Deleted connection %s\n", args[0])
			return nil
		},
	}
}
