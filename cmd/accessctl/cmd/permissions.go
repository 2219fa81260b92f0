package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/accessdesk/accessdesk/internal/client"
)

var errDenied = errors.New("denied")

var canCmd = &cobra.Command{
	Use:   "can <resource> <action>",
	Short: "Check the cached matrix for a permission",
	Long: `can answers from the locally cached matrix and exits non-zero when the
permission is not granted. Without a session every check is denied.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		resource, action := strings.ToLower(args[0]), strings.ToLower(args[1])
		if !c.Cache().HasPermission(resource, action) {
			return fmt.Errorf("%w: %s.%s", errDenied, resource, action)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "allowed %s.%s\n", resource, action)
		return nil
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the cached permission matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		session, err := c.Cache().Session()
		if err != nil {
			return err
		}
		return printMatrix(cmd, session)
	},
}

func printMatrix(cmd *cobra.Command, session *client.Session) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Role: %s\n", roleLabel(session.RoleName))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tACTION\tALLOWED")
	m := session.Permissions
	for _, resource := range m.Resources() {
		for _, action := range m.Actions(resource) {
			fmt.Fprintf(w, "%s\t%s\t%t\n", resource, action, m.Allows(resource, action))
		}
	}
	return w.Flush()
}
