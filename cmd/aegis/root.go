// Package aegis implements the operator CLI: computing operation
// identifiers for proposals and collecting recovery signatures offline.
package aegis

import (
	"github.com/spf13/cobra"
)

// BuildRootCmd assembles the CLI command tree.
func BuildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aegis",
		Short: "Operate a timelocked wallet control plane",
	}

	cmd.AddCommand(buildRecoveryCmd())
	cmd.AddCommand(buildOpIDCmd())

	return cmd
}
