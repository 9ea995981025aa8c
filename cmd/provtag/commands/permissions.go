package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/provtag/pkg/engine/permissions"
)

var permissionsReadOnly bool

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Generate Least-Privilege IAM Policy",
	Long: `Generates the AWS IAM JSON Policy required to run provtag.

Use --read-only for a policy that covers 'report' and '--dry-run' only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonBytes, err := permissions.GeneratePolicy(nil, permissionsReadOnly)
		if err != nil {
			return fmt.Errorf("failed to generate policy: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	},
}

func init() {
	permissionsCmd.Flags().BoolVar(&permissionsReadOnly, "read-only", false, "Omit tag write actions")
}
