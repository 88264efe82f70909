package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export members and ledger records as JSON",
		Long:  "Export members and ledger records as JSON. Filter by owning user with -u.",
		Run:   runExport,
	}

	cmd.Flags().StringP("user", "u", "", "Filter by owning user")

	ledgerCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, _ := openStore()
	defer s.Close()

	dump, err := s.ExportAll(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}
	output(dump, nil)
}
