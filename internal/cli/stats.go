package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show ledger and registry statistics",
		Run:   runStats,
	}

	ledgerCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()

	path := ""
	if cfg.DBDriver == "sqlite" {
		path = cfg.DatabaseURL
	}
	stats, err := s.Stats(cmd.Context(), path)
	if err != nil {
		exitErr("stats", err)
	}
	output(stats, nil)
}
