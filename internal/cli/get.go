package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show the record for a proxied message",
		Args:  cobra.ExactArgs(1),
		Run:   runLedgerGet,
	}
	cmd.Flags().Bool("source", false, "Look up by the original message id instead")

	ledgerCmd.AddCommand(cmd)
}

func runLedgerGet(cmd *cobra.Command, args []string) {
	bySource, _ := cmd.Flags().GetBool("source")

	s, _ := openStore()
	defer s.Close()

	get := s.Get
	if bySource {
		get = s.GetBySource
	}
	rec, err := get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	output(rec, func() {
		fmt.Printf("%s\t%s\t%s\trev=%d\t%s\n", rec.MessageID, rec.MemberID, rec.Origin, rec.Revision, rec.Text)
	})
}
