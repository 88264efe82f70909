package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proxied messages, newest first",
		Run:   runLedgerList,
	}

	cmd.Flags().StringP("user", "u", "", "Filter by owning user")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output message ids")

	ledgerCmd.AddCommand(cmd)
}

func runLedgerList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, _ := openStore()
	defer s.Close()

	records, err := s.List(cmd.Context(), store.ListParams{
		UserID: user,
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, r := range records {
			fmt.Println(r.MessageID)
		}
		return
	}
	if records == nil {
		records = []model.ProxyRecord{}
	}
	output(records, func() {
		for _, r := range records {
			fmt.Printf("%s\t%s\t%s\t%s\n", r.PostedAt.Format("2006-01-02 15:04"), r.MessageID, r.MemberID, r.Text)
		}
	})
}
