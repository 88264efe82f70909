package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find proxied messages by text",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("user", "u", "", "Filter by owning user")
	cmd.Flags().StringP("member", "m", "", "Filter by member id")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	ledgerCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	member, _ := cmd.Flags().GetString("member")
	limit, _ := cmd.Flags().GetInt("limit")

	s, _ := openStore()
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		UserID:   user,
		MemberID: member,
		Query:    strings.Join(args, " "),
		Limit:    limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	if results == nil {
		results = []model.ProxyRecord{}
	}
	output(results, func() {
		for _, r := range results {
			fmt.Printf("%s\t%s\t%s\n", r.MessageID, r.MemberID, r.Text)
		}
	})
}
