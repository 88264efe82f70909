package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/trigger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Show which member a message would be posted as",
		Long:  "Dry-run the trigger matcher against a user's stored triggers. Nothing is posted.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMatch,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

type matchResult struct {
	Matched bool   `json:"matched"`
	Member  string `json:"member_id,omitempty"`
	Name    string `json:"member_name,omitempty"`
	Payload string `json:"payload,omitempty"`
}

func runMatch(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	text := strings.Join(args, " ")

	s, _ := openStore()
	defer s.Close()

	entries, err := s.ListTriggersForUser(cmd.Context(), user)
	if err != nil {
		exitErr("load triggers", err)
	}

	var res matchResult
	if m, ok := trigger.Match(text, entries); ok {
		res = matchResult{Matched: true, Member: m.MemberID, Payload: m.Payload}
		if member, err := s.GetMember(cmd.Context(), m.MemberID); err == nil {
			res.Name = member.Name
		}
	}
	output(res, func() {
		if !res.Matched {
			fmt.Println("no match")
			return
		}
		fmt.Printf("%s (%s): %s\n", res.Name, res.Member, res.Payload)
	})
}
