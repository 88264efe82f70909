package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/store"
)

func init() {
	add := &cobra.Command{
		Use:   "add <member-id>",
		Short: "Add a prefix and/or suffix trigger to a member",
		Long:  "Add a trigger. A message that starts with the prefix and ends with the suffix is posted as the member, with both stripped.",
		Args:  cobra.ExactArgs(1),
		Run:   runTriggersAdd,
	}
	add.Flags().StringP("prefix", "p", "", "Literal the message starts with")
	add.Flags().StringP("suffix", "s", "", "Literal the message ends with")
	add.Flags().Bool("case-sensitive", false, "Match prefix and suffix case-sensitively")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's triggers in match order",
		Run:   runTriggersList,
	}
	list.Flags().StringP("user", "u", "", "Owning user id (required)")
	list.MarkFlagRequired("user")

	triggersCmd.AddCommand(add, list)
}

func runTriggersAdd(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	suffix, _ := cmd.Flags().GetString("suffix")
	cs, _ := cmd.Flags().GetBool("case-sensitive")

	s, _ := openStore()
	defer s.Close()

	t, err := s.AddTrigger(cmd.Context(), store.TriggerParams{
		MemberID:      args[0],
		Prefix:        prefix,
		Suffix:        suffix,
		CaseSensitive: cs,
	})
	if err != nil {
		exitErr("add trigger", err)
	}
	output(t, func() { fmt.Printf("%s\t%stext%s\n", t.ID, t.Prefix, t.Suffix) })
}

func runTriggersList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, _ := openStore()
	defer s.Close()

	entries, err := s.ListTriggersForUser(cmd.Context(), user)
	if err != nil {
		exitErr("list triggers", err)
	}
	if entries == nil {
		entries = []model.TriggerEntry{}
	}
	output(entries, func() {
		for _, e := range entries {
			fmt.Printf("%s\t%s\t%stext%s\tcase_sensitive=%t\n",
				e.Trigger.ID, e.MemberID, e.Trigger.Prefix, e.Trigger.Suffix, e.Trigger.CaseSensitive)
		}
	})
}
