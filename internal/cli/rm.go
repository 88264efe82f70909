package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rmMember := &cobra.Command{
		Use:   "rm <member-id>",
		Short: "Delete a member and its triggers",
		Args:  cobra.ExactArgs(1),
		Run:   runMembersRm,
	}
	membersCmd.AddCommand(rmMember)

	rmTrigger := &cobra.Command{
		Use:   "rm <trigger-id>",
		Short: "Delete a trigger",
		Args:  cobra.ExactArgs(1),
		Run:   runTriggersRm,
	}
	triggersCmd.AddCommand(rmTrigger)
}

func runMembersRm(cmd *cobra.Command, args []string) {
	s, _ := openStore()
	defer s.Close()

	if err := s.DeleteMember(cmd.Context(), args[0]); err != nil {
		exitErr("rm member", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}

func runTriggersRm(cmd *cobra.Command, args []string) {
	s, _ := openStore()
	defer s.Close()

	if err := s.RemoveTrigger(cmd.Context(), args[0]); err != nil {
		exitErr("rm trigger", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
