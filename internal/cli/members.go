package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/store"
)

func init() {
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a member",
		Run:   runMembersAdd,
	}
	add.Flags().StringP("user", "u", "", "Owning user id (required)")
	add.Flags().StringP("name", "n", "", "Display name (required)")
	add.Flags().String("avatar", "", "Avatar image URL")
	add.MarkFlagRequired("user")
	add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's members",
		Run:   runMembersList,
	}
	list.Flags().StringP("user", "u", "", "Owning user id (required)")
	list.MarkFlagRequired("user")

	membersCmd.AddCommand(add, list)
}

func runMembersAdd(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	avatar, _ := cmd.Flags().GetString("avatar")

	s, _ := openStore()
	defer s.Close()

	m, err := s.CreateMember(cmd.Context(), store.MemberParams{
		UserID:    user,
		Name:      name,
		AvatarURL: avatar,
	})
	if err != nil {
		exitErr("add member", err)
	}
	output(m, func() { fmt.Printf("%s\t%s\n", m.ID, m.Name) })
}

func runMembersList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, _ := openStore()
	defer s.Close()

	members, err := s.ListMembers(cmd.Context(), user)
	if err != nil {
		exitErr("list members", err)
	}
	if members == nil {
		members = []model.Member{}
	}
	output(members, func() {
		for _, m := range members {
			fmt.Printf("%s\t%s\t%s\n", m.ID, m.Name, describeTriggers(m.Triggers))
		}
	})
}

func describeTriggers(ts []model.Trigger) string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += " "
		}
		out += t.Prefix + "text" + t.Suffix
	}
	return out
}
