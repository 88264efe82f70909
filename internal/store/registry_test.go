package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateAndGetMember(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m, err := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: " Jordan ", AvatarURL: "https://x/j.png"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if m.ID == "" {
		t.Error("expected non-empty ID")
	}
	if m.Name != "Jordan" {
		t.Errorf("expected trimmed name, got %q", m.Name)
	}

	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: m.ID, Suffix: "~J", CaseSensitive: true}); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: m.ID, Prefix: "j:"}); err != nil {
		t.Fatalf("add second trigger: %v", err)
	}

	got, err := s.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got.AvatarURL != "https://x/j.png" || got.UserID != "U1" {
		t.Errorf("unexpected member: %+v", got)
	}
	if len(got.Triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(got.Triggers))
	}
	if got.Triggers[0].Suffix != "~J" || !got.Triggers[0].CaseSensitive {
		t.Errorf("unexpected first trigger: %+v", got.Triggers[0])
	}
	if got.Triggers[1].Prefix != "j:" || got.Triggers[1].CaseSensitive {
		t.Errorf("unexpected second trigger: %+v", got.Triggers[1])
	}
}

func TestCreateMemberValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "  "}); err == nil {
		t.Error("expected error for blank name")
	}
	if _, err := s.CreateMember(ctx, MemberParams{Name: "Jordan"}); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestAddTriggerRules(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "A"})
	b, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "B"})
	other, _ := s.CreateMember(ctx, MemberParams{UserID: "U2", Name: "C"})

	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: a.ID}); !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("expected ErrInvalidTrigger, got %v", err)
	}
	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: "nope", Prefix: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: a.ID, Prefix: "x:"}); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: b.ID, Prefix: "x:"}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for same user, got %v", err)
	}
	if _, err := s.AddTrigger(ctx, TriggerParams{MemberID: other.ID, Prefix: "x:"}); err != nil {
		t.Errorf("another user may reuse the pattern: %v", err)
	}
}

func TestListTriggersForUserOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "First"})
	time.Sleep(2 * time.Millisecond)
	second, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "Second"})
	s.CreateMember(ctx, MemberParams{UserID: "U2", Name: "Elsewhere"})

	s.AddTrigger(ctx, TriggerParams{MemberID: first.ID, Prefix: "f:"})
	s.AddTrigger(ctx, TriggerParams{MemberID: second.ID, Prefix: "s:"})
	s.AddTrigger(ctx, TriggerParams{MemberID: second.ID, Suffix: "-s"})

	entries, err := s.ListTriggersForUser(ctx, "U1")
	if err != nil {
		t.Fatalf("list triggers: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].MemberID != second.ID || entries[0].Trigger.Prefix != "s:" {
		t.Errorf("expected newest member's first trigger first, got %+v", entries[0])
	}
	if entries[1].Trigger.Suffix != "-s" {
		t.Errorf("expected trigger position order within member, got %+v", entries[1])
	}
	if entries[2].MemberID != first.ID {
		t.Errorf("expected oldest member last, got %+v", entries[2])
	}
	if !entries[0].MemberCreatedAt.After(entries[2].MemberCreatedAt) {
		t.Error("expected member created_at to be carried for tie-breaks")
	}
}

func TestDeleteMember(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "Jordan"})
	s.AddTrigger(ctx, TriggerParams{MemberID: m.ID, Suffix: "~J"})

	if err := s.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	if _, err := s.GetMember(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	entries, _ := s.ListTriggersForUser(ctx, "U1")
	if len(entries) != 0 {
		t.Errorf("expected triggers removed, got %d", len(entries))
	}
	if err := s.DeleteMember(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListMembersAndRemoveTrigger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m, _ := s.CreateMember(ctx, MemberParams{UserID: "U1", Name: "Jordan"})
	tr, _ := s.AddTrigger(ctx, TriggerParams{MemberID: m.ID, Suffix: "~J"})

	members, err := s.ListMembers(ctx, "U1")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || len(members[0].Triggers) != 1 {
		t.Fatalf("unexpected members: %+v", members)
	}

	if err := s.RemoveTrigger(ctx, tr.ID); err != nil {
		t.Fatalf("remove trigger: %v", err)
	}
	if err := s.RemoveTrigger(ctx, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
