package trigger

import (
	"testing"
	"time"

	"github.com/rcliao/plura-proxy/internal/model"
)

var (
	older = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

func entry(member string, created time.Time, prefix, suffix string, caseSensitive bool) model.TriggerEntry {
	return model.TriggerEntry{
		MemberID:        member,
		MemberCreatedAt: created,
		Trigger:         model.Trigger{Prefix: prefix, Suffix: suffix, CaseSensitive: caseSensitive},
	}
}

func TestMatch_SuffixTrigger(t *testing.T) {
	entries := []model.TriggerEntry{entry("jordan", older, "", "~J", true)}

	m, ok := Match("Hi there ~J", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.MemberID != "jordan" {
		t.Errorf("expected member jordan, got %q", m.MemberID)
	}
	if m.Payload != "Hi there" {
		t.Errorf("expected payload %q, got %q", "Hi there", m.Payload)
	}
	if m.Trigger.Suffix != "~J" {
		t.Errorf("expected matched suffix ~J, got %q", m.Trigger.Suffix)
	}
}

func TestMatch_PrefixAndSuffix(t *testing.T) {
	entries := []model.TriggerEntry{entry("sam", older, "[", "]", true)}

	m, ok := Match("[hello world]", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Payload != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", m.Payload)
	}

	if _, ok := Match("[hello world", entries); ok {
		t.Error("missing suffix should not match")
	}
}

func TestMatch_NoMatch(t *testing.T) {
	entries := []model.TriggerEntry{
		entry("jordan", older, "", "~J", true),
		entry("sam", older, "S:", "", true),
	}
	for _, text := range []string{"", "plain message", "~J in the middle", "s: lowercase"} {
		if m, ok := Match(text, entries); ok {
			t.Errorf("Match(%q) = %+v, expected no match", text, m)
		}
	}
}

func TestMatch_EmptyPayloadIsNotProxyIntent(t *testing.T) {
	entries := []model.TriggerEntry{entry("jordan", older, "", "~J", true)}
	for _, text := range []string{"~J", "   ~J"} {
		if _, ok := Match(text, entries); ok {
			t.Errorf("Match(%q) should not match an empty payload", text)
		}
	}
}

func TestMatch_PrefixSuffixMayNotOverlap(t *testing.T) {
	entries := []model.TriggerEntry{entry("sam", older, "ab", "ba", true)}
	if _, ok := Match("aba", entries); ok {
		t.Error("overlapping prefix and suffix should not match")
	}
}

func TestMatch_CaseSensitivity(t *testing.T) {
	insensitive := []model.TriggerEntry{entry("sam", older, "sam:", "", false)}
	m, ok := Match("SAM: hey", insensitive)
	if !ok || m.Payload != "hey" {
		t.Errorf("case-insensitive prefix: got %+v ok=%v", m, ok)
	}

	sensitive := []model.TriggerEntry{entry("sam", older, "sam:", "", true)}
	if _, ok := Match("SAM: hey", sensitive); ok {
		t.Error("case-sensitive prefix should not match different case")
	}
}

func TestMatch_LongestCombinedWins(t *testing.T) {
	entries := []model.TriggerEntry{
		entry("short", newer, "a:", "", true),
		entry("long", older, "a::", "", true),
	}
	m, ok := Match("a:: text", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.MemberID != "long" {
		t.Errorf("expected the longer trigger to win, got %q", m.MemberID)
	}
	if m.Payload != "text" {
		t.Errorf("expected payload 'text', got %q", m.Payload)
	}
}

func TestMatch_EqualLengthPrefersNewestMember(t *testing.T) {
	// "J " (prefix) and "~J" (suffix) both match "J ~J" with length 2.
	entries := []model.TriggerEntry{
		entry("jamie", older, "J ", "", true),
		entry("jordan", newer, "", "~J", true),
	}
	m, ok := Match("J ~J", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.MemberID != "jordan" {
		t.Errorf("expected most recently created member jordan, got %q", m.MemberID)
	}
	if m.Payload != "J" {
		t.Errorf("expected payload 'J', got %q", m.Payload)
	}

	// Order of entries must not change the result.
	reversed := []model.TriggerEntry{entries[1], entries[0]}
	m2, _ := Match("J ~J", reversed)
	if m2.MemberID != m.MemberID || m2.Payload != m.Payload {
		t.Errorf("result depends on entry order: %+v vs %+v", m, m2)
	}
}

func TestMatch_EqualLengthAndAgePrefersSmallestID(t *testing.T) {
	entries := []model.TriggerEntry{
		entry("member-b", older, "J ", "", true),
		entry("member-a", older, "", "~J", true),
	}
	m, ok := Match("J ~J", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.MemberID != "member-a" {
		t.Errorf("expected smallest member id, got %q", m.MemberID)
	}
	if m.Payload != "J" {
		t.Errorf("expected payload 'J', got %q", m.Payload)
	}
}

func TestMatch_SameMemberKeepsFirstTrigger(t *testing.T) {
	entries := []model.TriggerEntry{
		entry("jordan", older, "J ", "", true),
		entry("jordan", older, "", "~J", true),
	}
	m, ok := Match("J ~J", entries)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Trigger.Prefix != "J " {
		t.Errorf("expected the earlier trigger to win, got %+v", m.Trigger)
	}
	if m.Payload != "~J" {
		t.Errorf("expected payload '~J', got %q", m.Payload)
	}
}

func TestMatch_EscapedMessage(t *testing.T) {
	entries := []model.TriggerEntry{entry("jordan", older, "", "~J", true)}
	if _, ok := Match(`\Hi there ~J`, entries); ok {
		t.Error("escaped message should never be proxied")
	}
}

func TestMatch_EmptyTriggerIgnored(t *testing.T) {
	entries := []model.TriggerEntry{entry("ghost", older, "", "", true)}
	if _, ok := Match("anything", entries); ok {
		t.Error("a trigger with no prefix or suffix should never match")
	}
}
