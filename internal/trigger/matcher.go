// Package trigger selects the member a message is meant to be posted as.
//
// Match is pure: it reads only its arguments and always returns. When more
// than one trigger fits a message the winner is decided, in order, by:
//
//  1. the longest combined prefix+suffix length,
//  2. the most recently created member,
//  3. the lexicographically smallest member id,
//  4. the earliest position in the entries slice.
package trigger

import (
	"strings"

	"github.com/rcliao/plura-proxy/internal/model"
)

// Escape marks a message that must never be proxied.
const Escape = `\`

// Match returns the winning trigger for text, or false when the message is
// not a proxy intent.
func Match(text string, entries []model.TriggerEntry) (model.TriggerMatch, bool) {
	if strings.HasPrefix(text, Escape) {
		return model.TriggerMatch{}, false
	}

	best := -1
	var bestPayload string
	for i, e := range entries {
		payload, ok := strip(text, e.Trigger)
		if !ok {
			continue
		}
		if best < 0 || better(e, entries[best]) {
			best = i
			bestPayload = payload
		}
	}
	if best < 0 {
		return model.TriggerMatch{}, false
	}
	return model.TriggerMatch{
		MemberID: entries[best].MemberID,
		Payload:  bestPayload,
		Trigger:  entries[best].Trigger,
	}, true
}

// better reports whether a beats b. Position order is implicit: callers walk
// entries front to back and only replace on a strict win.
func better(a, b model.TriggerEntry) bool {
	if a.Trigger.Len() != b.Trigger.Len() {
		return a.Trigger.Len() > b.Trigger.Len()
	}
	if !a.MemberCreatedAt.Equal(b.MemberCreatedAt) {
		return a.MemberCreatedAt.After(b.MemberCreatedAt)
	}
	return a.MemberID < b.MemberID
}

// strip removes the trigger's prefix and suffix from text and returns the
// trimmed payload. The prefix and suffix may not overlap.
func strip(text string, t model.Trigger) (string, bool) {
	if t.Empty() || len(text) < t.Len() {
		return "", false
	}
	head := text[:len(t.Prefix)]
	tail := text[len(text)-len(t.Suffix):]
	if !equal(head, t.Prefix, t.CaseSensitive) || !equal(tail, t.Suffix, t.CaseSensitive) {
		return "", false
	}
	payload := strings.TrimSpace(text[len(t.Prefix) : len(text)-len(t.Suffix)])
	if payload == "" {
		return "", false
	}
	return payload, true
}

func equal(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}
