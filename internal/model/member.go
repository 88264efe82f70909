// Package model defines the core proxy data types.
package model

import "time"

// Member is an identity a user can post messages as.
type Member struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Triggers  []Trigger `json:"triggers,omitempty"`
}

// Trigger is a prefix and/or suffix literal that selects a member.
type Trigger struct {
	ID            string `json:"id,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Suffix        string `json:"suffix,omitempty"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Empty reports whether the trigger has neither a prefix nor a suffix.
func (t Trigger) Empty() bool {
	return t.Prefix == "" && t.Suffix == ""
}

// Len is the combined prefix and suffix length in bytes.
func (t Trigger) Len() int {
	return len(t.Prefix) + len(t.Suffix)
}

// TriggerEntry pairs a trigger with the member it selects.
type TriggerEntry struct {
	MemberID        string
	MemberCreatedAt time.Time
	Trigger         Trigger
}

// MemberProfile is the display identity used when posting as a member.
type MemberProfile struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Profile returns the member's display identity.
func (m Member) Profile() MemberProfile {
	return MemberProfile{ID: m.ID, UserID: m.UserID, Name: m.Name, AvatarURL: m.AvatarURL}
}

// TriggerMatch is the result of matching a message against a user's triggers.
type TriggerMatch struct {
	MemberID string
	Payload  string
	Trigger  Trigger
}
