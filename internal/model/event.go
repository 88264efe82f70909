package model

import "fmt"

// Attachment is carried through a proxy verbatim.
type Attachment struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// NewMessage is an inbound message posted by a user.
type NewMessage struct {
	UserID      string       `json:"user_id"`
	ChannelID   string       `json:"channel_id"`
	MessageID   string       `json:"message_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ActionKind selects which message action to run.
type ActionKind string

const (
	ActionEdit    ActionKind = "edit"
	ActionDelete  ActionKind = "delete"
	ActionInfo    ActionKind = "info"
	ActionReproxy ActionKind = "reproxy"
)

// ParseActionKind validates s as an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionEdit, ActionDelete, ActionInfo, ActionReproxy:
		return k, nil
	}
	return "", fmt.Errorf("unknown action %q (valid: edit, delete, info, reproxy)", s)
}

// MessageAction is a request to manage an already proxied message.
type MessageAction struct {
	Kind         ActionKind `json:"kind"`
	MessageID    string     `json:"message_id"`
	ActingUserID string     `json:"acting_user_id"`
	NewText      string     `json:"new_text,omitempty"`
	NewMemberID  string     `json:"new_member_id,omitempty"`
}
