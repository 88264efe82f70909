package model

import "time"

// OriginKind records how a proxied message came to exist.
type OriginKind string

const (
	OriginDirect  OriginKind = "direct"
	OriginReproxy OriginKind = "reproxy"
)

// ProxyRecord links a posted message back to the user and member it was sent for.
type ProxyRecord struct {
	MessageID       string     `json:"message_id"`
	SourceMessageID string     `json:"source_message_id,omitempty"`
	ChannelID       string     `json:"channel_id"`
	PostedAt        time.Time  `json:"posted_at"`
	UserID          string     `json:"user_id"`
	MemberID        string     `json:"member_id"`
	Text            string     `json:"text"`
	Origin          OriginKind `json:"origin"`
	Revision        int        `json:"revision"`
	// Attachments are the file refs carried on the post, kept so a repost
	// can carry them again.
	Attachments []Attachment `json:"attachments,omitempty"`
}
