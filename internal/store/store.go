// Package store provides the proxy ledger and member registry over SQLite or Postgres.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/plura-proxy/internal/model"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrDuplicateMessageID     = errors.New("duplicate message id")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrConflict               = errors.New("conflict")
	ErrInvalidTrigger         = errors.New("trigger needs a prefix or a suffix")
	// ErrDeleted is returned by GetBySource when the original message was
	// proxied once but its record has since been deleted.
	ErrDeleted = errors.New("record deleted")
)

// Ledger is the durable record of proxied messages, keyed by platform message id.
type Ledger interface {
	// Insert stores a new record. Fails with ErrDuplicateMessageID when the
	// message id or the source message id has ever been recorded.
	Insert(ctx context.Context, rec model.ProxyRecord) (*model.ProxyRecord, error)

	// Get returns the record for a posted message id.
	Get(ctx context.Context, messageID string) (*model.ProxyRecord, error)

	// GetBySource returns the record created from an original message id.
	// Fails with ErrDeleted when that record existed and was deleted.
	GetBySource(ctx context.Context, sourceMessageID string) (*model.ProxyRecord, error)

	// Update applies mutate to the stored record and bumps its revision.
	// A non-zero expectRevision must equal the stored revision.
	Update(ctx context.Context, messageID string, expectRevision int, mutate func(*model.ProxyRecord)) (*model.ProxyRecord, error)

	// Replace swaps the record at oldID for rec, keyed by rec.MessageID.
	Replace(ctx context.Context, oldID string, expectRevision int, rec model.ProxyRecord) (*model.ProxyRecord, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, messageID string) error
}

// Registry is the read side of member storage used by the proxy engine.
type Registry interface {
	// ListTriggersForUser returns every trigger owned by the user's members,
	// newest member first.
	ListTriggersForUser(ctx context.Context, userID string) ([]model.TriggerEntry, error)

	// GetMember returns a member with its triggers.
	GetMember(ctx context.Context, memberID string) (*model.Member, error)
}

// MemberParams holds parameters for creating a member.
type MemberParams struct {
	UserID    string
	Name      string
	AvatarURL string
}

// TriggerParams holds parameters for adding a trigger to a member.
type TriggerParams struct {
	MemberID      string
	Prefix        string
	Suffix        string
	CaseSensitive bool
}

// ListParams holds parameters for listing ledger records.
type ListParams struct {
	UserID string
	Limit  int
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
