package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/plura-proxy/internal/model"
)

// CreateMember stores a new member for a user.
func (s *SQLStore) CreateMember(ctx context.Context, p MemberParams) (*model.Member, error) {
	name := strings.TrimSpace(p.Name)
	if p.UserID == "" || name == "" {
		return nil, fmt.Errorf("create member: user id and name are required")
	}
	m := &model.Member{
		ID:        s.newID(),
		UserID:    p.UserID,
		Name:      name,
		AvatarURL: p.AvatarURL,
		CreatedAt: time.Now().UTC(),
	}

	var avatar *string
	if p.AvatarURL != "" {
		avatar = &p.AvatarURL
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO members (id, user_id, name, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)`),
		m.ID, m.UserID, m.Name, avatar, formatTime(m.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

// AddTrigger appends a trigger to a member. The same pattern may not be
// registered twice for one user.
func (s *SQLStore) AddTrigger(ctx context.Context, p TriggerParams) (*model.Trigger, error) {
	t := model.Trigger{Prefix: p.Prefix, Suffix: p.Suffix, CaseSensitive: p.CaseSensitive}
	if t.Empty() {
		return nil, ErrInvalidTrigger
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, s.q(`SELECT user_id FROM members WHERE id = ?`), p.MemberID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", p.MemberID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var position int
	err = tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(position), -1) + 1 FROM triggers WHERE member_id = ?`), p.MemberID).Scan(&position)
	if err != nil {
		return nil, err
	}

	t.ID = s.newID()
	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO triggers (id, member_id, user_id, prefix, suffix, case_sensitive, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, p.MemberID, userID, t.Prefix, t.Suffix, boolToInt(t.CaseSensitive), position, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("trigger %q...%q already registered: %w", t.Prefix, t.Suffix, ErrConflict)
		}
		return nil, fmt.Errorf("insert trigger: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

// RemoveTrigger deletes one trigger by id.
func (s *SQLStore) RemoveTrigger(ctx context.Context, triggerID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM triggers WHERE id = ?`), triggerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trigger %s: %w", triggerID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) GetMember(ctx context.Context, memberID string) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, user_id, name, avatar_url, created_at FROM members WHERE id = ?`), memberID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	triggers, err := s.memberTriggers(ctx, memberID)
	if err != nil {
		return nil, err
	}
	m.Triggers = triggers
	return &m, nil
}

// ListMembers returns a user's members, newest first.
func (s *SQLStore) ListMembers(ctx context.Context, userID string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, user_id, name, avatar_url, created_at
		FROM members WHERE user_id = ? ORDER BY created_at DESC, id ASC`), userID)
	if err != nil {
		return nil, err
	}
	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		members = append(members, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range members {
		triggers, err := s.memberTriggers(ctx, members[i].ID)
		if err != nil {
			return nil, err
		}
		members[i].Triggers = triggers
	}
	return members, nil
}

// DeleteMember removes a member and its triggers. Ledger records keep the
// member id they were posted with.
func (s *SQLStore) DeleteMember(ctx context.Context, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM triggers WHERE member_id = ?`), memberID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM members WHERE id = ?`), memberID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}
	return tx.Commit()
}

func (s *SQLStore) ListTriggersForUser(ctx context.Context, userID string) ([]model.TriggerEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT t.id, t.member_id, m.created_at, t.prefix, t.suffix, t.case_sensitive
		FROM triggers t
		INNER JOIN members m ON m.id = t.member_id
		WHERE m.user_id = ?
		ORDER BY m.created_at DESC, m.id ASC, t.position ASC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TriggerEntry
	for rows.Next() {
		var e model.TriggerEntry
		var createdAt string
		var caseSensitive int
		if err := rows.Scan(&e.Trigger.ID, &e.MemberID, &createdAt, &e.Trigger.Prefix, &e.Trigger.Suffix, &caseSensitive); err != nil {
			return nil, err
		}
		e.MemberCreatedAt = parseTime(createdAt)
		e.Trigger.CaseSensitive = caseSensitive != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) memberTriggers(ctx context.Context, memberID string) ([]model.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, prefix, suffix, case_sensitive
		FROM triggers WHERE member_id = ? ORDER BY position ASC`), memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []model.Trigger
	for rows.Next() {
		var t model.Trigger
		var caseSensitive int
		if err := rows.Scan(&t.ID, &t.Prefix, &t.Suffix, &caseSensitive); err != nil {
			return nil, err
		}
		t.CaseSensitive = caseSensitive != 0
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

func scanMember(row scanner) (model.Member, error) {
	var m model.Member
	var avatar sql.NullString
	var createdAt string
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &avatar, &createdAt); err != nil {
		return m, err
	}
	if avatar.Valid {
		m.AvatarURL = avatar.String
	}
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}
