package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/plura-proxy/internal/model"
)

const recordColumns = `message_id, source_message_id, channel_id, posted_at, user_id, member_id, text, origin, revision, attachments`

// Insert stores a new proxy record at revision 1.
func (s *SQLStore) Insert(ctx context.Context, rec model.ProxyRecord) (*model.ProxyRecord, error) {
	if rec.MessageID == "" {
		return nil, fmt.Errorf("insert record: empty message id")
	}
	unlock := s.locks.lock(rec.MessageID)
	defer unlock()

	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now().UTC()
	}
	if rec.Origin == "" {
		rec.Origin = model.OriginDirect
	}
	if rec.Revision <= 0 {
		rec.Revision = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if rec.SourceMessageID != "" {
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO proxied_sources (source_message_id, first_message_id, created_at) VALUES (?, ?, ?)`),
			rec.SourceMessageID, rec.MessageID, formatTime(time.Now()))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert record from source %s: %w", rec.SourceMessageID, ErrDuplicateMessageID)
			}
			return nil, fmt.Errorf("insert source: %w", err)
		}
	}
	if err := s.insertRecord(ctx, tx, rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rec, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLStore) insertRecord(ctx context.Context, db execer, rec model.ProxyRecord) error {
	var source *string
	if rec.SourceMessageID != "" {
		source = &rec.SourceMessageID
	}
	attachments, err := encodeAttachments(rec.Attachments)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	_, err = db.ExecContext(ctx, s.q(`INSERT INTO proxy_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.MessageID, source, rec.ChannelID, formatTime(rec.PostedAt), rec.UserID,
		rec.MemberID, rec.Text, string(rec.Origin), rec.Revision, attachments)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert record %s: %w", rec.MessageID, ErrDuplicateMessageID)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, messageID string) (*model.ProxyRecord, error) {
	unlock := s.locks.lock(messageID)
	defer unlock()

	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+recordColumns+` FROM proxy_records WHERE message_id = ?`), messageID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLStore) GetBySource(ctx context.Context, sourceMessageID string) (*model.ProxyRecord, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+recordColumns+` FROM proxy_records WHERE source_message_id = ?`), sourceMessageID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		var first string
		err = s.db.QueryRowContext(ctx, s.q(`SELECT first_message_id FROM proxied_sources WHERE source_message_id = ?`), sourceMessageID).Scan(&first)
		if err == nil {
			return nil, fmt.Errorf("record from source %s (first posted as %s): %w", sourceMessageID, first, ErrDeleted)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record from source %s: %w", sourceMessageID, ErrNotFound)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLStore) Update(ctx context.Context, messageID string, expectRevision int, mutate func(*model.ProxyRecord)) (*model.ProxyRecord, error) {
	unlock := s.locks.lock(messageID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cur, err := s.loadForWrite(ctx, tx, messageID, expectRevision)
	if err != nil {
		return nil, err
	}

	next := *cur
	mutate(&next)
	next.MessageID = cur.MessageID
	next.SourceMessageID = cur.SourceMessageID
	next.Revision = cur.Revision + 1

	res, err := tx.ExecContext(ctx, s.q(`UPDATE proxy_records
		SET channel_id = ?, user_id = ?, member_id = ?, text = ?, origin = ?, revision = ?
		WHERE message_id = ? AND revision = ?`),
		next.ChannelID, next.UserID, next.MemberID, next.Text, string(next.Origin), next.Revision,
		messageID, cur.Revision)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update record %s: %w", messageID, ErrConcurrentModification)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *SQLStore) Replace(ctx context.Context, oldID string, expectRevision int, rec model.ProxyRecord) (*model.ProxyRecord, error) {
	unlock := s.locks.lock(oldID, rec.MessageID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cur, err := s.loadForWrite(ctx, tx, oldID, expectRevision)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM proxy_records WHERE message_id = ? AND revision = ?`), oldID, cur.Revision)
	if err != nil {
		return nil, fmt.Errorf("replace record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("replace record %s: %w", oldID, ErrConcurrentModification)
	}

	if rec.SourceMessageID == "" {
		rec.SourceMessageID = cur.SourceMessageID
	}
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now().UTC()
	}
	rec.Revision = cur.Revision + 1
	if err := s.insertRecord(ctx, tx, rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// loadForWrite reads the current row inside tx and checks the expected revision.
func (s *SQLStore) loadForWrite(ctx context.Context, tx *sql.Tx, messageID string, expectRevision int) (*model.ProxyRecord, error) {
	row := tx.QueryRowContext(ctx, s.q(`SELECT `+recordColumns+` FROM proxy_records WHERE message_id = ?`), messageID)
	cur, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if expectRevision > 0 && cur.Revision != expectRevision {
		return nil, fmt.Errorf("record %s at revision %d, expected %d: %w",
			messageID, cur.Revision, expectRevision, ErrConcurrentModification)
	}
	return &cur, nil
}

func (s *SQLStore) Delete(ctx context.Context, messageID string) error {
	unlock := s.locks.lock(messageID)
	defer unlock()

	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM proxy_records WHERE message_id = ?`), messageID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// List returns records newest first, optionally for one user.
func (s *SQLStore) List(ctx context.Context, p ListParams) ([]model.ProxyRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + recordColumns + ` FROM proxy_records`
	var args []interface{}
	if p.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, p.UserID)
	}
	query += ` ORDER BY posted_at DESC, message_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ProxyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row scanner) (model.ProxyRecord, error) {
	var rec model.ProxyRecord
	var source, attachments sql.NullString
	var postedAt, origin string

	err := row.Scan(
		&rec.MessageID, &source, &rec.ChannelID, &postedAt, &rec.UserID,
		&rec.MemberID, &rec.Text, &origin, &rec.Revision, &attachments,
	)
	if err != nil {
		return rec, err
	}
	if source.Valid {
		rec.SourceMessageID = source.String
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &rec.Attachments); err != nil {
			return rec, fmt.Errorf("decode attachments of %s: %w", rec.MessageID, err)
		}
	}
	rec.PostedAt = parseTime(postedAt)
	rec.Origin = model.OriginKind(origin)
	return rec, nil
}

// encodeAttachments stores attachment refs as a JSON array, or NULL when there are none.
func encodeAttachments(atts []model.Attachment) (*string, error) {
	if len(atts) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(atts)
	if err != nil {
		return nil, err
	}
	out := string(b)
	return &out, nil
}
