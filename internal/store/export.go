package store

import (
	"context"
	"errors"

	"github.com/rcliao/plura-proxy/internal/model"
)

// Export is a full dump of members and ledger records.
type Export struct {
	Members []model.Member      `json:"members"`
	Records []model.ProxyRecord `json:"records"`
}

// ExportAll returns every member and record, optionally for one user.
func (s *SQLStore) ExportAll(ctx context.Context, userID string) (*Export, error) {
	out := &Export{}

	query := `SELECT ` + recordColumns + ` FROM proxy_records`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY posted_at, message_id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}
	rows.Close()

	users := []string{userID}
	if userID == "" {
		users, err = s.userIDs(ctx)
		if err != nil {
			return nil, err
		}
	}
	for _, u := range users {
		members, err := s.ListMembers(ctx, u)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, members...)
	}
	return out, nil
}

// Import restores ledger records from an export. Records already present are skipped.
func (s *SQLStore) Import(ctx context.Context, records []model.ProxyRecord) (int, error) {
	imported := 0
	for _, rec := range records {
		_, err := s.Insert(ctx, rec)
		if errors.Is(err, ErrDuplicateMessageID) {
			continue
		}
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (s *SQLStore) userIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM members ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
