package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/plura-proxy/internal/model"
)

// SearchParams holds parameters for searching ledger records by text.
type SearchParams struct {
	UserID   string
	MemberID string
	Query    string
	Limit    int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search finds records whose current text contains the query, ignoring case.
// Newest records come first.
func (s *SQLStore) Search(ctx context.Context, p SearchParams) ([]model.ProxyRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{`LOWER(text) LIKE ? ESCAPE '\'`}
	args := []interface{}{"%" + likeEscaper.Replace(strings.ToLower(p.Query)) + "%"}

	if p.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, p.UserID)
	}
	if p.MemberID != "" {
		where = append(where, "member_id = ?")
		args = append(args, p.MemberID)
	}

	query := fmt.Sprintf(`SELECT %s FROM proxy_records
		WHERE %s
		ORDER BY posted_at DESC, message_id DESC
		LIMIT ?`, recordColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ProxyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
