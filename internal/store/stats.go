package store

import (
	"context"
	"os"
)

// Stats holds ledger and registry counts.
type Stats struct {
	DBPath      string        `json:"db_path,omitempty"`
	DBSizeBytes int64         `json:"db_size_bytes,omitempty"`
	Members     int           `json:"members"`
	Triggers    int           `json:"triggers"`
	Records     int           `json:"records"`
	ByOrigin    []OriginStats `json:"by_origin"`
	Users       []UserStats   `json:"users"`
}

// OriginStats counts ledger records per origin kind.
type OriginStats struct {
	Origin string `json:"origin"`
	Count  int    `json:"count"`
}

// UserStats holds per-user ledger counts.
type UserStats struct {
	UserID  string `json:"user_id"`
	Records int    `json:"records"`
	Members int    `json:"members"`
}

// Stats returns database statistics. dbPath is only used to report file size.
func (s *SQLStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&st.Members)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triggers`).Scan(&st.Triggers)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proxy_records`).Scan(&st.Records)

	rows, err := s.db.QueryContext(ctx, `
		SELECT origin, COUNT(*) AS cnt FROM proxy_records
		GROUP BY origin ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var o OriginStats
		rows.Scan(&o.Origin, &o.Count)
		st.ByOrigin = append(st.ByOrigin, o)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT r.user_id, COUNT(*) AS cnt,
		       (SELECT COUNT(*) FROM members m WHERE m.user_id = r.user_id) AS members
		FROM proxy_records r
		GROUP BY r.user_id ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserStats
		rows.Scan(&u.UserID, &u.Records, &u.Members)
		st.Users = append(st.Users, u)
	}

	return st, nil
}
