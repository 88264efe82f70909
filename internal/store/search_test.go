package store

import (
	"context"
	"testing"
	"time"
)

func TestSearch_Basic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"Hi there", "hello THERE friend", "goodbye", "100% sure"} {
		rec := testRecord(string(rune('a' + i)))
		rec.Text = text
		rec.PostedAt = base.Add(time.Duration(i) * time.Minute)
		if i == 2 {
			rec.UserID = "U2"
		}
		if _, err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	results, err := s.Search(ctx, SearchParams{Query: "there"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "hello THERE friend" {
		t.Errorf("expected newest first, got %q", results[0].Text)
	}

	results, err = s.Search(ctx, SearchParams{UserID: "U2", Query: "there"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for U2, got %d", len(results))
	}

	results, err = s.Search(ctx, SearchParams{Query: "0%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Text != "100% sure" {
		t.Errorf("expected literal percent match, got %+v", results)
	}
}

func TestSearch_MemberFilterAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := testRecord(string(rune('a' + i)))
		rec.Text = "same words"
		if i%2 == 0 {
			rec.MemberID = "sam"
		}
		if _, err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	results, err := s.Search(ctx, SearchParams{MemberID: "sam", Query: "words"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	results, err = s.Search(ctx, SearchParams{Query: "words", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
