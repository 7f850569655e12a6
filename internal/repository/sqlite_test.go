package repository

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/stride"
)

func testDoc(name string) stride.Document {
	c := stride.Component{
		Name:            name,
		Evidence:        []string{"box"},
		Stride:          map[string][]string{},
		Recommendations: []string{},
	}
	for _, cat := range stride.Categories {
		c.Stride[cat] = []string{}
	}
	return stride.Document{Components: []stride.Component{c}}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveAnalysis(ctx, "WebServer", testDoc("WebServer"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Title != "WebServer" || a.ComponentCount != 1 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if !reflect.DeepEqual(a.Document, testDoc("WebServer")) {
		t.Fatalf("document did not round-trip: %+v", a.Document)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetAnalysis(context.Background(), uuid.New())
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

// Listing must be newest-first even when one timestamp's fractional part is
// a string prefix of another's (".1" vs ".15"), which a variable-width
// format would mis-sort lexicographically.
func TestSQLiteListOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		title string
		at    time.Time
	}{
		{"early", base.Add(100 * time.Millisecond)},
		{"late", base.Add(150 * time.Millisecond)},
	}
	for _, r := range rows {
		body, err := json.Marshal(testDoc(r.title))
		if err != nil {
			t.Fatalf("marshal %s: %v", r.title, err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO analyses (id, created_at, title, component_count, document) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), r.at.Format(sqliteTimeLayout), r.title, 1, string(body))
		if err != nil {
			t.Fatalf("insert %s: %v", r.title, err)
		}
	}

	list, err := s.ListAnalyses(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "late" {
		t.Fatalf("expected newest analysis first, got %+v", list)
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatalf("expected descending created_at, got %v then %v", list[0].CreatedAt, list[1].CreatedAt)
	}
}

func TestSQLiteList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		if _, err := s.SaveAnalysis(ctx, name, testDoc(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	list, err := s.ListAnalyses(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2, got %d", len(list))
	}
}
