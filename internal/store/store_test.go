package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"news_bot/internal/model"
)

func newTestStore(t *testing.T) *NewsStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func entry(id, reporter string, ts time.Time) *model.News {
	return model.NewNews(id, reporter, "Reporter", "some update text", ts)
}

func TestAddAndLookup(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	if err := s.Add(entry("$m1", "@alice:example.org", ts)); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, ok := s.ByMessageID("$m1")
	if !ok {
		t.Fatal("entry not found after add")
	}
	if got.ReporterID != "@alice:example.org" {
		t.Errorf("reporter = %q", got.ReporterID)
	}

	if _, ok := s.ByMessageID("$missing"); ok {
		t.Error("lookup of unknown id succeeded")
	}

	err := s.Add(entry("$m1", "@alice:example.org", ts))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate add error = %v, want ErrDuplicateID", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ts := time.Now()

	if err := s.Add(entry("$m1", "@alice:example.org", ts)); err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := s.Remove("$m1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.ID != "$m1" {
		t.Errorf("removed id = %q", removed.ID)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d after remove", s.Len())
	}

	_, err = s.Remove("$m1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove error = %v, want ErrNotFound", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Add(entry("$m1", "@alice:example.org", ts)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Mutate("$m1", func(n *model.News) {
		n.AddSectionTag("$r1", "apps")
		n.AddMedia("$r2", model.Media{Kind: model.MediaImage, Filename: "a.png", Locator: "mxc://x/a"})
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	// A fresh store over the same file sees the identical collection.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	before, _ := s.ByMessageID("$m1")
	after, ok := reopened.ByMessageID("$m1")
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("reloaded entry differs (-want +got):\n%s", diff)
	}
}

func TestMutateOnlyChangesStoredState(t *testing.T) {
	s := newTestStore(t)
	if err := s.Add(entry("$m1", "@alice:example.org", time.Now())); err != nil {
		t.Fatalf("add: %v", err)
	}

	clone, _ := s.ByMessageID("$m1")
	clone.AddSectionTag("$r1", "apps")

	stored, _ := s.ByMessageID("$m1")
	if stored.IsAssigned() {
		t.Error("mutating a lookup result changed stored state")
	}

	if err := s.Mutate("$m1", func(n *model.News) { n.AddSectionTag("$r1", "apps") }); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	stored, _ = s.ByMessageID("$m1")
	if !stored.IsAssigned() {
		t.Error("Mutate did not change stored state")
	}

	err := s.Mutate("$missing", func(n *model.News) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("mutate unknown id error = %v, want ErrNotFound", err)
	}
}

func TestByAnnotationID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Add(entry("$m1", "@alice:example.org", time.Now())); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Mutate("$m1", func(n *model.News) { n.AddProjectTag("$r1", "calendar") }); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	got, ok := s.ByAnnotationID("$r1")
	if !ok || got.ID != "$m1" {
		t.Errorf("ByAnnotationID = %v, %v; want $m1", got, ok)
	}
	if _, ok := s.ByAnnotationID("$unknown"); ok {
		t.Error("unknown annotation id matched")
	}
}

func TestFindNearestByReporterAndTime(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	for _, e := range []*model.News{
		entry("$a", "@alice:example.org", base),
		entry("$b", "@alice:example.org", base.Add(10*time.Minute)),
		entry("$c", "@bob:example.org", base.Add(time.Minute)),
	} {
		if err := s.Add(e); err != nil {
			t.Fatalf("add %s: %v", e.ID, err)
		}
	}

	tests := []struct {
		name     string
		reporter string
		ts       time.Time
		wantID   string
		wantOK   bool
	}{
		{"closest before", "@alice:example.org", base.Add(2 * time.Minute), "$a", true},
		{"closest after", "@alice:example.org", base.Add(9 * time.Minute), "$b", true},
		{"same reporter only", "@bob:example.org", base, "$c", true},
		{"no entries for reporter", "@carol:example.org", base, "", false},
		// Equidistant from $a and $b; the ascending id scan keeps $a.
		{"tie breaks to lowest id", "@alice:example.org", base.Add(5 * time.Minute), "$a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.FindNearestByReporterAndTime(tt.reporter, tt.ts)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("id = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"$a", "$b"} {
		if err := s.Add(entry(id, "@alice:example.org", time.Now())); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d after clear", s.Len())
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("list returned %d entries after clear", len(got))
	}
}
