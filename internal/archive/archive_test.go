package archive

import (
	"context"
	"testing"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSaveAndListRecent(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	first := &Report{Editor: "@editor:example.org", Document: "# Week 34", WarningCount: 1, NoteCount: 2}
	if err := a.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID == 0 {
		t.Error("ID not populated on save")
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated on save")
	}

	second := &Report{Editor: "@editor:example.org", Document: "# Week 35"}
	if err := a.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	reports, err := a.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	// Newest first.
	if reports[0].Document != "# Week 35" || reports[1].Document != "# Week 34" {
		t.Errorf("unexpected order: %q, %q", reports[0].Document, reports[1].Document)
	}
	if reports[1].WarningCount != 1 || reports[1].NoteCount != 2 {
		t.Errorf("counts = %d/%d", reports[1].WarningCount, reports[1].NoteCount)
	}
}

func TestListRecentLimit(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := a.Save(ctx, &Report{Editor: "@editor:example.org", Document: "doc"}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	reports, err := a.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(reports) != 3 {
		t.Errorf("got %d reports, want 3", len(reports))
	}
}
