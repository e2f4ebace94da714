package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestIsAssigned(t *testing.T) {
	n := NewNews("$msg1", "@alice:example.org", "Alice", "update text", time.Now())
	if n.IsAssigned() {
		t.Error("fresh entry should not be assigned")
	}

	n.AddSectionTag("$react1", "apps")
	if !n.IsAssigned() {
		t.Error("entry with a section tag should be assigned")
	}

	if got := n.RemoveAnnotation("$react1"); got != AnnotationSection {
		t.Errorf("RemoveAnnotation = %q, want %q", got, AnnotationSection)
	}
	if n.IsAssigned() {
		t.Error("entry should be unassigned after the tag is removed")
	}

	n.AddProjectTag("$react2", "calendar")
	if !n.IsAssigned() {
		t.Error("entry with a project tag should be assigned")
	}
}

func TestRemoveAnnotation(t *testing.T) {
	n := NewNews("$msg1", "@alice:example.org", "Alice", "update text", time.Now())
	n.AddSectionTag("$a", "apps")
	n.AddProjectTag("$b", "calendar")
	n.AddMedia("$c", Media{Kind: MediaImage, Locator: "mxc://example.org/abc"})

	tests := []struct {
		id   string
		want AnnotationKind
	}{
		{"$a", AnnotationSection},
		{"$b", AnnotationProject},
		{"$c", AnnotationMedia},
		{"$unknown", AnnotationNone},
		{"$a", AnnotationNone}, // already removed
	}
	for _, tt := range tests {
		if got := n.RemoveAnnotation(tt.id); got != tt.want {
			t.Errorf("RemoveAnnotation(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if n.IsAssigned() || len(n.Media) != 0 {
		t.Error("all annotations should be gone")
	}
}

func TestSectionNamesDistinctSorted(t *testing.T) {
	n := NewNews("$msg1", "@alice:example.org", "Alice", "update text", time.Now())
	n.AddSectionTag("$a", "internet")
	n.AddSectionTag("$b", "apps")
	n.AddSectionTag("$c", "apps") // second editor, same section

	if diff := cmp.Diff([]string{"apps", "internet"}, n.SectionNames()); diff != "" {
		t.Errorf("section names (-want +got):\n%s", diff)
	}
}

func TestCloneIsolation(t *testing.T) {
	n := NewNews("$msg1", "@alice:example.org", "Alice", "update text", time.Now())
	n.AddSectionTag("$a", "apps")

	c := n.Clone()
	c.AddSectionTag("$b", "internet")
	c.Message = "changed"

	if n.HasAnnotation("$b") {
		t.Error("mutating the clone leaked into the original")
	}
	if n.Message != "update text" {
		t.Errorf("original message changed to %q", n.Message)
	}
}

func TestSummary(t *testing.T) {
	short := NewNews("$1", "@a:x", "A", "short update", time.Now())
	if got := short.Summary(); got != "short update" {
		t.Errorf("Summary = %q, want unchanged message", got)
	}

	// Multi-byte runes must not be split at the cut point.
	long := NewNews("$2", "@a:x", "A", strings.Repeat("ü", 60), time.Now())
	want := strings.Repeat("ü", 50) + " …"
	if got := long.Summary(); got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestMediaDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		media Media
		want  string
	}{
		{
			name:  "locator id with extension",
			media: Media{Filename: "screenshot.png", Locator: "mxc://example.org/QWxpY2U"},
			want:  "QWxpY2U.png",
		},
		{
			name:  "missing media id",
			media: Media{Filename: "clip.mp4", Locator: ""},
			want:  "no-media-id.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.media.DisplayName(); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayMediaDeduplicates(t *testing.T) {
	n := NewNews("$msg1", "@alice:example.org", "Alice", "update text", time.Now())
	same := Media{Kind: MediaImage, Filename: "a.png", Locator: "mxc://example.org/aaa"}
	n.AddMedia("$r1", same)
	n.AddMedia("$r2", same) // second editor tagged the same upload
	n.AddMedia("$r3", Media{Kind: MediaVideo, Filename: "b.mp4", Locator: "mxc://example.org/bbb"})

	got := n.DisplayMedia()
	want := []Media{
		{Kind: MediaImage, Filename: "a.png", Locator: "mxc://example.org/aaa"},
		{Kind: MediaVideo, Filename: "b.mp4", Locator: "mxc://example.org/bbb"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DisplayMedia (-want +got):\n%s", diff)
	}
}
