// Package model defines the domain types used across the application.
package model

import (
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// summaryLimit is the number of leading characters kept when a message
// body is shortened for confirmation messages and status listings.
const summaryLimit = 50

// MediaKind distinguishes the supported attachment types.
type MediaKind string

// Supported media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is one attachment associated with a News entry. The map key that
// points at a Media value is the annotation id of the reaction that
// attached it, so SourceID records the message the file actually came from.
type Media struct {
	Kind     MediaKind `json:"kind"`
	SourceID string    `json:"source_id"`
	Filename string    `json:"filename"`
	Locator  string    `json:"locator"`
}

// DisplayName derives the filename used when the attachment is listed for
// download: the locator's media id plus the original file extension. Two
// editors tagging the same upload produce the same display name, which is
// what the per-locator deduplication keys on.
func (m Media) DisplayName() string {
	id := m.Locator
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		id = "no-media-id"
	}
	ext := strings.TrimPrefix(path.Ext(m.Filename), ".")
	return id + "." + ext
}

// News is one submitted report awaiting or having received editorial
// tagging. The tag and media maps are keyed by annotation id (the reaction
// event that applied them), so a retracted reaction removes exactly its
// own contribution.
type News struct {
	ID                  string    `json:"id"`
	ReporterID          string    `json:"reporter_id"`
	ReporterDisplayName string    `json:"reporter_display_name"`
	Timestamp           time.Time `json:"timestamp"`
	Message             string    `json:"message"`

	SectionTags map[string]string `json:"section_tags"`
	ProjectTags map[string]string `json:"project_tags"`
	Media       map[string]Media  `json:"media"`
}

// NewNews creates a News entry with empty tag and media maps.
func NewNews(id, reporterID, reporterDisplayName, message string, timestamp time.Time) *News {
	return &News{
		ID:                  id,
		ReporterID:          reporterID,
		ReporterDisplayName: reporterDisplayName,
		Timestamp:           timestamp,
		Message:             message,
		SectionTags:         make(map[string]string),
		ProjectTags:         make(map[string]string),
		Media:               make(map[string]Media),
	}
}

// Clone returns a deep copy. The store hands out clones so that callers
// can never mutate stored state except through store methods.
func (n *News) Clone() *News {
	c := *n
	c.SectionTags = make(map[string]string, len(n.SectionTags))
	for k, v := range n.SectionTags {
		c.SectionTags[k] = v
	}
	c.ProjectTags = make(map[string]string, len(n.ProjectTags))
	for k, v := range n.ProjectTags {
		c.ProjectTags[k] = v
	}
	c.Media = make(map[string]Media, len(n.Media))
	for k, v := range n.Media {
		c.Media[k] = v
	}
	return &c
}

// IsAssigned reports whether the entry carries at least one section or
// project tag. Only assigned entries are eligible for rendering.
func (n *News) IsAssigned() bool {
	return len(n.SectionTags) > 0 || len(n.ProjectTags) > 0
}

// AddSectionTag records a section tag under the given annotation id.
// Re-applying the same annotation id overwrites, never duplicates.
func (n *News) AddSectionTag(annotationID, sectionName string) {
	n.SectionTags[annotationID] = sectionName
}

// AddProjectTag records a project tag under the given annotation id.
func (n *News) AddProjectTag(annotationID, projectName string) {
	n.ProjectTags[annotationID] = projectName
}

// AddMedia records an attachment under the given annotation id.
func (n *News) AddMedia(annotationID string, media Media) {
	n.Media[annotationID] = media
}

// SectionNames returns the distinct section names, sorted. Duplicate tags
// applied by different editors collapse to one name.
func (n *News) SectionNames() []string {
	return distinctValues(n.SectionTags)
}

// ProjectNames returns the distinct project names, sorted.
func (n *News) ProjectNames() []string {
	return distinctValues(n.ProjectTags)
}

// AnnotationKind names which map an annotation id was found in.
type AnnotationKind string

// Possible results of RemoveAnnotation.
const (
	AnnotationSection AnnotationKind = "section"
	AnnotationProject AnnotationKind = "project"
	AnnotationMedia   AnnotationKind = "media"
	AnnotationNone    AnnotationKind = "none"
)

// RemoveAnnotation deletes whichever tag or media entry the annotation id
// refers to and reports which kind it was. Removing an unknown id is a
// no-op returning AnnotationNone.
func (n *News) RemoveAnnotation(annotationID string) AnnotationKind {
	if _, ok := n.SectionTags[annotationID]; ok {
		delete(n.SectionTags, annotationID)
		return AnnotationSection
	}
	if _, ok := n.ProjectTags[annotationID]; ok {
		delete(n.ProjectTags, annotationID)
		return AnnotationProject
	}
	if _, ok := n.Media[annotationID]; ok {
		delete(n.Media, annotationID)
		return AnnotationMedia
	}
	return AnnotationNone
}

// HasAnnotation reports whether the annotation id appears in any of the
// tag or media maps.
func (n *News) HasAnnotation(annotationID string) bool {
	if _, ok := n.SectionTags[annotationID]; ok {
		return true
	}
	if _, ok := n.ProjectTags[annotationID]; ok {
		return true
	}
	_, ok := n.Media[annotationID]
	return ok
}

// DisplayMedia returns the attachments deduplicated by content locator,
// sorted by display name. The same upload tagged by two editors appears
// once.
func (n *News) DisplayMedia() []Media {
	byLocator := make(map[string]Media, len(n.Media))
	for _, m := range n.Media {
		byLocator[m.Locator] = m
	}
	out := make([]Media, 0, len(byLocator))
	for _, m := range byLocator {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out
}

// Summary shortens the message body for confirmation messages. Truncation
// happens on rune boundaries so multi-byte characters are never split.
func (n *News) Summary() string {
	if utf8.RuneCountInString(n.Message) <= summaryLimit {
		return n.Message
	}
	runes := []rune(n.Message)
	return string(runes[:summaryLimit]) + " …"
}

func distinctValues(m map[string]string) []string {
	seen := make(map[string]struct{}, len(m))
	var names []string
	for _, v := range m {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Section is a top-level report category. Sections are immutable and
// loaded once from configuration.
type Section struct {
	Name           string   `yaml:"name"`
	Title          string   `yaml:"title"`
	Emoji          string   `yaml:"emoji"`
	Order          int      `yaml:"order"`
	UsualReporters []string `yaml:"usual_reporters"`
}

// Project is a named subject with a default section and a descriptive
// template. The description may contain a {{project}} placeholder that
// rendering replaces with a link to the project website.
type Project struct {
	Name           string   `yaml:"name"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Website        string   `yaml:"website"`
	Emoji          string   `yaml:"emoji"`
	DefaultSection string   `yaml:"default_section"`
	Feed           string   `yaml:"feed"`
	UsualReporters []string `yaml:"usual_reporters"`
}
