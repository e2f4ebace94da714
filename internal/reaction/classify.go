// Package reaction maps raw emoji strings to semantic tagging actions.
package reaction

import (
	"strings"

	"news_bot/internal/model"
)

// Kind is the semantic interpretation of a reaction emoji.
type Kind string

// The possible classifications, in matching precedence order.
const (
	KindNotice  Kind = "notice"
	KindSection Kind = "section"
	KindProject Kind = "project"
	KindNone    Kind = "none"
)

// Reaction is a classified emoji. Section and Project are set only for
// the corresponding kinds.
type Reaction struct {
	Kind    Kind
	Section *model.Section
	Project *model.Project
}

// suggestionMarker is appended to bot-suggested tag reactions so editors
// can tell them apart from confirmed ones. Classification strips it.
const suggestionMarker = " ?"

// Normalize prepares an emoji for comparison: variation selectors
// (U+FE0F) are removed so that text- and emoji-presentation forms of the
// same glyph compare equal, and the trailing suggestion marker is
// dropped.
func Normalize(emoji string) string {
	emoji = strings.TrimSuffix(emoji, suggestionMarker)
	return strings.ReplaceAll(emoji, "\uFE0F", "")
}

// Equal compares two emoji after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Classifier resolves emoji against the configured vocabulary. It is
// immutable after construction and safe for concurrent use.
type Classifier struct {
	noticeEmoji string
	sections    []model.Section
	projects    []model.Project
}

// NewClassifier builds a Classifier over the configured notice emoji and
// section/project lists.
func NewClassifier(noticeEmoji string, sections []model.Section, projects []model.Project) *Classifier {
	return &Classifier{
		noticeEmoji: noticeEmoji,
		sections:    sections,
		projects:    projects,
	}
}

// Classify maps an emoji to its semantic action. The notice emoji is
// tested first, then sections, then projects; the first match wins.
// Operators should not configure overlapping emoji across categories.
func (c *Classifier) Classify(emoji string) Reaction {
	normalized := Normalize(emoji)

	if normalized == Normalize(c.noticeEmoji) {
		return Reaction{Kind: KindNotice}
	}
	for i := range c.sections {
		if normalized == Normalize(c.sections[i].Emoji) {
			return Reaction{Kind: KindSection, Section: &c.sections[i]}
		}
	}
	for i := range c.projects {
		if normalized == Normalize(c.projects[i].Emoji) {
			return Reaction{Kind: KindProject, Project: &c.projects[i]}
		}
	}
	return Reaction{Kind: KindNone}
}
