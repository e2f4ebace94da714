package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"news_bot/internal/model"
	"news_bot/internal/reaction"
	"news_bot/internal/store"
)

// onMessage handles a new reporting-room message. Only messages that
// mention the bot at the start become submissions.
func (b *Bot) onMessage(ctx context.Context, ev model.MessageCreated) error {
	if !b.mentions.Matches(b.transport.BotDisplayName(), ev.Body) {
		return nil
	}
	return b.submit(ctx, ev.ID, ev.SenderID, ev.Body, ev.Timestamp, true)
}

// submit creates a News entry from a message body. notifyReporter
// controls whether the submitter gets the configured acknowledgment
// (direct mention submissions only, not notice-emoji ones).
func (b *Bot) submit(ctx context.Context, id, reporterID, body string, ts time.Time, notifyReporter bool) error {
	link := b.messageLink(id)

	if _, ok := b.store.ByMessageID(id); ok {
		b.adminHTML(ctx, fmt.Sprintf("⚠️ Cannot resubmit a news item that has already been added. [%s]", link))
		return nil
	}

	body = b.mentions.Strip(b.transport.BotDisplayName(), body)
	displayName := b.displayName(ctx, reporterID)

	if utf8.RuneCountInString(body) <= b.cfg.MinLength {
		b.reportingNotice(ctx, fmt.Sprintf("❌ %s: Your update is too short and was not stored. This limitation was set up to limit spam.", displayName))
		return nil
	}

	news := model.NewNews(id, reporterID, displayName, body, ts)
	if err := b.store.Add(news); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			b.adminHTML(ctx, fmt.Sprintf("⚠️ Cannot resubmit a news item that has already been added. [%s]", link))
			return nil
		}
		return err
	}

	if notifyReporter && b.cfg.AckText != "" {
		b.reportingNotice(ctx, strings.ReplaceAll(b.cfg.AckText, "{{user}}", displayName))
	}
	b.adminHTML(ctx, fmt.Sprintf("✅ %s submitted a news entry. [%s]", reporterID, link))

	b.suggestTags(ctx, news)
	return nil
}

// suggestTags pre-populates reactions to ease the editors' work: a
// suggestion-marked project emoji for every project mentioned in the
// text, and the section emoji for sections that list the reporter as a
// usual reporter.
func (b *Bot) suggestTags(ctx context.Context, news *model.News) {
	for _, project := range b.cfg.Projects {
		pattern := fmt.Sprintf(`(?i)\b%s\b|\b%s\b`, regexp.QuoteMeta(project.Name), regexp.QuoteMeta(project.Title))
		if regexp.MustCompile(pattern).MatchString(news.Message) {
			b.react(ctx, news.ID, project.Emoji+" ?")
		}
	}
	for _, section := range b.cfg.SectionsByUsualReporter(news.ReporterID) {
		b.react(ctx, news.ID, section.Emoji)
	}
}

// onEdit replaces the stored message body when the originating message
// of a known News gets edited. Moderators are warned when the entry was
// already assigned, since its substance changed under their tags.
func (b *Bot) onEdit(ctx context.Context, ev model.MessageEdited) error {
	news, ok := b.store.ByMessageID(ev.OriginalID)
	if !ok {
		b.log.Debug("edit of unknown message ignored", "id", ev.OriginalID)
		return nil
	}

	body := b.mentions.Strip(b.transport.BotDisplayName(), ev.NewBody)
	if err := b.store.Mutate(ev.OriginalID, func(n *model.News) { n.Message = body }); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if news.IsAssigned() {
		b.adminHTML(ctx, fmt.Sprintf(
			"✅ The news entry by %s got edited. Check the new text, and make sure you want to keep the assigned project/section. [%s]",
			news.ReporterID, b.messageLink(ev.OriginalID)))
	}
	return nil
}

// onReactionAdded applies the classified emoji to its target: tagging an
// existing News, submitting a message via the notice emoji, or attaching
// media to the nearest same-reporter News.
func (b *Bot) onReactionAdded(ctx context.Context, ev model.ReactionAdded) error {
	// The bot's own suggestion reactions come back through sync.
	if ev.SenderID == b.cfg.BotUserID {
		return nil
	}

	classified := b.classifier.Classify(ev.Emoji)
	if classified.Kind == reaction.KindNone {
		b.log.Debug("ignoring reaction, emoji not configured", "emoji", ev.Emoji)
		return nil
	}

	isEditor := b.cfg.IsEditor(ev.SenderID)
	link := b.messageLink(ev.TargetID)

	if news, ok := b.store.ByMessageID(ev.TargetID); ok {
		return b.tagNews(ctx, ev, classified, news, isEditor, link)
	}

	resolved, err := b.transport.ResolveMessage(ctx, ev.TargetID)
	if err != nil {
		b.log.Warn("resolve reaction target", "target_id", ev.TargetID, "error", err)
		b.adminHTML(ctx, fmt.Sprintf(
			"⚠️ Unable to process %s's %s reaction, message doesn't exist or isn't a news submission [%s]\n(ID %s)",
			ev.SenderID, classified.Kind, link, ev.TargetID))
		return nil
	}

	switch resolved.Kind {
	case model.KindText, model.KindNotice:
		if classified.Kind != reaction.KindNotice {
			if !isEditor {
				return nil
			}
			b.adminHTML(ctx, fmt.Sprintf(
				"⚠️ Unable to process %s's %s reaction, message isn't a news submission [%s]",
				ev.SenderID, classified.Kind, link))
			return nil
		}
		if !b.mayNotice(ev.SenderID, resolved.SenderID, isEditor) {
			return nil
		}
		return b.submit(ctx, ev.TargetID, resolved.SenderID, resolved.Body, resolved.Timestamp, false)

	case model.KindImage, model.KindVideo:
		if classified.Kind != reaction.KindNotice {
			if !isEditor {
				return nil
			}
			b.adminHTML(ctx, fmt.Sprintf(
				"❌ Invalid reaction emoji %s by %s for message type %s [%s].",
				ev.Emoji, ev.SenderID, resolved.Kind, link))
			return nil
		}
		if !b.mayNotice(ev.SenderID, resolved.SenderID, isEditor) {
			return nil
		}
		return b.attachMedia(ctx, ev, resolved, link)
	}
	return nil
}

// tagNews inserts a section or project tag on an existing News. A
// reactor without editor privilege is ignored without response.
func (b *Bot) tagNews(ctx context.Context, ev model.ReactionAdded, classified reaction.Reaction, news *model.News, isEditor bool, link string) error {
	switch classified.Kind {
	case reaction.KindSection:
		if !isEditor {
			return nil
		}
		if err := b.store.Mutate(news.ID, func(n *model.News) { n.AddSectionTag(ev.ReactionID, classified.Section.Name) }); err != nil {
			return err
		}
		b.adminHTML(ctx, fmt.Sprintf("✅ %s added %s's news entry [%s] to the “%s” section.",
			ev.SenderID, news.ReporterID, link, classified.Section.Title))

	case reaction.KindProject:
		if !isEditor {
			return nil
		}
		if err := b.store.Mutate(news.ID, func(n *model.News) { n.AddProjectTag(ev.ReactionID, classified.Project.Name) }); err != nil {
			return err
		}
		b.adminHTML(ctx, fmt.Sprintf("✅ %s added the project description “%s” to %s's news entry [%s].",
			ev.SenderID, classified.Project.Title, news.ReporterID, link))

	case reaction.KindNotice:
		b.adminHTML(ctx, fmt.Sprintf("⚠️ Cannot resubmit a news item that has already been added. [%s]", link))
	}
	return nil
}

// mayNotice reports whether a notice-emoji reaction from sender on a
// message by owner is permitted.
func (b *Bot) mayNotice(senderID, ownerID string, isEditor bool) bool {
	if isEditor {
		return true
	}
	return senderID == ownerID && !b.cfg.RestrictNotice
}

// attachMedia associates a media message with the nearest same-reporter
// News, keyed by the reaction that confirmed it. There is deliberately
// no distance cutoff on the nearest-timestamp match; the heuristic
// mirrors how media arrives right before or after its text submission.
func (b *Bot) attachMedia(ctx context.Context, ev model.ReactionAdded, resolved *model.ResolvedMessage, link string) error {
	news, ok := b.store.FindNearestByReporterAndTime(resolved.SenderID, resolved.Timestamp)
	if !ok {
		b.adminHTML(ctx, fmt.Sprintf("❌ Unable to save %s's %s, no matching news entry found (%s).",
			ev.SenderID, resolved.Kind, link))
		return nil
	}

	kind := model.MediaImage
	if resolved.Kind == model.KindVideo {
		kind = model.MediaVideo
	}
	media := model.Media{
		Kind:     kind,
		SourceID: ev.TargetID,
		Filename: resolved.MediaFilename,
		Locator:  resolved.MediaLocator,
	}
	if err := b.store.Mutate(news.ID, func(n *model.News) { n.AddMedia(ev.ReactionID, media) }); err != nil {
		return err
	}

	b.adminHTML(ctx, fmt.Sprintf("✅ Added %s to %s's news entry (“%s”) [%s].",
		resolved.Kind, news.ReporterID, news.Summary(), link))
	return nil
}

// onReactionRemoved undoes whatever the redacted id contributed: the
// whole News when its originating message was redacted, otherwise
// exactly the one tag or media entry the reaction added.
func (b *Bot) onReactionRemoved(ctx context.Context, ev model.ReactionRemoved) error {
	if news, err := b.store.Remove(ev.ReactionID); err == nil {
		b.adminHTML(ctx, fmt.Sprintf("✅ %s's news entry got deleted by %s.", news.ReporterID, ev.SenderID))
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	news, ok := b.store.ByAnnotationID(ev.ReactionID)
	if !ok {
		b.log.Debug("ignoring redaction, unknown annotation id", "id", ev.ReactionID)
		return nil
	}

	var removed model.AnnotationKind
	var assigned bool
	if err := b.store.Mutate(news.ID, func(n *model.News) {
		removed = n.RemoveAnnotation(ev.ReactionID)
		assigned = n.IsAssigned()
	}); err != nil {
		return err
	}
	if removed == model.AnnotationNone {
		return nil
	}

	what := map[model.AnnotationKind]string{
		model.AnnotationSection: "section reaction",
		model.AnnotationProject: "project reaction",
		model.AnnotationMedia:   "image/video notice reaction",
	}[removed]

	msg := fmt.Sprintf("✅ %s removed their %s from %s's news entry. [%s]",
		ev.SenderID, what, news.ReporterID, b.messageLink(news.ID))
	if !assigned {
		msg += " The news entry is now unassigned."
	}
	b.adminHTML(ctx, msg)
	return nil
}
