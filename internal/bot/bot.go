// Package bot implements the annotation engine: it consumes normalized
// chat events, maintains the News collection through the store, and
// produces confirmation messages for the reporting and admin rooms.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"news_bot/internal/archive"
	"news_bot/internal/config"
	"news_bot/internal/fetcher"
	"news_bot/internal/model"
	"news_bot/internal/reaction"
	"news_bot/internal/store"
)

// Room addresses one of the two rooms the bot operates in.
type Room string

// The rooms the bot sends to.
const (
	RoomReporting Room = "reporting"
	RoomAdmin     Room = "admin"
)

// Transport is the chat layer the engine talks through. Delivery is
// best-effort: the engine logs transport errors and never rolls back an
// already-persisted mutation because a confirmation could not be sent.
type Transport interface {
	SendText(ctx context.Context, room Room, body string) error
	SendNotice(ctx context.Context, room Room, body string) error
	SendHTMLNotice(ctx context.Context, room Room, body string) error
	React(ctx context.Context, messageID, emoji string) error
	ResolveMessage(ctx context.Context, id string) (*model.ResolvedMessage, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
	SendFile(ctx context.Context, room Room, locator, filename string) error
	MediaDownloadURL(locator string) string
	BotDisplayName() string
}

// Bot wires the store, classifier, and transport into the event-handling
// state machine.
type Bot struct {
	cfg        *config.Config
	store      *store.NewsStore
	archive    *archive.Archive
	classifier *reaction.Classifier
	transport  Transport
	fetcher    *fetcher.Fetcher
	mentions   *mentionMatcher
	log        *slog.Logger
}

// New creates a Bot over the given collaborators. The archive may be nil
// when report archiving is disabled.
func New(cfg *config.Config, newsStore *store.NewsStore, arch *archive.Archive, transport Transport, log *slog.Logger) *Bot {
	return &Bot{
		cfg:        cfg,
		store:      newsStore,
		archive:    arch,
		classifier: reaction.NewClassifier(cfg.NoticeEmoji, cfg.Sections, cfg.Projects),
		transport:  transport,
		fetcher:    fetcher.New(http.DefaultClient),
		mentions:   newMentionMatcher(cfg.BotUserID),
		log:        log,
	}
}

// Startup posts the startup notice and any configuration findings to the
// admin room.
func (b *Bot) Startup(ctx context.Context) {
	b.adminNotice(ctx, "✅ Started news bot!")

	warnings, notes := b.cfg.Validate()
	if len(warnings) > 0 {
		b.adminHTML(ctx, formatMessages(true, warnings))
	}
	if len(notes) > 0 {
		b.adminHTML(ctx, formatMessages(false, notes))
	}
}

// HandleEvent processes one normalized reporting-room event. The only
// errors it returns are persistence failures, which callers must treat
// as fatal; every curational problem is converted into an admin-room
// message instead.
func (b *Bot) HandleEvent(ctx context.Context, event model.Event) error {
	switch ev := event.(type) {
	case model.MessageCreated:
		return b.onMessage(ctx, ev)
	case model.MessageEdited:
		return b.onEdit(ctx, ev)
	case model.ReactionAdded:
		return b.onReactionAdded(ctx, ev)
	case model.ReactionRemoved:
		return b.onReactionRemoved(ctx, ev)
	default:
		return fmt.Errorf("unknown event type %T", event)
	}
}

// ListNews returns a snapshot of the current collection.
func (b *Bot) ListNews() []*model.News {
	return b.store.List()
}

// Clear empties the collection.
func (b *Bot) Clear() error {
	return b.store.Clear()
}

// Best-effort send helpers. Message delivery never affects stored state.

func (b *Bot) adminNotice(ctx context.Context, text string) {
	if err := b.transport.SendNotice(ctx, RoomAdmin, text); err != nil {
		b.log.Error("send admin notice", "error", err)
	}
}

func (b *Bot) adminHTML(ctx context.Context, text string) {
	if err := b.transport.SendHTMLNotice(ctx, RoomAdmin, text); err != nil {
		b.log.Error("send admin notice", "error", err)
	}
}

func (b *Bot) reportingNotice(ctx context.Context, text string) {
	if err := b.transport.SendNotice(ctx, RoomReporting, text); err != nil {
		b.log.Error("send reporting notice", "error", err)
	}
}

func (b *Bot) reportingText(ctx context.Context, text string) {
	if err := b.transport.SendText(ctx, RoomReporting, text); err != nil {
		b.log.Error("send reporting message", "error", err)
	}
}

func (b *Bot) react(ctx context.Context, messageID, emoji string) {
	if err := b.transport.React(ctx, messageID, emoji); err != nil {
		b.log.Warn("send reaction", "message_id", messageID, "emoji", emoji, "error", err)
	}
}

// displayName resolves a user's current display name, falling back to
// the raw user ID when the transport cannot resolve it.
func (b *Bot) displayName(ctx context.Context, userID string) string {
	name, err := b.transport.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}

func (b *Bot) messageLink(eventID string) string {
	return fmt.Sprintf("<a href=\"https://matrix.to/#/%s/%s\">open message</a>", b.cfg.ReportingRoomID, eventID)
}
