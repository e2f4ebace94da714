package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"news_bot/internal/bot"
	"news_bot/internal/config"
	"news_bot/internal/model"
)

// syncTimeout is the long-poll timeout passed to /sync.
const syncTimeout = 30 * time.Second

// syncRetryDelay is how long to wait before retrying after a failed
// sync request.
const syncRetryDelay = 5 * time.Second

// Bridge adapts the Matrix client to the engine: it runs the sync loop,
// normalizes timeline events, and implements the engine's transport.
type Bridge struct {
	client *Client
	cfg    *config.Config
	log    *slog.Logger

	// botDisplayName is resolved once at startup. Mention matching
	// falls back to the user ID localpart when the profile has none.
	botDisplayName string
}

// NewBridge creates a Bridge over a logged-in client.
func NewBridge(client *Client, cfg *config.Config, log *slog.Logger) *Bridge {
	return &Bridge{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Run joins the configured rooms and long-polls /sync until the context
// is canceled, dispatching reporting-room events and admin-room
// commands to the engine. The initial sync establishes the stream
// position; backlog from before startup is not replayed.
func (br *Bridge) Run(ctx context.Context, b *bot.Bot) error {
	for _, roomID := range []string{br.cfg.ReportingRoomID, br.cfg.AdminRoomID} {
		if err := br.client.JoinRoom(ctx, roomID); err != nil {
			return fmt.Errorf("join room: %w", err)
		}
	}

	if name, err := br.client.DisplayName(ctx, br.cfg.BotUserID); err == nil && name != "" {
		br.botDisplayName = name
	} else {
		localpart, _, _ := strings.Cut(strings.TrimPrefix(br.cfg.BotUserID, "@"), ":")
		br.botDisplayName = localpart
	}

	filter := br.inlineFilter()
	initial, err := br.client.Sync(ctx, SyncOptions{Timeout: 0, Filter: filter})
	if err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	since := initial.NextBatch

	b.Startup(ctx)
	br.log.Info("sync loop started", "since", since)

	for {
		response, err := br.client.Sync(ctx, SyncOptions{Since: since, Timeout: int(syncTimeout.Milliseconds()), Filter: filter})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			br.log.Warn("sync failed, retrying", "error", err)
			select {
			case <-time.After(syncRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		since = response.NextBatch

		if err := br.dispatch(ctx, b, response); err != nil {
			return err
		}
	}
}

// inlineFilter scopes /sync to the two rooms and the three event types
// the engine consumes. Presence, account data, and room state are
// suppressed.
func (br *Bridge) inlineFilter() string {
	filter := map[string]any{
		"room": map[string]any{
			"rooms": []string{br.cfg.ReportingRoomID, br.cfg.AdminRoomID},
			"timeline": map[string]any{
				"types": []string{"m.room.message", "m.reaction", "m.room.redaction"},
			},
			"state": map[string]any{"types": []string{}},
		},
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(filter)
	return string(data)
}

// dispatch routes one sync response. Engine errors are persistence
// failures and abort the loop.
func (br *Bridge) dispatch(ctx context.Context, b *bot.Bot, response *SyncResponse) error {
	for roomID, room := range response.Rooms.Join {
		for _, event := range room.Timeline.Events {
			if event.Sender == br.cfg.BotUserID {
				continue
			}
			switch roomID {
			case br.cfg.ReportingRoomID:
				normalized, ok := normalizeEvent(event)
				if !ok {
					continue
				}
				if err := b.HandleEvent(ctx, normalized); err != nil {
					return fmt.Errorf("handle event %s: %w", event.EventID, err)
				}
			case br.cfg.AdminRoomID:
				if event.Type != "m.room.message" || event.Content.MsgType != "m.text" {
					continue
				}
				if !strings.HasPrefix(strings.TrimSpace(event.Content.Body), "!") {
					continue
				}
				if err := b.HandleAdminCommand(ctx, event.Sender, event.Content.Body); err != nil {
					return fmt.Errorf("handle command %s: %w", event.EventID, err)
				}
			}
		}
	}
	return nil
}

// normalizeEvent converts a raw reporting-room event into the engine's
// event model. Events outside the engine's vocabulary are dropped.
func normalizeEvent(event Event) (model.Event, bool) {
	switch event.Type {
	case "m.room.message":
		content := event.Content
		if content.RelatesTo != nil && content.RelatesTo.RelType == "m.replace" && content.NewContent != nil {
			return model.MessageEdited{
				OriginalID: content.RelatesTo.EventID,
				NewBody:    content.NewContent.Body,
			}, true
		}
		if content.MsgType != "m.text" {
			return nil, false
		}
		return model.MessageCreated{
			ID:        event.EventID,
			SenderID:  event.Sender,
			Body:      content.Body,
			Timestamp: time.UnixMilli(event.OriginServerTS),
		}, true

	case "m.reaction":
		relates := event.Content.RelatesTo
		if relates == nil || relates.RelType != "m.annotation" {
			return nil, false
		}
		return model.ReactionAdded{
			ReactionID: event.EventID,
			TargetID:   relates.EventID,
			SenderID:   event.Sender,
			Emoji:      relates.Key,
		}, true

	case "m.room.redaction":
		if event.Redacts == "" {
			return nil, false
		}
		return model.ReactionRemoved{
			ReactionID: event.Redacts,
			SenderID:   event.Sender,
		}, true
	}
	return nil, false
}

// Transport implementation. All sends target one of the two configured
// rooms.

func (br *Bridge) roomID(room bot.Room) string {
	if room == bot.RoomAdmin {
		return br.cfg.AdminRoomID
	}
	return br.cfg.ReportingRoomID
}

// SendText sends a plain m.text message.
func (br *Bridge) SendText(ctx context.Context, room bot.Room, body string) error {
	_, err := br.client.SendEvent(ctx, br.roomID(room), "m.room.message", EventContent{
		MsgType: "m.text",
		Body:    body,
	})
	return err
}

// SendNotice sends an m.notice message. Notices are not re-ingested by
// the sync loop, which keeps the bot from reacting to its own output.
func (br *Bridge) SendNotice(ctx context.Context, room bot.Room, body string) error {
	_, err := br.client.SendEvent(ctx, br.roomID(room), "m.room.message", EventContent{
		MsgType: "m.notice",
		Body:    body,
	})
	return err
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// SendHTMLNotice sends an m.notice with an HTML formatted body. The
// plain-text fallback is derived by stripping tags.
func (br *Bridge) SendHTMLNotice(ctx context.Context, room bot.Room, html string) error {
	plain := htmlTagRe.ReplaceAllString(strings.ReplaceAll(html, "<br>", "\n"), "")
	_, err := br.client.SendEvent(ctx, br.roomID(room), "m.room.message", EventContent{
		MsgType:       "m.notice",
		Body:          plain,
		Format:        "org.matrix.custom.html",
		FormattedBody: html,
	})
	return err
}

// React annotates a reporting-room message with an emoji.
func (br *Bridge) React(ctx context.Context, messageID, emoji string) error {
	_, err := br.client.SendEvent(ctx, br.cfg.ReportingRoomID, "m.reaction", EventContent{
		RelatesTo: &RelatesTo{
			RelType: "m.annotation",
			EventID: messageID,
			Key:     emoji,
		},
	})
	return err
}

// ResolveMessage fetches a reporting-room message by its event ID and
// classifies it for the engine.
func (br *Bridge) ResolveMessage(ctx context.Context, id string) (*model.ResolvedMessage, error) {
	event, err := br.client.RoomEvent(ctx, br.cfg.ReportingRoomID, id)
	if err != nil {
		return nil, err
	}
	if event.Type != "m.room.message" {
		return nil, fmt.Errorf("event %s is not a message (%s)", id, event.Type)
	}

	resolved := &model.ResolvedMessage{
		Body:      event.Content.Body,
		SenderID:  event.Sender,
		Timestamp: time.UnixMilli(event.OriginServerTS),
	}
	switch event.Content.MsgType {
	case "m.text":
		resolved.Kind = model.KindText
	case "m.notice":
		resolved.Kind = model.KindNotice
	case "m.image":
		resolved.Kind = model.KindImage
	case "m.video":
		resolved.Kind = model.KindVideo
	default:
		return nil, fmt.Errorf("unsupported message type %q for event %s", event.Content.MsgType, id)
	}
	if resolved.Kind == model.KindImage || resolved.Kind == model.KindVideo {
		// For media messages the body carries the filename.
		resolved.MediaFilename = event.Content.Body
		resolved.MediaLocator = event.Content.URL
	}
	return resolved, nil
}

// DisplayName resolves a user's current display name.
func (br *Bridge) DisplayName(ctx context.Context, userID string) (string, error) {
	return br.client.DisplayName(ctx, userID)
}

// UploadFile uploads data to the media repository and returns its MXC
// locator.
func (br *Bridge) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return br.client.UploadMedia(ctx, filename, contentType, data)
}

// SendFile posts an uploaded file into a room.
func (br *Bridge) SendFile(ctx context.Context, room bot.Room, locator, filename string) error {
	_, err := br.client.SendEvent(ctx, br.roomID(room), "m.room.message", EventContent{
		MsgType: "m.file",
		Body:    filename,
		URL:     locator,
	})
	return err
}

// MediaDownloadURL converts an MXC locator to a download URL.
func (br *Bridge) MediaDownloadURL(locator string) string {
	return br.client.MediaDownloadURL(locator)
}

// BotDisplayName returns the display name resolved at startup.
func (br *Bridge) BotDisplayName() string {
	return br.botDisplayName
}
