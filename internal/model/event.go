package model

import "time"

// Event is one normalized inbound chat event. The transport converts its
// protocol's wire events into this closed set; the engine switches
// exhaustively over the four concrete types.
type Event interface {
	isEvent()
}

// MessageCreated is a new message in the reporting room.
type MessageCreated struct {
	ID        string
	SenderID  string
	Body      string
	Timestamp time.Time
}

// MessageEdited replaces the body of an earlier message.
type MessageEdited struct {
	OriginalID string
	NewBody    string
}

// ReactionAdded is a new emoji annotation on a target message.
type ReactionAdded struct {
	ReactionID string
	TargetID   string
	SenderID   string
	Emoji      string
}

// ReactionRemoved retracts an earlier annotation, or redacts a message
// outright. The target is resolved through the store: the id may be a
// reaction (undo one tag) or an originating message (remove the News).
type ReactionRemoved struct {
	ReactionID string
	SenderID   string
}

func (MessageCreated) isEvent()  {}
func (MessageEdited) isEvent()   {}
func (ReactionAdded) isEvent()   {}
func (ReactionRemoved) isEvent() {}

// MessageKind classifies a resolved message for reaction handling.
type MessageKind string

// The message kinds the engine distinguishes.
const (
	KindText   MessageKind = "text"
	KindNotice MessageKind = "notice"
	KindImage  MessageKind = "image"
	KindVideo  MessageKind = "video"
)

// ResolvedMessage is the transport's view of a reaction target, fetched
// on demand when a reaction arrives for a message the store does not know.
type ResolvedMessage struct {
	Kind          MessageKind
	Body          string
	MediaLocator  string
	MediaFilename string
	SenderID      string
	Timestamp     time.Time
}
