package matrix

// Wire types for the subset of the client-server API the bot uses.

type loginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

type authResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
}

type sendEventResponse struct {
	EventID string `json:"event_id"`
}

type displayNameResponse struct {
	DisplayName string `json:"displayname"`
}

type uploadResponse struct {
	ContentURI string `json:"content_uri"`
}

// Event is a Matrix event as it appears in sync timelines and event
// fetches.
type Event struct {
	EventID        string       `json:"event_id"`
	Type           string       `json:"type"`
	Sender         string       `json:"sender"`
	OriginServerTS int64        `json:"origin_server_ts"`
	Content        EventContent `json:"content"`
	Redacts        string       `json:"redacts,omitempty"`
}

// EventContent covers the content fields of the event types the bot
// consumes. Fields outside the relevant message type are zero.
type EventContent struct {
	MsgType       string       `json:"msgtype,omitempty"`
	Body          string       `json:"body,omitempty"`
	Format        string       `json:"format,omitempty"`
	FormattedBody string       `json:"formatted_body,omitempty"`
	URL           string       `json:"url,omitempty"`
	RelatesTo     *RelatesTo   `json:"m.relates_to,omitempty"`
	NewContent    *MessageEdit `json:"m.new_content,omitempty"`
}

// RelatesTo carries event relations: reaction annotations and edit
// replacements.
type RelatesTo struct {
	RelType string `json:"rel_type,omitempty"`
	EventID string `json:"event_id,omitempty"`
	Key     string `json:"key,omitempty"`
}

// MessageEdit is the replacement content of an m.replace relation.
type MessageEdit struct {
	MsgType string `json:"msgtype,omitempty"`
	Body    string `json:"body,omitempty"`
}

// SyncOptions controls the /sync endpoint.
type SyncOptions struct {
	Since   string // next_batch token from the previous sync; empty for initial
	Timeout int    // long-poll timeout in milliseconds; 0 returns immediately
	Filter  string // inline JSON filter
}

// SyncResponse is the top-level response from /sync, reduced to the
// joined-room timelines.
type SyncResponse struct {
	NextBatch string `json:"next_batch"`
	Rooms     struct {
		Join map[string]joinedRoom `json:"join"`
	} `json:"rooms"`
}

type joinedRoom struct {
	Timeline struct {
		Events []Event `json:"events"`
	} `json:"timeline"`
}
