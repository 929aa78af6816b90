package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type EventKind string

// Inbound kinds, sent by clients.
const (
	EventJoinStream           EventKind = "join-stream"
	EventLeaveStream          EventKind = "leave-stream"
	EventSendMessage          EventKind = "send-message"
	EventDeleteMessage        EventKind = "delete-message"
	EventMuteUser             EventKind = "mute-user"
	EventRequestCollaboration EventKind = "request-collaboration"
	EventApproveCollaboration EventKind = "approve-collaboration"
	EventEndCollaboration     EventKind = "end-collaboration"

	EventPing   EventKind = "ping"
	EventWhoAmI EventKind = "whoami"
)

// Outbound kinds, sent by the relay.
const (
	EventConnect                EventKind = "connect"
	EventDisconnect             EventKind = "disconnect"
	EventNewMessage             EventKind = "new-message"
	EventMessageDeleted         EventKind = "message-deleted"
	EventUserMuted              EventKind = "user-muted"
	EventCollaborationRequested EventKind = "collaboration-requested"
	EventCollaborationApproved  EventKind = "collaboration-approved"
	EventCollaborationEnded     EventKind = "collaboration-ended"
	EventPong                   EventKind = "pong"
)

// Disconnect reasons.
const (
	ReasonBackpressure = "backpressure"
	ReasonShutdown     = "shutdown"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMissingField = errors.New("missing required field")
	ErrBadPayload   = errors.New("bad payload")
)

// Envelope is the frame shape on the wire in both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a decoded client event. Fields the kind does not use stay empty.
type Inbound struct {
	Kind      EventKind
	Room      RoomName
	Author    string
	Text      string
	MessageID string
	UserID    string
}

// Has reports whether the named field is present (non-blank).
func (in Inbound) Has(field string) bool {
	switch field {
	case FieldRoom:
		return in.Room.Valid()
	case FieldAuthor:
		return present(in.Author)
	case FieldText:
		return present(in.Text)
	case FieldMessageID:
		return present(in.MessageID)
	case FieldUserID:
		return present(in.UserID)
	}
	return false
}

const (
	FieldRoom      = "room"
	FieldAuthor    = "author"
	FieldText      = "text"
	FieldMessageID = "messageId"
	FieldUserID    = "userId"
)

// inboundData accepts the field names used by older clients next to the current ones.
type inboundData struct {
	Room      string `json:"room"`
	StreamID  string `json:"streamId"`
	Author    string `json:"author"`
	User      string `json:"user"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	Content   string `json:"content"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	MsgID     string `json:"msgId"`
}

// DecodeInbound parses one client frame. A bare JSON string as data is taken as the room name.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if !present(string(env.Event)) {
		return Inbound{}, fmt.Errorf("%w: empty event", ErrBadPayload)
	}
	in := Inbound{Kind: env.Event}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return in, nil
	}
	switch data[0] {
	case '"':
		var room string
		if err := json.Unmarshal(data, &room); err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		in.Room = RoomName(room)
	case '{':
		var d inboundData
		if err := json.Unmarshal(data, &d); err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		in.Room = RoomName(firstPresent(d.Room, d.StreamID))
		in.Text = firstPresent(d.Text, d.Content, d.Message)
		in.MessageID = firstPresent(d.MessageID, d.MsgID)
		// mute and collaboration target the userId; chat messages name an author.
		in.UserID = d.UserID
		in.Author = firstPresent(d.Author, d.User, d.UserID)
	default:
		return Inbound{}, fmt.Errorf("%w: data must be a string or an object", ErrBadPayload)
	}
	return in, nil
}

func firstPresent(vals ...string) string {
	for _, v := range vals {
		if present(v) {
			return v
		}
	}
	return ""
}

// Message is the record relayed for every accepted chat message.
type Message struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type Disconnect struct {
	Reason string `json:"reason"`
}

type outEnvelope struct {
	Event EventKind `json:"event"`
	Data  any       `json:"data"`
}

// EncodeOutbound builds the wire frame for a relay event.
func EncodeOutbound(kind EventKind, data any) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: kind, Data: data})
}
