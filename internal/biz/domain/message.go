package domain

// MessageType is the WeChat MsgType field
type MessageType string

const (
	MsgTypeText       MessageType = "text"
	MsgTypeImage      MessageType = "image"
	MsgTypeVoice      MessageType = "voice"
	MsgTypeVideo      MessageType = "video"
	MsgTypeShortVideo MessageType = "shortvideo"
	MsgTypeLocation   MessageType = "location"
	MsgTypeLink       MessageType = "link"
	MsgTypeEvent      MessageType = "event"
)

// EventType is the WeChat Event field of an event message
type EventType string

const (
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
	EventScan        EventType = "SCAN"
	EventLocation    EventType = "LOCATION"
	EventClick       EventType = "CLICK"
	EventView        EventType = "VIEW"
)

// MessageHeader holds the fields every inbound message carries
type MessageHeader struct {
	ToUser     string
	FromUser   string
	CreateTime int64
	MsgType    MessageType
	MsgID      string
}

// InboundMessage is one of TextMessage, EventMessage or OtherMessage
type InboundMessage interface {
	Header() MessageHeader
	inbound()
}

// TextMessage is a plain text message from a follower
type TextMessage struct {
	MessageHeader
	Content string
}

// EventMessage is a push event (subscribe, unsubscribe, scan, menu click...)
type EventMessage struct {
	MessageHeader
	Event    EventType
	EventKey string
	Ticket   string
}

// OtherMessage is any message kind the router does not reply to.
// Fields keeps the remaining XML elements by name.
type OtherMessage struct {
	MessageHeader
	Fields map[string]string
}

func (m *TextMessage) Header() MessageHeader  { return m.MessageHeader }
func (m *EventMessage) Header() MessageHeader { return m.MessageHeader }
func (m *OtherMessage) Header() MessageHeader { return m.MessageHeader }

func (*TextMessage) inbound()  {}
func (*EventMessage) inbound() {}
func (*OtherMessage) inbound() {}

// ReplyMessage is a passive reply document kind
type ReplyMessage interface {
	ReplyType() MessageType
}

// TextReply is a text passive reply
type TextReply struct {
	ToUser   string
	FromUser string
	Content  string
}

// ReplyType returns text
func (r *TextReply) ReplyType() MessageType { return MsgTypeText }

// NewTextReply answers msg with content, swapping sender and receiver
func NewTextReply(msg InboundMessage, content string) *TextReply {
	h := msg.Header()
	return &TextReply{ToUser: h.FromUser, FromUser: h.ToUser, Content: content}
}

// Reply is the outcome of routing an inbound message: either a reply
// document or a bare acknowledgment.
type Reply struct {
	msg ReplyMessage
}

// Acknowledge means respond with the literal "success"
func Acknowledge() Reply {
	return Reply{}
}

// ReplyWith responds with an XML reply document
func ReplyWith(msg ReplyMessage) Reply {
	return Reply{msg: msg}
}

// IsAcknowledge reports whether no reply document should be sent
func (r Reply) IsAcknowledge() bool {
	return r.msg == nil
}

// Message returns the reply document, nil for an acknowledgment
func (r Reply) Message() ReplyMessage {
	return r.msg
}
