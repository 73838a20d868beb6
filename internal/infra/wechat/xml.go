package wechat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// inboundXML is the wire shape of a plaintext WeChat push
type inboundXML struct {
	ToUserName   string     `xml:"ToUserName"`
	FromUserName string     `xml:"FromUserName"`
	CreateTime   string     `xml:"CreateTime"`
	MsgType      string     `xml:"MsgType"`
	MsgID        string     `xml:"MsgId"`
	Content      string     `xml:"Content"`
	Event        string     `xml:"Event"`
	EventKey     string     `xml:"EventKey"`
	Ticket       string     `xml:"Ticket"`
	Extra        []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// DecodeMessage parses an inbound push into a TextMessage, EventMessage or OtherMessage.
// Unknown elements are kept on OtherMessage and ignored otherwise; MsgType is not validated.
func DecodeMessage(body []byte) (domain.InboundMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &domain.MalformedPayloadError{Err: fmt.Errorf("empty body")}
	}

	var raw inboundXML
	if err := xml.Unmarshal(body, &raw); err != nil {
		return nil, &domain.MalformedPayloadError{Err: err}
	}

	createTime, _ := strconv.ParseInt(strings.TrimSpace(raw.CreateTime), 10, 64)
	header := domain.MessageHeader{
		ToUser:     raw.ToUserName,
		FromUser:   raw.FromUserName,
		CreateTime: createTime,
		MsgType:    domain.MessageType(raw.MsgType),
		MsgID:      raw.MsgID,
	}

	switch header.MsgType {
	case domain.MsgTypeText:
		return &domain.TextMessage{MessageHeader: header, Content: raw.Content}, nil
	case domain.MsgTypeEvent:
		return &domain.EventMessage{
			MessageHeader: header,
			Event:         domain.EventType(raw.Event),
			EventKey:      raw.EventKey,
			Ticket:        raw.Ticket,
		}, nil
	default:
		fields := make(map[string]string, len(raw.Extra)+1)
		for _, f := range raw.Extra {
			fields[f.XMLName.Local] = f.Value
		}
		if raw.Content != "" {
			fields["Content"] = raw.Content
		}
		return &domain.OtherMessage{MessageHeader: header, Fields: fields}, nil
	}
}

type cdata struct {
	Value string `xml:",cdata"`
}

func newCDATA(s string) cdata {
	return cdata{Value: sanitizeXMLText(s)}
}

type textReplyXML struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

// EncodeReply renders a passive reply document.
// Only text replies are supported for now.
func EncodeReply(msg domain.ReplyMessage, now time.Time) (string, error) {
	var doc interface{}

	switch m := msg.(type) {
	case *domain.TextReply:
		doc = textReplyXML{
			ToUserName:   newCDATA(m.ToUser),
			FromUserName: newCDATA(m.FromUser),
			CreateTime:   now.Unix(),
			MsgType:      newCDATA(string(domain.MsgTypeText)),
			Content:      newCDATA(m.Content),
		}
	case nil:
		return "", fmt.Errorf("encode reply: nil message")
	default:
		return "", fmt.Errorf("encode reply: unsupported reply type %q", msg.ReplyType())
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode reply: %w", err)
	}
	return string(out), nil
}

// EncodeTextReply renders a text reply stamped with the current time
func EncodeTextReply(toUser, fromUser, content string) (string, error) {
	return EncodeReply(&domain.TextReply{ToUser: toUser, FromUser: fromUser, Content: content}, time.Now())
}

// sanitizeXMLText drops runes XML 1.0 cannot carry, even inside CDATA
func sanitizeXMLText(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isXMLChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
