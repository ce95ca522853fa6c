// Package omni defines the channel-agnostic normalized message (the "omni
// message") and the ChannelAdapter capability set every channel implements.
package omni

import (
	"context"
	"time"

	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
)

// Message is the normalized inbound envelope produced by ParseInbound.
type Message struct {
	ID                  string
	ChatID              string
	SenderID            string
	SenderDisplayName   string
	MessageType         trace.MessageType
	Text                string
	MediaURL            string
	MediaMimeType       string
	MediaSize           int64
	Caption             string
	ThumbnailURL        string
	IsFromMe            bool
	IsForwarded         bool
	IsReply             bool
	ReplyToMessageID    string
	Timestamp           time.Time
	ChannelData         map[string]any
}

// Drop is the sentinel ParseInbound returns for messages that must be
// silently discarded (own-identity echoes, system/status events).
var Drop = &Message{}

func (m *Message) IsDrop() bool { return m == Drop }

// OutboundMessage is what the router asks an adapter to send.
type OutboundMessage struct {
	Text           string
	MediaURL       string
	MediaMimeType  string
	Caption        string
	QuotedMessageID string
}

type SendResult struct {
	MessageID  string
	StatusCode int
}

// BrokerCreds is the minimal credential bundle an adapter needs to talk to
// its broker/gateway, resolved from an InstanceConfig.
type BrokerCreds struct {
	BaseURL string
	Key     string
	Extra   string // whatsapp_instance or discord_guild_id
}

// Adapter is the ChannelAdapter capability set. The set of adapters is
// closed and statically registered at startup; there is no runtime
// plug-in loading.
type Adapter interface {
	ParseInbound(ctx context.Context, inst instance.InstanceConfig, rawEvent []byte) (*Message, error)
	SendOutbound(ctx context.Context, inst instance.InstanceConfig, recipient string, msg OutboundMessage) (SendResult, error)
	Credentials(inst instance.InstanceConfig) BrokerCreds
	// Split breaks a text response into per-adapter-legal chunks, honoring
	// enable_auto_split and any adapter-specific hard limit.
	Split(text string, autoSplit bool) []string
}
