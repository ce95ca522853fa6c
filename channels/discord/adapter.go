// Package discord adapts the omni.Adapter capability set onto the Discord
// gateway and REST API via discordgo, with a bounded backpressure queue in
// front of the session's event handler.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"github.com/sirupsen/logrus"
)

// discordHardSplitLimit is Discord's own message body ceiling.
const discordHardSplitLimit = 2000

// RawEvent is what a queued discordgo.MessageCreate is re-marshaled into
// before ToOmniMessage, so the adapter has no discordgo import leak into the
// router's pipeline.
type RawEvent struct {
	MessageID string
	ChannelID string
	AuthorID  string
	Username  string
	Content   string
	Bot       bool
	Timestamp time.Time
	Attachment *discordgo.MessageAttachment
}

// SessionPool owns one discordgo.Session per instance and a bounded queue
// of pending inbound events per instance, so a slow consumer backs off the
// gateway goroutine instead of blocking it.
type SessionPool struct {
	mu       sync.Mutex
	sessions map[string]*discordgo.Session
	queues   map[string]chan RawEvent

	queueCapacity int
	onEvent       func(instanceName string, ev RawEvent)
	dropped       int64
}

func NewSessionPool(queueCapacity int, onEvent func(instanceName string, ev RawEvent)) *SessionPool {
	return &SessionPool{
		sessions:      make(map[string]*discordgo.Session),
		queues:        make(map[string]chan RawEvent),
		queueCapacity: queueCapacity,
		onEvent:       onEvent,
	}
}

func (p *SessionPool) Start(inst instance.InstanceConfig) error {
	sess, err := discordgo.New("Bot " + inst.DiscordBotToken)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	sess.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	queue := make(chan RawEvent, p.queueCapacity)
	name := inst.Name

	sess.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		ev := RawEvent{
			MessageID: m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			Username:  m.Author.Username,
			Content:   m.Content,
			Bot:       m.Author.Bot,
			Timestamp: m.Timestamp,
		}
		if len(m.Attachments) > 0 {
			ev.Attachment = m.Attachments[0]
		}
		select {
		case queue <- ev:
		default:
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"instance_name": name,
				"channel_id":    m.ChannelID,
			}).Warn("dropped_by_backpressure")
		}
	})

	if err := sess.Open(); err != nil {
		return fmt.Errorf("discord gateway open: %w", err)
	}

	p.mu.Lock()
	p.sessions[name] = sess
	p.queues[name] = queue
	p.mu.Unlock()

	go p.drain(name, queue)
	return nil
}

func (p *SessionPool) drain(instanceName string, queue chan RawEvent) {
	for ev := range queue {
		p.onEvent(instanceName, ev)
	}
}

func (p *SessionPool) Stop(instanceName string) error {
	p.mu.Lock()
	sess, ok := p.sessions[instanceName]
	queue := p.queues[instanceName]
	delete(p.sessions, instanceName)
	delete(p.queues, instanceName)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	close(queue)
	return sess.Close()
}

func (p *SessionPool) DroppedCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *SessionPool) session(instanceName string) (*discordgo.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[instanceName]
	return sess, ok
}

// Adapter is the omni.Adapter implementation backed by a SessionPool.
type Adapter struct {
	pool *SessionPool
}

func NewAdapter(pool *SessionPool) *Adapter {
	return &Adapter{pool: pool}
}

var _ omni.Adapter = (*Adapter)(nil)

// ParseInbound never reads the wire event directly: Discord events arrive
// through SessionPool's handler and are normalized by ToOmniMessage before
// they reach the router, so this always returns an error.
func (a *Adapter) ParseInbound(ctx context.Context, inst instance.InstanceConfig, rawPayload []byte) (*omni.Message, error) {
	return nil, fmt.Errorf("discord: inbound events are delivered via SessionPool, not webhook bytes")
}

func (a *Adapter) SendOutbound(ctx context.Context, inst instance.InstanceConfig, recipient string, msg omni.OutboundMessage) (omni.SendResult, error) {
	sess, ok := a.pool.session(inst.Name)
	if !ok {
		return omni.SendResult{}, fmt.Errorf("discord: no active session for instance %s", inst.Name)
	}

	var sent *discordgo.Message
	var err error
	if msg.MediaURL != "" {
		sent, err = sess.ChannelMessageSend(recipient, msg.Text+"\n"+msg.MediaURL)
	} else {
		sent, err = sess.ChannelMessageSend(recipient, msg.Text)
	}
	if err != nil {
		return omni.SendResult{}, fmt.Errorf("discord send: %w", err)
	}
	return omni.SendResult{MessageID: sent.ID, StatusCode: 200}, nil
}

func (a *Adapter) Credentials(inst instance.InstanceConfig) omni.BrokerCreds {
	return omni.BrokerCreds{Key: inst.DiscordBotToken, Extra: inst.DiscordGuildID}
}

// Split breaks text on paragraph boundaries when autoSplit is enabled, then
// always hard-splits any chunk over Discord's 2000-character ceiling.
func (a *Adapter) Split(text string, autoSplit bool) []string {
	var units []string
	if autoSplit {
		for _, p := range strings.Split(text, "\n\n") {
			if p != "" {
				units = append(units, p)
			}
		}
		if len(units) == 0 {
			units = []string{text}
		}
	} else {
		units = []string{text}
	}

	var out []string
	for _, u := range units {
		out = append(out, hardSplit(u)...)
	}
	return out
}

// hardSplit cuts text into chunks no longer than discordHardSplitLimit
// characters, breaking on the nearest whitespace before the limit so words
// are not torn in half. Falls back to a hard rune-boundary cut when a chunk
// has no whitespace to split on.
func hardSplit(text string) []string {
	runes := []rune(text)
	if len(runes) <= discordHardSplitLimit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > discordHardSplitLimit {
		cut := lastWhitespaceBefore(runes, discordHardSplitLimit)
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \t\n\r"))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \t\n\r"))
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// lastWhitespaceBefore returns the index just after the last whitespace rune
// at or before limit, or limit itself if the chunk has no whitespace.
func lastWhitespaceBefore(runes []rune, limit int) int {
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}

// ToOmniMessage converts a queued RawEvent into the normalized inbound
// envelope the router expects. Every message whose author is a bot account
// is dropped, the adapter's own echoes included.
func ToOmniMessage(ev RawEvent) *omni.Message {
	if ev.Bot {
		return omni.Drop
	}
	msg := &omni.Message{
		ID:                ev.MessageID,
		ChatID:            ev.ChannelID,
		SenderID:          ev.AuthorID,
		SenderDisplayName: ev.Username,
		MessageType:       trace.MessageText,
		Text:              ev.Content,
		Timestamp:         ev.Timestamp,
	}
	if ev.Attachment != nil {
		msg.MessageType = trace.MessageDocument
		msg.MediaURL = ev.Attachment.URL
		msg.MediaMimeType = ev.Attachment.ContentType
		msg.MediaSize = int64(ev.Attachment.Size)
	}
	return msg
}
