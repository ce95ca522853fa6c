package discord

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOmniMessage_DropsOwnBotEcho(t *testing.T) {
	ev := RawEvent{MessageID: "1", Bot: true, Content: "I am a bot"}

	msg := ToOmniMessage(ev)
	assert.True(t, msg.IsDrop())
}

func TestToOmniMessage_TextMessage(t *testing.T) {
	ts := time.Now()
	ev := RawEvent{
		MessageID: "1",
		ChannelID: "chan1",
		AuthorID:  "user1",
		Username:  "alice",
		Content:   "hello",
		Timestamp: ts,
	}

	msg := ToOmniMessage(ev)
	require.False(t, msg.IsDrop())
	assert.Equal(t, "chan1", msg.ChatID)
	assert.Equal(t, "user1", msg.SenderID)
	assert.Equal(t, "alice", msg.SenderDisplayName)
	assert.Equal(t, trace.MessageText, msg.MessageType)
	assert.Equal(t, "hello", msg.Text)
}

func TestToOmniMessage_NoAttachmentIsText(t *testing.T) {
	ev := RawEvent{
		MessageID: "1",
		AuthorID:  "user1",
	}
	msg := ToOmniMessage(ev)
	assert.Equal(t, trace.MessageText, msg.MessageType)
}

func TestAdapter_Split_HardSplitAtDiscordLimit(t *testing.T) {
	a := NewAdapter(NewSessionPool(1, nil))
	text := strings.Repeat("b", discordHardSplitLimit+50)

	parts := a.Split(text, false)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], discordHardSplitLimit, "no whitespace to split on falls back to a hard rune cut")
	assert.Len(t, parts[1], 50)
}

func TestAdapter_Split_HardSplitBreaksOnNearestWhitespace(t *testing.T) {
	a := NewAdapter(NewSessionPool(1, nil))
	// A space sits just before the limit; the split must land there rather
	// than tearing the following word in half.
	text := strings.Repeat("a", discordHardSplitLimit-5) + " " + strings.Repeat("b", 20)

	parts := a.Split(text, false)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("a", discordHardSplitLimit-5), parts[0])
	assert.Equal(t, strings.Repeat("b", 20), parts[1])
}

func TestAdapter_Split_HardSplitIsRuneSafe(t *testing.T) {
	a := NewAdapter(NewSessionPool(1, nil))
	// Multibyte runes around the cut boundary must never be sliced mid-rune.
	text := strings.Repeat("é", discordHardSplitLimit+10)

	parts := a.Split(text, false)
	require.Len(t, parts, 2)
	assert.Equal(t, discordHardSplitLimit, len([]rune(parts[0])))
	assert.Equal(t, 10, len([]rune(parts[1])))
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
	}
}

func TestAdapter_Split_AutoSplitParagraphs(t *testing.T) {
	a := NewAdapter(NewSessionPool(1, nil))
	text := "one\n\ntwo\n\nthree"

	parts := a.Split(text, true)
	assert.Equal(t, []string{"one", "two", "three"}, parts)
}

func TestSessionPool_DroppedCountStartsZero(t *testing.T) {
	p := NewSessionPool(1, nil)
	assert.Zero(t, p.DroppedCount())
}
