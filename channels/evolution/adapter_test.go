package evolution

import (
	"context"
	"strings"
	"testing"

	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ParseInbound_TextMessage(t *testing.T) {
	a := New()
	body := `{
		"event": "messages.upsert",
		"data": {
			"key": {"id": "ABC123", "remoteJid": "5511999990000@s.whatsapp.net", "fromMe": false},
			"pushName": "Alice",
			"message": {"conversation": "hello there"},
			"messageTimestamp": 1700000000
		}
	}`

	msg, err := a.ParseInbound(context.Background(), instance.InstanceConfig{}, []byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.False(t, msg.IsDrop())
	assert.Equal(t, "ABC123", msg.ID)
	assert.Equal(t, "5511999990000", msg.SenderID)
	assert.Equal(t, "Alice", msg.SenderDisplayName)
	assert.Equal(t, trace.MessageText, msg.MessageType)
	assert.Equal(t, "hello there", msg.Text)
}

func TestAdapter_ParseInbound_FromMeIsDropped(t *testing.T) {
	a := New()
	body := `{
		"event": "messages.upsert",
		"data": {
			"key": {"id": "ABC123", "remoteJid": "5511999990000@s.whatsapp.net", "fromMe": true},
			"message": {"conversation": "echo"}
		}
	}`

	msg, err := a.ParseInbound(context.Background(), instance.InstanceConfig{}, []byte(body))
	require.NoError(t, err)
	assert.True(t, msg.IsDrop())
}

func TestAdapter_ParseInbound_OtherEventIsDropped(t *testing.T) {
	a := New()
	body := `{"event": "connection.update", "data": {}}`

	msg, err := a.ParseInbound(context.Background(), instance.InstanceConfig{}, []byte(body))
	require.NoError(t, err)
	assert.True(t, msg.IsDrop())
}

func TestAdapter_ParseInbound_ImageMessage(t *testing.T) {
	a := New()
	body := `{
		"event": "messages.upsert",
		"data": {
			"key": {"id": "IMG1", "remoteJid": "5511888880000@s.whatsapp.net", "fromMe": false},
			"message": {"imageMessage": {"caption": "look", "url": "https://example.com/x.jpg", "mimetype": "image/jpeg"}}
		}
	}`

	msg, err := a.ParseInbound(context.Background(), instance.InstanceConfig{}, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, trace.MessageImage, msg.MessageType)
	assert.Equal(t, "https://example.com/x.jpg", msg.MediaURL)
	assert.Equal(t, "look", msg.Caption)
}

func TestAdapter_Split_AutoSplitOnParagraphs(t *testing.T) {
	a := New()
	text := "first paragraph\n\nsecond paragraph"

	parts := a.Split(text, true)
	assert.Equal(t, []string{"first paragraph", "second paragraph"}, parts)
}

func TestAdapter_Split_NoAutoSplitKeepsWhole(t *testing.T) {
	a := New()
	text := "first paragraph\n\nsecond paragraph"

	parts := a.Split(text, false)
	assert.Equal(t, []string{text}, parts)
}

func TestAdapter_Split_HardSplitsOversizedChunk(t *testing.T) {
	a := New()
	text := strings.Repeat("a", hardSplitLimit+100)

	parts := a.Split(text, false)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], hardSplitLimit)
	assert.Len(t, parts[1], 100)
}

func TestAdapter_Credentials(t *testing.T) {
	a := New()
	inst := instance.InstanceConfig{EvolutionURL: "https://broker", EvolutionKey: "secret", WhatsappInstance: "tenant1"}

	creds := a.Credentials(inst)
	assert.Equal(t, omni.BrokerCreds{BaseURL: "https://broker", Key: "secret", Extra: "tenant1"}, creds)
}
