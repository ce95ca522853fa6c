// Package evolution adapts the omni.Adapter capability set onto the
// Evolution API HTTP broker that fronts a WhatsApp connection.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
)

const (
	httpTimeout    = 30 * time.Second
	hardSplitLimit = 65536 // Evolution's own text body ceiling
)

var httpClient = &http.Client{Timeout: httpTimeout}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ omni.Adapter = (*Adapter)(nil)

// webhookEnvelope is the subset of an Evolution webhook body this adapter
// cares about; unknown fields are ignored when decoding.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			ID        string `json:"id"`
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation string `json:"conversation"`
			ImageMessage *struct {
				Caption  string `json:"caption"`
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
			} `json:"imageMessage"`
			VideoMessage *struct {
				Caption  string `json:"caption"`
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
			} `json:"videoMessage"`
			AudioMessage *struct {
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
			} `json:"audioMessage"`
			DocumentMessage *struct {
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
				Caption  string `json:"caption"`
			} `json:"documentMessage"`
			StickerMessage *struct {
				URL      string `json:"url"`
				Mimetype string `json:"mimetype"`
			} `json:"stickerMessage"`
			ExtendedTextMessage *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

func (a *Adapter) ParseInbound(ctx context.Context, inst instance.InstanceConfig, rawEvent []byte) (*omni.Message, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(rawEvent, &env); err != nil {
		return nil, fmt.Errorf("parse evolution webhook: %w", err)
	}

	if env.Event != "messages.upsert" || env.Data.Key.FromMe {
		return omni.Drop, nil
	}

	msg := &omni.Message{
		ID:                env.Data.Key.ID,
		ChatID:            env.Data.Key.RemoteJID,
		SenderID:          strings.TrimSuffix(env.Data.Key.RemoteJID, "@s.whatsapp.net"),
		SenderDisplayName: env.Data.PushName,
		Timestamp:         time.Unix(env.Data.MessageTimestamp, 0).UTC(),
	}

	switch {
	case env.Data.Message.Conversation != "":
		msg.MessageType = trace.MessageText
		msg.Text = env.Data.Message.Conversation
	case env.Data.Message.ExtendedTextMessage != nil:
		msg.MessageType = trace.MessageText
		msg.Text = env.Data.Message.ExtendedTextMessage.Text
	case env.Data.Message.ImageMessage != nil:
		msg.MessageType = trace.MessageImage
		msg.MediaURL = env.Data.Message.ImageMessage.URL
		msg.MediaMimeType = env.Data.Message.ImageMessage.Mimetype
		msg.Caption = env.Data.Message.ImageMessage.Caption
	case env.Data.Message.VideoMessage != nil:
		msg.MessageType = trace.MessageVideo
		msg.MediaURL = env.Data.Message.VideoMessage.URL
		msg.MediaMimeType = env.Data.Message.VideoMessage.Mimetype
		msg.Caption = env.Data.Message.VideoMessage.Caption
	case env.Data.Message.AudioMessage != nil:
		msg.MessageType = trace.MessageAudio
		msg.MediaURL = env.Data.Message.AudioMessage.URL
		msg.MediaMimeType = env.Data.Message.AudioMessage.Mimetype
	case env.Data.Message.DocumentMessage != nil:
		msg.MessageType = trace.MessageDocument
		msg.MediaURL = env.Data.Message.DocumentMessage.URL
		msg.MediaMimeType = env.Data.Message.DocumentMessage.Mimetype
		msg.Caption = env.Data.Message.DocumentMessage.Caption
	case env.Data.Message.StickerMessage != nil:
		msg.MessageType = trace.MessageSticker
		msg.MediaURL = env.Data.Message.StickerMessage.URL
		msg.MediaMimeType = env.Data.Message.StickerMessage.Mimetype
	default:
		return omni.Drop, nil
	}

	return msg, nil
}

func (a *Adapter) SendOutbound(ctx context.Context, inst instance.InstanceConfig, recipient string, msg omni.OutboundMessage) (omni.SendResult, error) {
	var endpoint string
	var body map[string]any

	switch {
	case msg.MediaURL != "":
		endpoint = "/message/sendMedia/" + inst.WhatsappInstance
		body = map[string]any{
			"number":  recipient,
			"media":   msg.MediaURL,
			"caption": msg.Caption,
		}
	default:
		endpoint = "/message/sendText/" + inst.WhatsappInstance
		body = map[string]any{
			"number": recipient,
			"text":   msg.Text,
		}
	}
	if msg.QuotedMessageID != "" {
		body["quoted"] = map[string]string{"id": msg.QuotedMessageID}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return omni.SendResult{}, err
	}

	url := strings.TrimRight(inst.EvolutionURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return omni.SendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", inst.EvolutionKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return omni.SendResult{}, fmt.Errorf("evolution send: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return omni.SendResult{StatusCode: resp.StatusCode}, fmt.Errorf("evolution send failed: %d %s", resp.StatusCode, respBody)
	}

	var parsed struct {
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	return omni.SendResult{MessageID: parsed.Key.ID, StatusCode: resp.StatusCode}, nil
}

func (a *Adapter) Credentials(inst instance.InstanceConfig) omni.BrokerCreds {
	return omni.BrokerCreds{
		BaseURL: inst.EvolutionURL,
		Key:     inst.EvolutionKey,
		Extra:   inst.WhatsappInstance,
	}
}

// Split breaks text on paragraph boundaries when autoSplit is enabled, then
// hard-splits any remaining chunk over the broker's own body ceiling.
func (a *Adapter) Split(text string, autoSplit bool) []string {
	if !autoSplit {
		return hardSplit(text)
	}

	paragraphs := strings.Split(text, "\n\n")
	var out []string
	for _, p := range paragraphs {
		if p == "" {
			continue
		}
		out = append(out, hardSplit(p)...)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func hardSplit(text string) []string {
	if len(text) <= hardSplitLimit {
		return []string{text}
	}
	var chunks []string
	for len(text) > hardSplitLimit {
		chunks = append(chunks, text[:hardSplitLimit])
		text = text[hardSplitLimit:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
