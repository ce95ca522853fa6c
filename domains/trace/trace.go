// Package trace models the message trace / payload store: every inbound
// and outbound message gets a trace row and a series of per-stage payload
// snapshots for later inspection.
package trace

import (
	"context"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
	MessageSticker  MessageType = "sticker"
	MessageContact  MessageType = "contact"
	MessageLocation MessageType = "location"
	MessageReaction MessageType = "reaction"
	MessageSystem   MessageType = "system"
	MessageUnknown  MessageType = "unknown"
)

type Status string

const (
	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBlocked    Status = "blocked"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBlocked:
		return true
	default:
		return false
	}
}

type Stage string

const (
	StageWebhookReceived Stage = "webhook_received"
	StageAgentRequest    Stage = "agent_request"
	StageAgentResponse   Stage = "agent_response"
	StageEvolutionSend   Stage = "evolution_send"
	StageDiscordSend     Stage = "discord_send"
	StageAccessBlocked   Stage = "access_blocked"
	StageError           Stage = "error"
)

type MessageTrace struct {
	TraceID        string      `json:"trace_id"`
	InstanceName   string      `json:"instance_name"`
	ChannelType    string      `json:"channel_type"`
	Direction      Direction   `json:"direction"`
	SenderID       string      `json:"sender_id"`
	SenderPhone    string      `json:"sender_phone,omitempty"`
	MessageType    MessageType `json:"message_type"`
	TraceStatus    Status      `json:"trace_status"`
	ReceivedAt     time.Time   `json:"received_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ErrorKind      string      `json:"error_kind,omitempty"`
	AgentSessionID string      `json:"agent_session_id,omitempty"`
	AgentUserID    string      `json:"agent_user_id,omitempty"`
}

type Payload struct {
	ID                string    `json:"id"`
	TraceID           string    `json:"trace_id"`
	Stage             Stage     `json:"stage"`
	PayloadType       string    `json:"payload_type"`
	PayloadBytes      []byte    `json:"-"`
	SizeOriginal      int       `json:"size_original"`
	SizeCompressed    int       `json:"size_compressed"`
	CompressionRatio  float64   `json:"compression_ratio"`
	ContainsMedia     bool      `json:"contains_media"`
	ContainsBase64    bool      `json:"contains_base64"`
	StatusCode        *int      `json:"status_code,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// ErrTraceClosed is returned by UpdateStatus when the trace is already
// terminal: a trace never transitions out of a terminal status. LogStage
// does not check the trace status and appends to terminal traces as well.
type ErrTraceClosed struct{ TraceID string }

func (e *ErrTraceClosed) Error() string { return "trace " + e.TraceID + " is closed" }

// ErrTraceStore wraps a non-fatal trace-store failure (kind
// trace_store_failed): callers may swallow it and keep the pipeline moving.
type ErrTraceStore struct{ Cause error }

func (e *ErrTraceStore) Error() string { return "trace store: " + e.Cause.Error() }
func (e *ErrTraceStore) Unwrap() error { return e.Cause }

type ListFilter struct {
	InstanceName string
	Phone        string
	TraceStatus  Status
	MessageType  MessageType
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

type Analytics struct {
	TotalTraces      int            `json:"total_traces"`
	ByStatus         map[string]int `json:"by_status"`
	ByMessageType    map[string]int `json:"by_message_type"`
	ByInstance       map[string]int `json:"by_instance"`
	TotalPayloadSize string         `json:"total_payload_size"` // humanized
}

// Store is the trace store contract. Every operation accepts a caller
// provided context; no transaction handle is passed in. The GORM store runs
// UpdateStatus and CleanupOlderThan each inside a transaction of its own.
type Store interface {
	CreateInbound(ctx context.Context, instanceName, channelType, senderID string, msgType MessageType, rawEnvelope any) (traceID string, err error)
	LogStage(ctx context.Context, traceID string, stage Stage, payload any, statusCode *int) error
	UpdateStatus(ctx context.Context, traceID string, status Status, errorKind string) error
	RecordOutbound(ctx context.Context, instanceName, channelType, recipientID string, msgType MessageType, envelope any, statusCode *int) (traceID string, err error)
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]MessageTrace, int, error)
	Payloads(ctx context.Context, traceID string) ([]Payload, error)
	Analytics(ctx context.Context, filter ListFilter) (Analytics, error)
}
