// Package agent defines the upstream AI agent HTTP contract: the request
// and response shapes exchanged with the tenant's configured agent endpoint.
package agent

import "context"

type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

type Request struct {
	Message     string            `json:"message"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	SessionID   string            `json:"session_id"`
	Agent       string            `json:"agent"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ResponseError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type Response struct {
	Message      string          `json:"message"`
	MessageParts []string        `json:"message_parts,omitempty"`
	AgentUserID  string          `json:"agent_user_id,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Error        *ResponseError  `json:"error,omitempty"`
}

// NoReply reports the "no reply" case: a missing/empty Message with no
// MessageParts and no Error completes the trace without an outbound
// dispatch.
func (r Response) NoReply() bool {
	return r.Message == "" && len(r.MessageParts) == 0 && r.Error == nil
}

// Client is the agent client contract.
type Client interface {
	Send(ctx context.Context, url, apiKey string, req Request, timeoutMs int) (Response, error)
}
