package error

import "strconv"

// Kind is one of the named pipeline error kinds. It is persisted on
// MessageTrace.error_kind and is distinct from the HTTP-facing GenericError
// hierarchy above: a single Kind (e.g. KindAgentTimeout) always surfaces to
// the webhook caller as HTTP 200 per the propagation policy, never as a
// GenericError status code.
type Kind string

const (
	KindUnknownInstance      Kind = "unknown_instance"
	KindParseFailed          Kind = "parse_failed"
	KindRateLimited          Kind = "rate_limited"
	KindBlockedDenied        Kind = "denied"
	KindBlockedNotAllowlist  Kind = "not_in_allowlist"
	KindIdentityLookupFailed Kind = "identity_lookup_failed"
	KindAgentTimeout         Kind = "agent_timeout"
	KindAgentNetwork         Kind = "agent_network"
	KindSendFailed           Kind = "send_failed"
	KindTraceStoreFailed     Kind = "trace_store_failed"
	KindCancelled            Kind = "cancelled"
	KindInternal             Kind = "internal"
)

// AgentHTTPKind builds the agent_http_<status> kind for a terminal 4xx/5xx
// response from the upstream agent.
func AgentHTTPKind(status int) Kind {
	return Kind("agent_http_" + strconv.Itoa(status))
}

// PipelineError wraps a Kind with the underlying cause, satisfying the
// standard error interface so routers can use errors.As/errors.Is.
type PipelineError struct {
	Kind  Kind
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func NewPipelineError(kind Kind, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Cause: cause}
}
