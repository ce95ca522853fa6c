// Package router orchestrates the inbound message pipeline: it resolves
// the owning instance, opens a trace, applies rate limiting and access
// control, resolves the sender's cross-channel identity, calls the
// tenant's agent, and dispatches the reply back out the same channel.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/namastexlabs/automagik-omni-go/core/config"
	"github.com/namastexlabs/automagik-omni-go/domains/access"
	"github.com/namastexlabs/automagik-omni-go/domains/agent"
	"github.com/namastexlabs/automagik-omni-go/domains/identity"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"github.com/namastexlabs/automagik-omni-go/pkg/ratelimit"
	"github.com/sirupsen/logrus"
)

// WebhookResult is the outcome reported back to a webhook caller: whether
// the message was accepted into the pipeline, dropped before a trace was
// ever opened, or blocked by rate limiting/access control.
type WebhookResult struct {
	Status string
	Reason string
}

const (
	StatusReceived = "received"
	StatusBlocked  = "blocked"
	StatusDropped  = "dropped"
)

// Router is the single place every inbound message flows through,
// regardless of originating channel.
type Router struct {
	instances instance.Registry
	identities identity.Service
	access     access.Control
	traces     trace.Store
	agentClient agent.Client
	limiter    *ratelimit.Limiter
	adapters   map[instance.ChannelType]omni.Adapter
	cfg        *config.Config

	orderMu sync.Mutex
	order   map[string]*sync.Mutex
}

func New(
	instances instance.Registry,
	identities identity.Service,
	accessControl access.Control,
	traces trace.Store,
	agentClient agent.Client,
	limiter *ratelimit.Limiter,
	adapters map[instance.ChannelType]omni.Adapter,
	cfg *config.Config,
) *Router {
	return &Router{
		instances:   instances,
		identities:  identities,
		access:      accessControl,
		traces:      traces,
		agentClient: agentClient,
		limiter:     limiter,
		adapters:    adapters,
		cfg:         cfg,
		order:       make(map[string]*sync.Mutex),
	}
}

// HandleWebhook is the entry point for broker-pushed webhook bytes
// (WhatsApp/Evolution). It parses rawEvent itself via the channel adapter.
func (r *Router) HandleWebhook(ctx context.Context, instanceName string, rawEvent []byte) (WebhookResult, error) {
	inst, err := r.instances.Get(ctx, instanceName)
	if err != nil {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindUnknownInstance)},
			pkgError.NewPipelineError(pkgError.KindUnknownInstance, err)
	}
	if !inst.IsActive {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindUnknownInstance)},
			pkgError.NewPipelineError(pkgError.KindUnknownInstance, fmt.Errorf("instance %s is inactive", instanceName))
	}

	adapter, ok := r.adapters[inst.ChannelType]
	if !ok {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindInternal)},
			pkgError.NewPipelineError(pkgError.KindInternal, fmt.Errorf("no adapter for channel type %s", inst.ChannelType))
	}

	msg, err := adapter.ParseInbound(ctx, inst, rawEvent)
	if err != nil {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindParseFailed)},
			pkgError.NewPipelineError(pkgError.KindParseFailed, err)
	}
	if msg == nil || msg.IsDrop() {
		return WebhookResult{Status: StatusDropped}, nil
	}

	return r.process(ctx, inst, adapter, msg)
}

// HandleParsed is the entry point for channels that parse their own wire
// events ahead of the router (Discord's gateway handler).
func (r *Router) HandleParsed(ctx context.Context, instanceName string, msg *omni.Message) (WebhookResult, error) {
	if msg == nil || msg.IsDrop() {
		return WebhookResult{Status: StatusDropped}, nil
	}
	inst, err := r.instances.Get(ctx, instanceName)
	if err != nil {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindUnknownInstance)},
			pkgError.NewPipelineError(pkgError.KindUnknownInstance, err)
	}
	if !inst.IsActive {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindUnknownInstance)},
			pkgError.NewPipelineError(pkgError.KindUnknownInstance, fmt.Errorf("instance %s is inactive", instanceName))
	}
	adapter, ok := r.adapters[inst.ChannelType]
	if !ok {
		return WebhookResult{Status: StatusDropped, Reason: string(pkgError.KindInternal)},
			pkgError.NewPipelineError(pkgError.KindInternal, fmt.Errorf("no adapter for channel type %s", inst.ChannelType))
	}
	return r.process(ctx, inst, adapter, msg)
}

func (r *Router) process(ctx context.Context, inst instance.InstanceConfig, adapter omni.Adapter, msg *omni.Message) (WebhookResult, error) {
	unlock := r.lockOrder(inst.Name, msg.ChatID)
	defer unlock()

	timeoutMs := inst.AgentTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = r.cfg.Agent.TimeoutMs
	}
	deadline := time.Duration(timeoutMs)*time.Millisecond + 5*time.Second
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	traceID, err := r.traces.CreateInbound(ctx, inst.Name, string(inst.ChannelType), msg.SenderID, msg.MessageType, msg)
	if err != nil {
		logrus.WithError(err).Warn("trace_store_failed on inbound create")
	}

	rateKey := string(inst.ChannelType) + ":" + msg.SenderID
	if ok, backoff := r.limiter.Allowed(rateKey); !ok {
		r.closeTrace(ctx, traceID, trace.StatusFailed, string(pkgError.KindRateLimited))
		return WebhookResult{Status: StatusBlocked, Reason: string(pkgError.KindRateLimited)},
			pkgError.NewPipelineError(pkgError.KindRateLimited, fmt.Errorf("retry after %.1fs", backoff))
	}

	allowed, reason, err := r.access.CheckAccess(ctx, inst.Name, msg.SenderID)
	if err != nil {
		logrus.WithError(err).Warn("access check failed, defaulting to deny")
		allowed = false
		reason = access.ReasonDenied
	}
	if !allowed {
		_ = r.traces.LogStage(ctx, traceID, trace.StageAccessBlocked, map[string]string{"reason": string(reason)}, nil)
		kind := pkgError.KindBlockedDenied
		if reason == access.ReasonNotInAllowlist {
			kind = pkgError.KindBlockedNotAllowlist
		}
		r.closeTrace(ctx, traceID, trace.StatusBlocked, string(kind))
		return WebhookResult{Status: StatusBlocked, Reason: string(kind)},
			pkgError.NewPipelineError(kind, fmt.Errorf("sender %s blocked: %s", msg.SenderID, reason))
	}

	userID := r.resolveIdentity(ctx, inst, msg)

	req := agent.Request{
		Message:   msg.Text,
		UserID:    userID,
		SessionID: inst.Name + ":" + msg.ChatID,
		Agent:     inst.DefaultAgent,
	}
	if msg.MediaURL != "" {
		req.Attachments = []agent.Attachment{{URL: msg.MediaURL, MimeType: msg.MediaMimeType}}
	}
	_ = r.traces.LogStage(ctx, traceID, trace.StageAgentRequest, req, nil)

	resp, err := r.agentClient.Send(ctx, inst.AgentAPIURL, inst.AgentAPIKey, req, timeoutMs)
	if err != nil {
		kind := pkgError.KindAgentNetwork
		var pe *pkgError.PipelineError
		if asPipelineErr(err, &pe) {
			kind = pe.Kind
		}
		r.closeTrace(ctx, traceID, trace.StatusFailed, string(kind))
		return WebhookResult{Status: StatusReceived}, err
	}
	_ = r.traces.LogStage(ctx, traceID, trace.StageAgentResponse, resp, nil)

	if resp.Error != nil {
		r.closeTrace(ctx, traceID, trace.StatusFailed, resp.Error.Kind)
		return WebhookResult{Status: StatusReceived}, pkgError.NewPipelineError(pkgError.Kind(resp.Error.Kind), fmt.Errorf("%s", resp.Error.Detail))
	}

	if resp.AgentUserID != "" && userID != "" {
		if err := r.identities.LinkExternal(ctx, userID, providerFor(inst.ChannelType), msg.SenderID, &inst.Name); err != nil {
			logrus.WithError(err).Warn("identity link failed")
		}
	}

	if resp.NoReply() {
		r.closeTrace(ctx, traceID, trace.StatusCompleted, "")
		return WebhookResult{Status: StatusReceived}, nil
	}

	parts := resp.MessageParts
	if len(parts) == 0 {
		parts = adapter.Split(resp.Message, inst.EnableAutoSplit)
	}

	stage := trace.StageEvolutionSend
	if inst.ChannelType == instance.ChannelDiscord {
		stage = trace.StageDiscordSend
	}

	for _, part := range parts {
		result, err := adapter.SendOutbound(ctx, inst, msg.ChatID, omni.OutboundMessage{Text: part})
		statusCode := result.StatusCode
		_ = r.traces.LogStage(ctx, traceID, stage, map[string]any{"text": part, "message_id": result.MessageID}, &statusCode)
		if err != nil {
			r.closeTrace(ctx, traceID, trace.StatusFailed, string(pkgError.KindSendFailed))
			return WebhookResult{Status: StatusReceived}, pkgError.NewPipelineError(pkgError.KindSendFailed, err)
		}
	}

	r.closeTrace(ctx, traceID, trace.StatusCompleted, "")
	return WebhookResult{Status: StatusReceived}, nil
}

// SendProactive dispatches an agent- or operator-initiated message that did
// not originate from an inbound webhook (the Admin API's send-* endpoints).
func (r *Router) SendProactive(ctx context.Context, instanceName, recipient string, msg omni.OutboundMessage) (omni.SendResult, error) {
	inst, err := r.instances.Get(ctx, instanceName)
	if err != nil {
		return omni.SendResult{}, pkgError.NewPipelineError(pkgError.KindUnknownInstance, err)
	}
	adapter, ok := r.adapters[inst.ChannelType]
	if !ok {
		return omni.SendResult{}, pkgError.NewPipelineError(pkgError.KindInternal, fmt.Errorf("no adapter for channel type %s", inst.ChannelType))
	}

	msgType := trace.MessageText
	if msg.MediaURL != "" {
		msgType = trace.MessageDocument
	}
	traceID, _ := r.traces.RecordOutbound(ctx, inst.Name, string(inst.ChannelType), recipient, msgType, msg, nil)

	result, err := adapter.SendOutbound(ctx, inst, recipient, msg)
	if err != nil {
		if traceID != "" {
			_ = r.traces.UpdateStatus(ctx, traceID, trace.StatusFailed, string(pkgError.KindSendFailed))
		}
		return result, pkgError.NewPipelineError(pkgError.KindSendFailed, err)
	}
	return result, nil
}

func (r *Router) resolveIdentity(ctx context.Context, inst instance.InstanceConfig, msg *omni.Message) string {
	provider := providerFor(inst.ChannelType)

	if provider == identity.ProviderWhatsApp {
		user, err := r.identities.GetOrCreateByPhone(ctx, msg.SenderID, msg.SenderDisplayName)
		if err != nil {
			logrus.WithError(err).Warn("identity resolve failed")
			return ""
		}
		if err := r.identities.LinkExternal(ctx, user.ID, provider, msg.SenderID, &inst.Name); err != nil {
			logrus.WithError(err).Warn("identity link failed")
		}
		return user.ID
	}

	// Discord has no creating lookup: an unlinked sender still forwards to
	// the agent with an empty user_id rather than being blocked.
	user, err := r.identities.ResolveExternal(ctx, provider, msg.SenderID, &inst.Name)
	if err != nil {
		logrus.WithError(err).Warn("identity resolve failed")
		return ""
	}
	if user == nil {
		return ""
	}
	return user.ID
}

func providerFor(ct instance.ChannelType) identity.Provider {
	if ct == instance.ChannelDiscord {
		return identity.ProviderDiscord
	}
	return identity.ProviderWhatsApp
}

func (r *Router) closeTrace(ctx context.Context, traceID string, status trace.Status, errorKind string) {
	if traceID == "" {
		return
	}
	if err := r.traces.UpdateStatus(ctx, traceID, status, errorKind); err != nil {
		logrus.WithError(err).Warn("trace close failed")
	}
}

func (r *Router) lockOrder(instanceName, chatID string) func() {
	key := instanceName + "|" + chatID

	r.orderMu.Lock()
	mu, ok := r.order[key]
	if !ok {
		mu = &sync.Mutex{}
		r.order[key] = mu
	}
	r.orderMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func asPipelineErr(err error, target **pkgError.PipelineError) bool {
	pe, ok := err.(*pkgError.PipelineError)
	if ok {
		*target = pe
	}
	return ok
}
