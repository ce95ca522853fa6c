// Package instance models the InstanceConfig tenant registry: one row per
// configured channel instance (a WhatsApp number or a Discord bot).
package instance

import (
	"context"
	"time"
)

type ChannelType string

const (
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelDiscord  ChannelType = "discord"
)

// InstanceConfig binds one outbound channel's credentials to one upstream
// agent and an identity namespace. Name is immutable after creation.
type InstanceConfig struct {
	Name        string      `json:"name"`
	ChannelType ChannelType `json:"channel_type"`

	// WhatsApp (Evolution broker) credentials.
	EvolutionURL      string `json:"evolution_url,omitempty"`
	EvolutionKey      string `json:"-"`
	WhatsappInstance  string `json:"whatsapp_instance,omitempty"`

	// Discord credentials.
	DiscordBotToken string `json:"-"`
	DiscordGuildID  string `json:"discord_guild_id,omitempty"`

	// Agent binding.
	AgentAPIURL    string `json:"agent_api_url,omitempty"`
	AgentAPIKey    string `json:"-"`
	DefaultAgent   string `json:"default_agent,omitempty"`
	AgentTimeoutMs int    `json:"agent_timeout_ms,omitempty"`

	IsDefault       bool `json:"is_default"`
	IsActive        bool `json:"is_active"`
	EnableAutoSplit bool `json:"enable_auto_split"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Masked returns a copy safe to hand back over the admin boundary: secret
// fields are write-only, so reads return masked placeholders instead of the
// stored value.
func (i InstanceConfig) Masked() InstanceConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	i.EvolutionKey = mask(i.EvolutionKey)
	i.DiscordBotToken = mask(i.DiscordBotToken)
	i.AgentAPIKey = mask(i.AgentAPIKey)
	return i
}

type CreateRequest struct {
	Name        string      `json:"name"`
	ChannelType ChannelType `json:"channel_type"`

	EvolutionURL     string `json:"evolution_url,omitempty"`
	EvolutionKey     string `json:"evolution_key,omitempty"`
	WhatsappInstance string `json:"whatsapp_instance,omitempty"`

	DiscordBotToken string `json:"discord_bot_token,omitempty"`
	DiscordGuildID  string `json:"discord_guild_id,omitempty"`

	AgentAPIURL    string `json:"agent_api_url"`
	AgentAPIKey    string `json:"agent_api_key,omitempty"`
	DefaultAgent   string `json:"default_agent,omitempty"`
	AgentTimeoutMs int    `json:"agent_timeout_ms,omitempty"`

	IsDefault       bool `json:"is_default,omitempty"`
	EnableAutoSplit bool `json:"enable_auto_split,omitempty"`
}

// Patch carries only the fields an Update call wants to change; a nil
// pointer field means "leave as-is".
type Patch struct {
	EvolutionURL     *string
	EvolutionKey     *string
	WhatsappInstance *string
	DiscordBotToken  *string
	DiscordGuildID   *string
	AgentAPIURL      *string
	AgentAPIKey      *string
	DefaultAgent     *string
	AgentTimeoutMs   *int
	IsDefault        *bool
	IsActive         *bool
	EnableAutoSplit  *bool
}

type ListFilter struct {
	ChannelType ChannelType
	ActiveOnly  bool
}

type HealthState string

const (
	HealthOnline  HealthState = "online"
	HealthOffline HealthState = "offline"
	HealthError   HealthState = "error"
)

type HealthStatus struct {
	State       HealthState `json:"state"`
	LastUpdated time.Time   `json:"last_updated"`
	Error       string      `json:"error,omitempty"`
}

// DiscoveryReport summarizes a Discover() reconciliation pass against an
// external broker's instance list.
type DiscoveryReport struct {
	Created     []string `json:"created"`
	Updated     []string `json:"updated"`
	Deactivated []string `json:"deactivated"`
}

// Registry is the instance registry contract.
type Registry interface {
	Create(ctx context.Context, req CreateRequest) (InstanceConfig, error)
	Get(ctx context.Context, name string) (InstanceConfig, error)
	Update(ctx context.Context, name string, patch Patch) (InstanceConfig, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, filter ListFilter) ([]InstanceConfig, error)
	SetDefault(ctx context.Context, name string) error
	Discover(ctx context.Context) (DiscoveryReport, error)
	HealthCheck(ctx context.Context, name string) (HealthStatus, error)
}
