// Package identity models the cross-channel identity linker: it maps
// provider-specific sender identifiers onto a single internal user record.
package identity

import (
	"context"
	"time"
)

type Provider string

const (
	ProviderWhatsApp Provider = "whatsapp"
	ProviderDiscord  Provider = "discord"
)

type User struct {
	ID          string    `json:"id"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ExternalID struct {
	UserID       string    `json:"user_id"`
	Provider     Provider  `json:"provider"`
	ExternalID   string    `json:"external_id"`
	InstanceName *string   `json:"instance_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UniqueViolation is returned by LinkExternal when the
// (provider, external_id, instance_name) tuple already resolves to a
// different user.
type UniqueViolation struct {
	Provider     Provider
	ExternalID   string
	InstanceName *string
}

func (e *UniqueViolation) Error() string {
	return "identity: external id already linked to a different user"
}

// Service is the identity service contract.
type Service interface {
	GetOrCreateByPhone(ctx context.Context, phone string, displayName string) (User, error)
	ResolveExternal(ctx context.Context, provider Provider, externalID string, instanceName *string) (*User, error)
	LinkExternal(ctx context.Context, userID string, provider Provider, externalID string, instanceName *string) error
}
