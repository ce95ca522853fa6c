// Package access implements the firewall-style allow/deny evaluator that
// gates inbound messages by sender phone number before they reach an agent.
package access

import (
	"context"
	"time"
)

type RuleType string

const (
	RuleAllow RuleType = "allow"
	RuleDeny  RuleType = "deny"
)

// Rule is an AccessRule row. InstanceName nil means a global rule.
type Rule struct {
	ID           string    `json:"id"`
	RuleType     RuleType  `json:"rule_type"`
	PhoneNumber  string    `json:"phone_number"`
	InstanceName *string   `json:"instance_name,omitempty"`
	Label        string    `json:"label,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type AddRuleRequest struct {
	RuleType     RuleType `json:"rule_type"`
	PhoneNumber  string   `json:"phone_number"`
	InstanceName *string  `json:"instance_name,omitempty"`
	Label        string   `json:"label,omitempty"`
}

type ListFilter struct {
	RuleType     RuleType // empty = both
	InstanceName *string  // nil = all (including global)
}

// Reason is the human-readable deny reason recorded on a blocked trace.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonDenied         Reason = "denied"
	ReasonNotInAllowlist Reason = "not_in_allowlist"
)

// Control is the access control contract.
type Control interface {
	CheckAccess(ctx context.Context, instanceName, identifier string) (allowed bool, reason Reason, err error)
	AddRule(ctx context.Context, req AddRuleRequest) (Rule, error)
	RemoveRule(ctx context.Context, id string) error
	ListRules(ctx context.Context, filter ListFilter) ([]Rule, error)
	Reload(ctx context.Context) error
}
