package repository

import (
	"database/sql"
	"time"
)

// instanceModel is the GORM row backing domains/instance.InstanceConfig.
type instanceModel struct {
	Name             string `gorm:"primaryKey;column:name"`
	ChannelType      string `gorm:"column:channel_type;not null;index"`
	EvolutionURL     sql.NullString
	EvolutionKey     sql.NullString
	WhatsappInstance sql.NullString
	DiscordBotToken  sql.NullString
	DiscordGuildID   sql.NullString
	AgentAPIURL      sql.NullString
	AgentAPIKey      sql.NullString
	DefaultAgent     sql.NullString
	AgentTimeoutMs   int `gorm:"default:0"`
	IsDefault        bool `gorm:"default:false"`
	IsActive         bool `gorm:"default:true;index"`
	EnableAutoSplit  bool `gorm:"default:true"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (instanceModel) TableName() string { return "instances" }

// userModel is the cross-channel person record, anchored on WhatsApp phone
// number when known.
type userModel struct {
	ID          string `gorm:"primaryKey"`
	PhoneNumber sql.NullString `gorm:"uniqueIndex:idx_users_phone"`
	DisplayName sql.NullString
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

// userExternalIDModel links a (provider, external_id, instance_name) tuple
// to a single userModel.
type userExternalIDModel struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"column:user_id;not null;index"`
	Provider     string `gorm:"not null;uniqueIndex:idx_provider_external_instance"`
	ExternalID   string `gorm:"column:external_id;not null;uniqueIndex:idx_provider_external_instance"`
	InstanceName sql.NullString `gorm:"column:instance_name;uniqueIndex:idx_provider_external_instance"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userExternalIDModel) TableName() string { return "user_external_ids" }

// accessRuleModel is an allow/deny entry, global when InstanceName is null.
type accessRuleModel struct {
	ID           string `gorm:"primaryKey"`
	RuleType     string `gorm:"column:rule_type;not null"`
	PhoneNumber  string `gorm:"column:phone_number;not null;index"`
	InstanceName sql.NullString `gorm:"column:instance_name;index"`
	Label        sql.NullString
	IsActive     bool `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (accessRuleModel) TableName() string { return "access_rules" }

// messageTraceModel is one row per inbound/outbound message passing through
// the pipeline.
type messageTraceModel struct {
	TraceID        string `gorm:"primaryKey;column:trace_id"`
	InstanceName   string `gorm:"column:instance_name;not null;index"`
	ChannelType    string `gorm:"column:channel_type;not null"`
	Direction      string `gorm:"not null"`
	SenderID       string `gorm:"column:sender_id;not null;index"`
	SenderPhone    sql.NullString `gorm:"column:sender_phone"`
	MessageType    string `gorm:"column:message_type;not null"`
	TraceStatus    string `gorm:"column:trace_status;not null;index"`
	ReceivedAt     time.Time `gorm:"not null;index"`
	CompletedAt    *time.Time
	ErrorKind      sql.NullString `gorm:"column:error_kind"`
	AgentSessionID sql.NullString `gorm:"column:agent_session_id"`
	AgentUserID    sql.NullString `gorm:"column:agent_user_id"`
}

func (messageTraceModel) TableName() string { return "message_traces" }

// tracePayloadModel is a per-stage snapshot attached to a messageTraceModel.
type tracePayloadModel struct {
	ID               string `gorm:"primaryKey"`
	TraceID          string `gorm:"column:trace_id;not null;index"`
	Stage            string `gorm:"not null"`
	PayloadType      string `gorm:"column:payload_type;not null"`
	PayloadBytes     []byte `gorm:"column:payload_bytes"`
	Compressed       bool   `gorm:"default:false"`
	SizeOriginal     int    `gorm:"column:size_original"`
	SizeCompressed   int    `gorm:"column:size_compressed"`
	CompressionRatio float64 `gorm:"column:compression_ratio"`
	ContainsMedia    bool   `gorm:"column:contains_media"`
	ContainsBase64   bool   `gorm:"column:contains_base64"`
	StatusCode       *int   `gorm:"column:status_code"`
	Timestamp        time.Time `gorm:"not null;index"`
}

func (tracePayloadModel) TableName() string { return "trace_payloads" }

// schemaMigrationModel is the applied-migration ledger.
type schemaMigrationModel struct {
	RevisionID string `gorm:"primaryKey;column:revision_id"`
	AppliedAt  time.Time `gorm:"not null"`
}

func (schemaMigrationModel) TableName() string { return "schema_migrations" }
