package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"gorm.io/gorm"
)

// InstanceRepository is the GORM-backed domains/instance.Registry, with a
// read-through in-memory cache keyed by instance name so the hot path of
// resolving an instance on every inbound webhook avoids a query.
type InstanceRepository struct {
	db *gorm.DB

	mu    sync.RWMutex
	cache map[string]instance.InstanceConfig
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db, cache: make(map[string]instance.InstanceConfig)}
}

var _ instance.Registry = (*InstanceRepository)(nil)

func (r *InstanceRepository) Create(ctx context.Context, req instance.CreateRequest) (instance.InstanceConfig, error) {
	now := time.Now().UTC()
	cfg := instance.InstanceConfig{
		Name:             req.Name,
		ChannelType:      req.ChannelType,
		EvolutionURL:     req.EvolutionURL,
		EvolutionKey:     req.EvolutionKey,
		WhatsappInstance: req.WhatsappInstance,
		DiscordBotToken:  req.DiscordBotToken,
		DiscordGuildID:   req.DiscordGuildID,
		AgentAPIURL:      req.AgentAPIURL,
		AgentAPIKey:      req.AgentAPIKey,
		DefaultAgent:     req.DefaultAgent,
		AgentTimeoutMs:   req.AgentTimeoutMs,
		IsDefault:        req.IsDefault,
		IsActive:         true,
		EnableAutoSplit:  req.EnableAutoSplit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	model := toInstanceModel(cfg)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cfg.IsDefault {
			if err := tx.Model(&instanceModel{}).Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return instance.InstanceConfig{}, err
	}

	r.mu.Lock()
	if cfg.IsDefault {
		evictOtherDefaults(r.cache, cfg.Name)
	}
	r.cache[cfg.Name] = cfg
	r.mu.Unlock()
	return cfg, nil
}

func (r *InstanceRepository) Get(ctx context.Context, name string) (instance.InstanceConfig, error) {
	r.mu.RLock()
	if cfg, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return cfg, nil
	}
	r.mu.RUnlock()

	var model instanceModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return instance.InstanceConfig{}, pkgError.NotFoundError("instance " + name + " not found")
		}
		return instance.InstanceConfig{}, err
	}
	cfg := fromInstanceModel(model)

	r.mu.Lock()
	r.cache[name] = cfg
	r.mu.Unlock()
	return cfg, nil
}

func (r *InstanceRepository) Update(ctx context.Context, name string, patch instance.Patch) (instance.InstanceConfig, error) {
	var updated instance.InstanceConfig
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model instanceModel
		if err := tx.First(&model, "name = ?", name).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgError.NotFoundError("instance " + name + " not found")
			}
			return err
		}

		applyPatch(&model, patch)
		model.UpdatedAt = time.Now().UTC()

		if patch.IsDefault != nil && *patch.IsDefault {
			if err := tx.Model(&instanceModel{}).Where("name <> ?", name).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		updated = fromInstanceModel(model)
		return nil
	})
	if err != nil {
		return instance.InstanceConfig{}, err
	}

	r.mu.Lock()
	if patch.IsDefault != nil && *patch.IsDefault {
		evictOtherDefaults(r.cache, name)
	}
	r.cache[name] = updated
	r.mu.Unlock()
	return updated, nil
}

func (r *InstanceRepository) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Delete(&instanceModel{}, "name = ?", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("instance " + name + " not found")
	}

	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
	return nil
}

func (r *InstanceRepository) List(ctx context.Context, filter instance.ListFilter) ([]instance.InstanceConfig, error) {
	q := r.db.WithContext(ctx).Model(&instanceModel{})
	if filter.ChannelType != "" {
		q = q.Where("channel_type = ?", string(filter.ChannelType))
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var models []instanceModel
	if err := q.Order("name").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]instance.InstanceConfig, len(models))
	for i, m := range models {
		out[i] = fromInstanceModel(m)
	}
	return out, nil
}

func (r *InstanceRepository) SetDefault(ctx context.Context, name string) error {
	var model instanceModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "name = ?", name).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgError.NotFoundError("instance " + name + " not found")
			}
			return err
		}
		if err := tx.Model(&instanceModel{}).Where("name <> ?", name).
			Update("is_default", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&model).Update("is_default", true).Error; err != nil {
			return err
		}
		model.IsDefault = true
		return nil
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	evictOtherDefaults(r.cache, name)
	r.cache[name] = fromInstanceModel(model)
	r.mu.Unlock()
	return nil
}

// evictOtherDefaults clears IsDefault on every cache entry except keep,
// mirroring the single-default invariant a SetDefault/Create(is_default)
// just enforced in the database. Caller holds r.mu.
func evictOtherDefaults(cache map[string]instance.InstanceConfig, keep string) {
	for name, cfg := range cache {
		if name != keep && cfg.IsDefault {
			cfg.IsDefault = false
			cache[name] = cfg
		}
	}
}

// Discover is a no-op reconciliation pass: this registry has no external
// broker to poll for instance lifecycle events, unlike a platform that
// auto-discovers channels from a remote inbox list.
func (r *InstanceRepository) Discover(ctx context.Context) (instance.DiscoveryReport, error) {
	return instance.DiscoveryReport{}, nil
}

func (r *InstanceRepository) HealthCheck(ctx context.Context, name string) (instance.HealthStatus, error) {
	if _, err := r.Get(ctx, name); err != nil {
		return instance.HealthStatus{}, err
	}
	return instance.HealthStatus{State: instance.HealthOnline, LastUpdated: time.Now().UTC()}, nil
}

func toInstanceModel(cfg instance.InstanceConfig) instanceModel {
	ns := func(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }
	return instanceModel{
		Name:             cfg.Name,
		ChannelType:      string(cfg.ChannelType),
		EvolutionURL:     ns(cfg.EvolutionURL),
		EvolutionKey:     ns(cfg.EvolutionKey),
		WhatsappInstance: ns(cfg.WhatsappInstance),
		DiscordBotToken:  ns(cfg.DiscordBotToken),
		DiscordGuildID:   ns(cfg.DiscordGuildID),
		AgentAPIURL:      ns(cfg.AgentAPIURL),
		AgentAPIKey:      ns(cfg.AgentAPIKey),
		DefaultAgent:     ns(cfg.DefaultAgent),
		AgentTimeoutMs:   cfg.AgentTimeoutMs,
		IsDefault:        cfg.IsDefault,
		IsActive:         cfg.IsActive,
		EnableAutoSplit:  cfg.EnableAutoSplit,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}

func fromInstanceModel(m instanceModel) instance.InstanceConfig {
	return instance.InstanceConfig{
		Name:             m.Name,
		ChannelType:      instance.ChannelType(m.ChannelType),
		EvolutionURL:     m.EvolutionURL.String,
		EvolutionKey:     m.EvolutionKey.String,
		WhatsappInstance: m.WhatsappInstance.String,
		DiscordBotToken:  m.DiscordBotToken.String,
		DiscordGuildID:   m.DiscordGuildID.String,
		AgentAPIURL:      m.AgentAPIURL.String,
		AgentAPIKey:      m.AgentAPIKey.String,
		DefaultAgent:     m.DefaultAgent.String,
		AgentTimeoutMs:   m.AgentTimeoutMs,
		IsDefault:        m.IsDefault,
		IsActive:         m.IsActive,
		EnableAutoSplit:  m.EnableAutoSplit,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func applyPatch(m *instanceModel, patch instance.Patch) {
	ns := func(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }
	if patch.EvolutionURL != nil {
		m.EvolutionURL = ns(*patch.EvolutionURL)
	}
	if patch.EvolutionKey != nil {
		m.EvolutionKey = ns(*patch.EvolutionKey)
	}
	if patch.WhatsappInstance != nil {
		m.WhatsappInstance = ns(*patch.WhatsappInstance)
	}
	if patch.DiscordBotToken != nil {
		m.DiscordBotToken = ns(*patch.DiscordBotToken)
	}
	if patch.DiscordGuildID != nil {
		m.DiscordGuildID = ns(*patch.DiscordGuildID)
	}
	if patch.AgentAPIURL != nil {
		m.AgentAPIURL = ns(*patch.AgentAPIURL)
	}
	if patch.AgentAPIKey != nil {
		m.AgentAPIKey = ns(*patch.AgentAPIKey)
	}
	if patch.DefaultAgent != nil {
		m.DefaultAgent = ns(*patch.DefaultAgent)
	}
	if patch.AgentTimeoutMs != nil {
		m.AgentTimeoutMs = *patch.AgentTimeoutMs
	}
	if patch.IsDefault != nil {
		m.IsDefault = *patch.IsDefault
	}
	if patch.IsActive != nil {
		m.IsActive = *patch.IsActive
	}
	if patch.EnableAutoSplit != nil {
		m.EnableAutoSplit = *patch.EnableAutoSplit
	}
}
