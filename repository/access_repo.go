package repository

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/namastexlabs/automagik-omni-go/domains/access"
	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"gorm.io/gorm"
)

// AccessRepository is the GORM-backed domains/access.Control. Evaluation
// never touches the database: Reload snapshots every active rule into two
// in-memory shapes, an exact-match set for plain numbers and an ordered
// slice for "*"-suffixed prefixes, scoped per instance plus one global
// bucket.
type AccessRepository struct {
	db *gorm.DB

	mu     sync.RWMutex
	byInst map[string]*ruleSet // instance_name -> rules; "" key is global
}

type ruleSet struct {
	allowExact map[string]bool
	denyExact  map[string]bool
	allowPfx   []string
	denyPfx    []string
}

func newRuleSet() *ruleSet {
	return &ruleSet{allowExact: map[string]bool{}, denyExact: map[string]bool{}}
}

func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{db: db, byInst: map[string]*ruleSet{}}
}

var _ access.Control = (*AccessRepository)(nil)

// normalizeIdentifier strips a leading "+" and any "@..." channel suffix
// (e.g. WhatsApp's "@s.whatsapp.net" JID form) so a rule written as a bare
// phone number matches every wire form of the same sender.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimPrefix(identifier, "+")
	if idx := strings.Index(identifier, "@"); idx >= 0 {
		identifier = identifier[:idx]
	}
	return identifier
}

func (r *AccessRepository) CheckAccess(ctx context.Context, instanceName, identifier string) (bool, access.Reason, error) {
	identifier = normalizeIdentifier(identifier)

	r.mu.RLock()
	global := r.byInst[""]
	scoped := r.byInst[instanceName]
	r.mu.RUnlock()

	if denied(global, identifier) || denied(scoped, identifier) {
		return false, access.ReasonDenied, nil
	}

	hasAllowlist := (global != nil && len(global.allowExact)+len(global.allowPfx) > 0) ||
		(scoped != nil && len(scoped.allowExact)+len(scoped.allowPfx) > 0)
	if !hasAllowlist {
		return true, access.ReasonNone, nil
	}

	if allowed(global, identifier) || allowed(scoped, identifier) {
		return true, access.ReasonNone, nil
	}
	return false, access.ReasonNotInAllowlist, nil
}

func denied(s *ruleSet, identifier string) bool {
	if s == nil {
		return false
	}
	return s.denyExact[identifier] || matchesPrefix(s.denyPfx, identifier)
}

func allowed(s *ruleSet, identifier string) bool {
	if s == nil {
		return false
	}
	return s.allowExact[identifier] || matchesPrefix(s.allowPfx, identifier)
}

func matchesPrefix(prefixes []string, identifier string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(identifier, p) {
			return true
		}
	}
	return false
}

func (r *AccessRepository) AddRule(ctx context.Context, req access.AddRuleRequest) (access.Rule, error) {
	ns := sql.NullString{}
	if req.InstanceName != nil {
		ns = sql.NullString{String: *req.InstanceName, Valid: true}
	}
	model := accessRuleModel{
		ID:           uuid.NewString(),
		RuleType:     string(req.RuleType),
		PhoneNumber:  req.PhoneNumber,
		InstanceName: ns,
		Label:        sql.NullString{String: req.Label, Valid: req.Label != ""},
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return access.Rule{}, err
	}
	if err := r.Reload(ctx); err != nil {
		return access.Rule{}, err
	}
	return fromAccessRuleModel(model), nil
}

func (r *AccessRepository) RemoveRule(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&accessRuleModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError("access rule " + id + " not found")
	}
	return r.Reload(ctx)
}

func (r *AccessRepository) ListRules(ctx context.Context, filter access.ListFilter) ([]access.Rule, error) {
	q := r.db.WithContext(ctx).Model(&accessRuleModel{})
	if filter.RuleType != "" {
		q = q.Where("rule_type = ?", string(filter.RuleType))
	}
	if filter.InstanceName != nil {
		q = q.Where("instance_name = ?", *filter.InstanceName)
	}

	var models []accessRuleModel
	if err := q.Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]access.Rule, len(models))
	for i, m := range models {
		out[i] = fromAccessRuleModel(m)
	}
	return out, nil
}

// Reload rebuilds the in-memory evaluation cache from every active rule.
func (r *AccessRepository) Reload(ctx context.Context) error {
	var models []accessRuleModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&models).Error; err != nil {
		return err
	}

	byInst := map[string]*ruleSet{"": newRuleSet()}
	for _, m := range models {
		key := ""
		if m.InstanceName.Valid {
			key = m.InstanceName.String
		}
		set, ok := byInst[key]
		if !ok {
			set = newRuleSet()
			byInst[key] = set
		}

		pattern := normalizeIdentifier(m.PhoneNumber)
		isWildcard := strings.HasSuffix(pattern, "*")
		prefix := strings.TrimSuffix(pattern, "*")
		switch access.RuleType(m.RuleType) {
		case access.RuleAllow:
			if isWildcard {
				set.allowPfx = append(set.allowPfx, prefix)
			} else {
				set.allowExact[pattern] = true
			}
		case access.RuleDeny:
			if isWildcard {
				set.denyPfx = append(set.denyPfx, prefix)
			} else {
				set.denyExact[pattern] = true
			}
		}
	}

	r.mu.Lock()
	r.byInst = byInst
	r.mu.Unlock()
	return nil
}

func fromAccessRuleModel(m accessRuleModel) access.Rule {
	rule := access.Rule{
		ID:          m.ID,
		RuleType:    access.RuleType(m.RuleType),
		PhoneNumber: m.PhoneNumber,
		Label:       m.Label.String,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
	if m.InstanceName.Valid {
		name := m.InstanceName.String
		rule.InstanceName = &name
	}
	return rule
}
