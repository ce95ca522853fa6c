package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/namastexlabs/automagik-omni-go/domains/identity"
	"gorm.io/gorm"
)

// IdentityRepository is the GORM-backed domains/identity.Service.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

var _ identity.Service = (*IdentityRepository)(nil)

func (r *IdentityRepository) GetOrCreateByPhone(ctx context.Context, phone string, displayName string) (identity.User, error) {
	var result identity.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model userModel
		err := tx.First(&model, "phone_number = ?", phone).Error
		switch {
		case err == nil:
			result = fromUserModel(model)
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := time.Now().UTC()
			model = userModel{
				ID:          uuid.NewString(),
				PhoneNumber: sql.NullString{String: phone, Valid: true},
				DisplayName: sql.NullString{String: displayName, Valid: displayName != ""},
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			result = fromUserModel(model)
			return nil
		default:
			return err
		}
	})
	return result, err
}

func (r *IdentityRepository) ResolveExternal(ctx context.Context, provider identity.Provider, externalID string, instanceName *string) (*identity.User, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = user_external_ids.user_id").
		Where("user_external_ids.provider = ? AND user_external_ids.external_id = ?", string(provider), externalID)
	if instanceName != nil {
		q = q.Where("user_external_ids.instance_name = ?", *instanceName)
	} else {
		q = q.Where("user_external_ids.instance_name IS NULL")
	}

	var model userModel
	err := q.Model(&userExternalIDModel{}).Select("users.*").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := fromUserModel(model)
	return &user, nil
}

func (r *IdentityRepository) LinkExternal(ctx context.Context, userID string, provider identity.Provider, externalID string, instanceName *string) error {
	ns := sql.NullString{}
	if instanceName != nil {
		ns = sql.NullString{String: *instanceName, Valid: true}
	}

	var existing userExternalIDModel
	q := r.db.WithContext(ctx).Where("provider = ? AND external_id = ?", string(provider), externalID)
	if instanceName != nil {
		q = q.Where("instance_name = ?", *instanceName)
	} else {
		q = q.Where("instance_name IS NULL")
	}
	err := q.First(&existing).Error
	if err == nil {
		if existing.UserID != userID {
			return &identity.UniqueViolation{Provider: provider, ExternalID: externalID, InstanceName: instanceName}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return r.db.WithContext(ctx).Create(&userExternalIDModel{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     string(provider),
		ExternalID:   externalID,
		InstanceName: ns,
		CreatedAt:    time.Now().UTC(),
	}).Error
}

func fromUserModel(m userModel) identity.User {
	u := identity.User{
		ID:          m.ID,
		DisplayName: m.DisplayName.String,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.PhoneNumber.Valid {
		phone := m.PhoneNumber.String
		u.PhoneNumber = &phone
	}
	return u
}
