package repository

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// revision is one forward-only, idempotent migration step. id must never be
// reused once released.
type revision struct {
	id    string
	apply func(*gorm.DB) error
}

func revisions() []revision {
	return []revision{
		{id: "0001_instances", apply: func(db *gorm.DB) error {
			return db.AutoMigrate(&instanceModel{})
		}},
		{id: "0002_identity", apply: func(db *gorm.DB) error {
			return db.AutoMigrate(&userModel{}, &userExternalIDModel{})
		}},
		{id: "0003_access_rules", apply: func(db *gorm.DB) error {
			return db.AutoMigrate(&accessRuleModel{})
		}},
		{id: "0004_traces", apply: func(db *gorm.DB) error {
			return db.AutoMigrate(&messageTraceModel{}, &tracePayloadModel{})
		}},
	}
}

// Migrate applies every revision not yet recorded in schema_migrations, in
// order, each inside its own transaction. A revision whose apply step fails
// is not recorded: the ledger always reflects the true applied head, so a
// retry after fixing the underlying cause resumes from the failing
// revision rather than skipping it.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigrationModel{}); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	applied := make(map[string]bool)
	var rows []schemaMigrationModel
	if err := db.Find(&rows).Error; err != nil {
		return fmt.Errorf("load migration ledger: %w", err)
	}
	for _, r := range rows {
		applied[r.RevisionID] = true
	}

	for _, rev := range revisions() {
		if applied[rev.id] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := rev.apply(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigrationModel{
				RevisionID: rev.id,
				AppliedAt:  time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", rev.id, err)
		}
		logrus.WithField("revision", rev.id).Info("migration applied")
	}
	return nil
}
