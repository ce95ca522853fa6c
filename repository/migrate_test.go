package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))

	var count int64
	require.NoError(t, db.Model(&schemaMigrationModel{}).Count(&count).Error)
	assert.EqualValues(t, len(revisions()), count, "re-running Migrate must not duplicate ledger rows")
}

func TestMigrate_RecordsEveryRevision(t *testing.T) {
	db := openTestDB(t)

	var rows []schemaMigrationModel
	require.NoError(t, db.Find(&rows).Error)

	ids := make(map[string]bool, len(rows))
	for _, r := range rows {
		ids[r.RevisionID] = true
	}
	for _, rev := range revisions() {
		assert.True(t, ids[rev.id], "revision %s should be recorded", rev.id)
	}
}
