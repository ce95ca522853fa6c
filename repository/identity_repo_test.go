package repository

import (
	"context"
	"testing"

	"github.com/namastexlabs/automagik-omni-go/domains/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepository_GetOrCreateByPhone_CreatesOnce(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)
	ctx := context.Background()

	u1, err := repo.GetOrCreateByPhone(ctx, "5511999990000", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, u1.ID)

	u2, err := repo.GetOrCreateByPhone(ctx, "5511999990000", "Alice Again")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID, "second call with the same phone must return the existing user")
}

func TestIdentityRepository_ResolveExternal_NotFoundReturnsNilNil(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)

	user, err := repo.ResolveExternal(context.Background(), identity.ProviderDiscord, "discord-user-1", nil)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestIdentityRepository_LinkExternalThenResolve(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)
	ctx := context.Background()

	u, err := repo.GetOrCreateByPhone(ctx, "5511999990000", "Alice")
	require.NoError(t, err)

	instanceName := "inst1"
	require.NoError(t, repo.LinkExternal(ctx, u.ID, identity.ProviderDiscord, "discord-user-1", &instanceName))

	resolved, err := repo.ResolveExternal(ctx, identity.ProviderDiscord, "discord-user-1", &instanceName)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, u.ID, resolved.ID)
}

func TestIdentityRepository_LinkExternal_RelinkingToDifferentUserFails(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)
	ctx := context.Background()

	u1, err := repo.GetOrCreateByPhone(ctx, "5511999990000", "Alice")
	require.NoError(t, err)
	u2, err := repo.GetOrCreateByPhone(ctx, "5511888880000", "Bob")
	require.NoError(t, err)

	instanceName := "inst1"
	require.NoError(t, repo.LinkExternal(ctx, u1.ID, identity.ProviderDiscord, "discord-user-1", &instanceName))

	err = repo.LinkExternal(ctx, u2.ID, identity.ProviderDiscord, "discord-user-1", &instanceName)
	require.Error(t, err)
	var uv *identity.UniqueViolation
	assert.ErrorAs(t, err, &uv)
}

func TestIdentityRepository_LinkExternal_IdempotentForSameUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)
	ctx := context.Background()

	u, err := repo.GetOrCreateByPhone(ctx, "5511999990000", "Alice")
	require.NoError(t, err)

	instanceName := "inst1"
	require.NoError(t, repo.LinkExternal(ctx, u.ID, identity.ProviderDiscord, "discord-user-1", &instanceName))
	require.NoError(t, repo.LinkExternal(ctx, u.ID, identity.ProviderDiscord, "discord-user-1", &instanceName))
}
