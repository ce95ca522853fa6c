package repository

import (
	"context"
	"testing"

	"github.com/namastexlabs/automagik-omni-go/domains/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccessRepository() *AccessRepository {
	return &AccessRepository{byInst: map[string]*ruleSet{}}
}

func TestAccessRepository_NoRules_Allows(t *testing.T) {
	r := newTestAccessRepository()

	ok, reason, err := r.CheckAccess(context.Background(), "inst1", "5511999990000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, access.ReasonNone, reason)
}

func TestAccessRepository_DenyWinsOverAllow(t *testing.T) {
	r := newTestAccessRepository()
	set := newRuleSet()
	set.allowExact["5511999990000"] = true
	set.denyExact["5511999990000"] = true
	r.byInst["inst1"] = set

	ok, reason, err := r.CheckAccess(context.Background(), "inst1", "5511999990000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, access.ReasonDenied, reason)
}

func TestAccessRepository_AllowlistExcludesOthers(t *testing.T) {
	r := newTestAccessRepository()
	set := newRuleSet()
	set.allowExact["5511999990000"] = true
	r.byInst["inst1"] = set

	ok, reason, err := r.CheckAccess(context.Background(), "inst1", "5511888880000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, access.ReasonNotInAllowlist, reason)

	ok, reason, err = r.CheckAccess(context.Background(), "inst1", "5511999990000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, access.ReasonNone, reason)
}

func TestAccessRepository_WildcardPrefix(t *testing.T) {
	r := newTestAccessRepository()
	set := newRuleSet()
	set.denyPfx = []string{"551199999"}
	r.byInst["inst1"] = set

	ok, reason, err := r.CheckAccess(context.Background(), "inst1", "5511999990001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, access.ReasonDenied, reason)
}

func TestAccessRepository_GlobalRuleAppliesToEveryInstance(t *testing.T) {
	r := newTestAccessRepository()
	global := newRuleSet()
	global.denyExact["5511999990000"] = true
	r.byInst[""] = global

	ok, reason, err := r.CheckAccess(context.Background(), "any-instance", "5511999990000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, access.ReasonDenied, reason)
}

func TestAccessRepository_ScopedAllowlistDoesNotLeakToOtherInstances(t *testing.T) {
	r := newTestAccessRepository()
	set := newRuleSet()
	set.allowExact["5511999990000"] = true
	r.byInst["inst1"] = set

	ok, _, err := r.CheckAccess(context.Background(), "inst2", "5511999990000")
	require.NoError(t, err)
	assert.True(t, ok, "an allowlist scoped to inst1 must not restrict inst2")
}

func TestAccessRepository_NormalizeIdentifier_StripsLeadingPlusAndChannelSuffix(t *testing.T) {
	assert.Equal(t, "1234", normalizeIdentifier("+1234"))
	assert.Equal(t, "1234", normalizeIdentifier("1234@s.whatsapp.net"))
	assert.Equal(t, "1234", normalizeIdentifier("+1234@instA"))
	assert.Equal(t, "1234", normalizeIdentifier("1234"))
}

func TestAccessRepository_CheckAccess_NormalizesIdentifierAgainstRule(t *testing.T) {
	r := newTestAccessRepository()
	set := newRuleSet()
	set.allowExact["1234"] = true
	r.byInst["instA"] = set

	ok, reason, err := r.CheckAccess(context.Background(), "instA", "+1234@instA")
	require.NoError(t, err)
	assert.True(t, ok, "a scoped allow rule for 1234 must admit the wire form +1234@instA")
	assert.Equal(t, access.ReasonNone, reason)
}

func TestAccessRepository_Reload_NormalizesStoredPattern(t *testing.T) {
	db := openTestDB(t)
	r := NewAccessRepository(db)
	ctx := context.Background()

	instanceName := "inst1"
	_, err := r.AddRule(ctx, access.AddRuleRequest{
		RuleType:     access.RuleDeny,
		PhoneNumber:  "+5511999990000",
		InstanceName: &instanceName,
	})
	require.NoError(t, err)

	ok, reason, err := r.CheckAccess(ctx, "inst1", "5511999990000@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, ok, "a rule stored with a leading + must still match the plain-digit wire identifier")
	assert.Equal(t, access.ReasonDenied, reason)
}

func TestAccessRepository_AddRuleReloadsCacheAndEnforces(t *testing.T) {
	db := openTestDB(t)
	r := NewAccessRepository(db)
	ctx := context.Background()

	instanceName := "inst1"
	_, err := r.AddRule(ctx, access.AddRuleRequest{
		RuleType:     access.RuleDeny,
		PhoneNumber:  "5511999990000",
		InstanceName: &instanceName,
	})
	require.NoError(t, err)

	ok, reason, err := r.CheckAccess(ctx, "inst1", "5511999990000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, access.ReasonDenied, reason)
}

func TestAccessRepository_RemoveRuleLiftsTheBlock(t *testing.T) {
	db := openTestDB(t)
	r := NewAccessRepository(db)
	ctx := context.Background()

	instanceName := "inst1"
	rule, err := r.AddRule(ctx, access.AddRuleRequest{
		RuleType:     access.RuleDeny,
		PhoneNumber:  "5511999990000",
		InstanceName: &instanceName,
	})
	require.NoError(t, err)

	require.NoError(t, r.RemoveRule(ctx, rule.ID))

	ok, _, err := r.CheckAccess(ctx, "inst1", "5511999990000")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessRepository_RemoveRule_NotFound(t *testing.T) {
	db := openTestDB(t)
	r := NewAccessRepository(db)

	err := r.RemoveRule(context.Background(), "does-not-exist")
	assert.Error(t, err)
}
