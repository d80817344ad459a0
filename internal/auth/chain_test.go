package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smmbridge/internal/limiter"
	"smmbridge/internal/models"
)

type fakeMappingStore struct {
	byIdentifier map[string]*models.UserMapping
	err          error
}

func (f *fakeMappingStore) FindByIdentifier(_ uint, identifier string) (*models.UserMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byIdentifier[identifier], nil
}

func mapping(username string) *models.UserMapping {
	return &models.UserMapping{PanelUsername: username, BotEnabled: true}
}

func policy() *models.SecurityPolicy {
	p := models.DefaultSecurityPolicy(1)
	p.StaffGroupIDs = `["staff-room"]`
	return p
}

func order() *models.Order {
	return &models.Order{ID: 5, UserID: 1, ExternalID: "12345", Status: models.OrderCompleted}
}

func newChain(store limiter.Store, mappings MappingStore) *Chain {
	if store == nil {
		store = limiter.NewMemory()
	}
	if mappings == nil {
		mappings = &fakeMappingStore{}
	}
	return NewChain(store, mappings, zap.NewNop())
}

func TestStaffOverrideDominatesEverything(t *testing.T) {
	store := limiter.NewMemory()
	// Active cooldown plus a group-disabled policy plus zero rate budget:
	// staff still passes.
	_, _ = store.SetNX(context.Background(), CooldownKey(5, models.CommandRefill), time.Hour)
	p := policy()
	p.GroupSecurityMode = models.GroupSecurityDisabled
	p.MaxCommandsPerMinute = 1

	chain := newChain(store, nil)
	for i := 0; i < 5; i++ {
		out := chain.Authorize(context.Background(), &Request{
			Order: order(), Command: models.CommandRefill, Policy: p,
			SenderID: "ops-1", IsGroup: true, GroupID: "staff-room",
		})
		require.Equal(t, DecisionAllow, out.Decision, "iteration %d", i)
	}
}

func TestStaffOverrideFlag(t *testing.T) {
	chain := newChain(nil, nil)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandCancel, Policy: policy(),
		SenderID: "x", StaffOverride: true,
	})
	assert.Equal(t, DecisionAllow, out.Decision)
}

func TestRateLimitDenies(t *testing.T) {
	p := policy()
	p.MaxCommandsPerMinute = 2
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628123": mapping("joe")}}
	ord := order()
	ord.CustomerUsername = "joe"

	chain := newChain(nil, ms)
	req := func() *Request {
		return &Request{Order: ord, Command: models.CommandStatus, Policy: p, SenderID: "628123"}
	}

	for i := 0; i < 2; i++ {
		out := chain.Authorize(context.Background(), req())
		require.Equal(t, DecisionAllow, out.Decision)
	}
	out := chain.Authorize(context.Background(), req())
	require.Equal(t, DecisionDeny, out.Decision)
	assert.Contains(t, out.Message, "wait", "deny message carries remaining time")
}

func TestCooldownDeniesIndependentOfSender(t *testing.T) {
	store := limiter.NewMemory()
	_, _ = store.SetNX(context.Background(), CooldownKey(5, models.CommandRefill), 5*time.Minute)

	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{
		"alice": mapping("alice"),
		"bob":   mapping("bob"),
	}}
	chain := newChain(store, ms)

	for _, sender := range []string{"alice", "bob"} {
		out := chain.Authorize(context.Background(), &Request{
			Order: order(), Command: models.CommandRefill, Policy: policy(), SenderID: sender,
		})
		require.Equal(t, DecisionDeny, out.Decision, "sender %s", sender)
		assert.Contains(t, out.Message, "minute")
	}
}

func TestCooldownDoesNotBlockStatus(t *testing.T) {
	store := limiter.NewMemory()
	_, _ = store.SetNX(context.Background(), CooldownKey(5, models.CommandStatus), 5*time.Minute)
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"joe-id": mapping("joe")}}
	ord := order()
	ord.CustomerUsername = "joe"

	chain := newChain(store, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandStatus, Policy: policy(), SenderID: "joe-id",
	})
	assert.Equal(t, DecisionAllow, out.Decision)
}

func TestGroupDisabledDenies(t *testing.T) {
	p := policy()
	p.GroupSecurityMode = models.GroupSecurityDisabled
	chain := newChain(nil, nil)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandStatus, Policy: p,
		SenderID: "x", IsGroup: true, GroupID: "some-group",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestGroupVerifiedRequiresClaim(t *testing.T) {
	p := policy()
	p.GroupSecurityMode = models.GroupSecurityVerified
	chain := newChain(nil, nil)

	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandStatus, Policy: p,
		SenderID: "x", IsGroup: true, GroupID: "g",
	})
	assert.Equal(t, DecisionDeny, out.Decision, "unclaimed order in verified group")
}

func TestOwnershipMatchAllows(t *testing.T) {
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("reseller1")}}
	ord := order()
	ord.CustomerUsername = "Reseller1" // case-insensitive match

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	require.Equal(t, DecisionAllow, out.Decision)
	assert.False(t, out.OwnershipWarning)
}

func TestOwnershipMismatchNeverAllows(t *testing.T) {
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("reseller1")}}
	ord := order()
	ord.CustomerUsername = "someoneelse"
	// Even a claim held by this sender must not override the ground truth.
	ord.ClaimedBy = "628"

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestOwnershipErrorFailsClosed(t *testing.T) {
	ms := &fakeMappingStore{err: errors.New("db down")}
	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestUnregisteredDMNeedsRegistration(t *testing.T) {
	chain := newChain(nil, nil)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandCancel, Policy: policy(), SenderID: "unknown",
	})
	assert.Equal(t, DecisionNeedsRegistration, out.Decision)
}

func TestUnregisteredGroupDeniesWithoutRegistrationFlow(t *testing.T) {
	chain := newChain(nil, nil)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandCancel, Policy: policy(),
		SenderID: "unknown", IsGroup: true, GroupID: "g",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestMissingCustomerUsernameFailsOpenWithWarning(t *testing.T) {
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("r1")}}
	ord := order() // CustomerUsername empty
	ord.ClaimedBy = "628"

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	require.Equal(t, DecisionAllow, out.Decision)
	assert.True(t, out.OwnershipWarning, "fail-open path must be flagged")
}

func TestSuspendedMappingDenies(t *testing.T) {
	m := mapping("r1")
	m.AutoSuspended = true
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": m}}

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestUnclaimedDMAutoClaims(t *testing.T) {
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("r1")}}
	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	require.Equal(t, DecisionAllow, out.Decision)
	assert.True(t, out.ShouldClaim)
}

func TestClaimedByOtherDenies(t *testing.T) {
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("r1")}}
	ord := order()
	ord.ClaimedBy = "999"

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandRefill, Policy: policy(), SenderID: "628",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}

func TestUsernameValidationAskRequiresVerification(t *testing.T) {
	p := policy()
	p.UsernameValidationMode = models.UsernameValidationAsk
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"628": mapping("r1")}}
	ord := order()
	ord.CustomerUsername = "" // ownership unresolved, order unclaimed

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: ord, Command: models.CommandRefill, Policy: p, SenderID: "628",
	})
	assert.Equal(t, DecisionNeedsUsername, out.Decision)
}

func TestUsernameValidationGroupMustDM(t *testing.T) {
	p := policy()
	p.UsernameValidationMode = models.UsernameValidationStrict
	ms := &fakeMappingStore{byIdentifier: map[string]*models.UserMapping{"g1": mapping("r1")}}

	chain := newChain(nil, ms)
	out := chain.Authorize(context.Background(), &Request{
		Order: order(), Command: models.CommandRefill, Policy: p,
		SenderID: "member", IsGroup: true, GroupID: "g1",
	})
	assert.Equal(t, DecisionDeny, out.Decision)
}
