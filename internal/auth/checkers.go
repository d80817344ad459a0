package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"smmbridge/internal/messages"
	"smmbridge/internal/models"
)

// CooldownKey is the shared lock key for one (order, command) pair. The
// execution engine writes the lock after a successful mutating command;
// the cooldown checker reads it here.
func CooldownKey(orderID uint, cmd models.CommandKind) string {
	return fmt.Sprintf("cooldown:%d:%s", orderID, cmd)
}

func rateKey(senderID string) string {
	return "rate:" + senderID
}

// 1. Staff override: members of a configured operations chat bypass
// everything. Staff must be able to act on any order from the internal
// group.
type staffOverrideChecker struct{}

func (staffOverrideChecker) Name() string { return "staff_override" }

func (staffOverrideChecker) Evaluate(_ context.Context, req *Request) Outcome {
	if req.StaffOverride {
		return Allow()
	}
	if req.IsGroup && req.Policy.IsStaffGroup(req.GroupID) {
		return Allow()
	}
	return Continue()
}

// 2. Sender rate limit: sliding one-minute window.
type rateLimitChecker struct {
	store interface {
		TryAcquire(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
	}
}

func (rateLimitChecker) Name() string { return "rate_limit" }

func (c rateLimitChecker) Evaluate(ctx context.Context, req *Request) Outcome {
	limit := req.Policy.MaxCommandsPerMinute
	if limit <= 0 {
		return Continue()
	}
	ok, retryAfter, err := c.store.TryAcquire(ctx, rateKey(req.SenderID), limit, time.Minute)
	if err != nil {
		// A broken counter must not lock users out.
		return Continue()
	}
	if !ok {
		return Deny(messages.WaitSeconds(retryAfter))
	}
	return Continue()
}

// 3. Command cooldown: an unexpired lock for (order, command) means the
// action was just processed; repeats are suppressed.
type cooldownChecker struct {
	store interface {
		TTL(ctx context.Context, key string) (time.Duration, error)
	}
}

func (cooldownChecker) Name() string { return "cooldown" }

func (c cooldownChecker) Evaluate(ctx context.Context, req *Request) Outcome {
	if !req.Command.Mutating() {
		return Continue()
	}
	ttl, err := c.store.TTL(ctx, CooldownKey(req.Order.ID, req.Command))
	if err != nil {
		return Continue()
	}
	if ttl > 0 {
		return Deny(messages.WaitMinutes(ttl))
	}
	return Continue()
}

// 4. Group policy.
type groupPolicyChecker struct{}

func (groupPolicyChecker) Name() string { return "group_policy" }

func (groupPolicyChecker) Evaluate(_ context.Context, req *Request) Outcome {
	if !req.IsGroup {
		return Continue()
	}
	switch req.Policy.GroupSecurityMode {
	case models.GroupSecurityDisabled:
		return Deny(messages.DenyGroupDisabled)
	case models.GroupSecurityVerified:
		if strings.TrimSpace(req.Order.ClaimedBy) == "" {
			return Deny(messages.DenyGroupUnverified)
		}
	}
	return Continue()
}

// 5. Ownership via registered mapping. The mapping is resolved by sender
// identifier, falling back to the group identifier. When the order's
// customer username is known it is the ground truth; when it is missing
// the check fails open with a warning flag. Internal errors fail closed:
// ownership is never granted on ambiguous evidence.
type ownershipChecker struct {
	mappings MappingStore
	logger   *zap.Logger
}

func (ownershipChecker) Name() string { return "ownership" }

func (c ownershipChecker) Evaluate(_ context.Context, req *Request) Outcome {
	mapping, err := c.mappings.FindByIdentifier(req.Order.UserID, req.SenderID)
	if err != nil {
		c.logger.Error("mapping lookup failed", zap.Error(err), zap.String("sender", req.SenderID))
		return Deny(messages.InternalError)
	}
	if mapping == nil && req.IsGroup && req.GroupID != "" {
		mapping, err = c.mappings.FindByIdentifier(req.Order.UserID, req.GroupID)
		if err != nil {
			c.logger.Error("group mapping lookup failed", zap.Error(err), zap.String("group", req.GroupID))
			return Deny(messages.InternalError)
		}
	}

	if mapping == nil {
		if req.IsGroup {
			// Registration is a DM-only flow.
			return Deny(messages.DenyGroupUnverified)
		}
		return NeedsRegistration()
	}

	req.Mapping = mapping

	if mapping.AutoSuspended {
		return Deny(messages.DenySuspended)
	}
	if !mapping.BotEnabled {
		return Deny(messages.DenyBotDisabled)
	}

	customer := strings.TrimSpace(req.Order.CustomerUsername)
	if customer == "" {
		// Fail open: registered mapping, no order data to verify against.
		req.ownershipOpen = true
		return Continue()
	}
	if strings.EqualFold(customer, strings.TrimSpace(mapping.PanelUsername)) {
		return Allow()
	}
	return Deny(messages.DenyNotYourOrder)
}

// 6. Claim status, reached only when the mapping did not resolve
// ownership either way.
type claimChecker struct{}

func (claimChecker) Name() string { return "claim" }

func (claimChecker) Evaluate(_ context.Context, req *Request) Outcome {
	claimedBy := strings.TrimSpace(req.Order.ClaimedBy)

	if claimedBy == "" {
		if req.IsGroup {
			return Deny(messages.DenyGroupClaim)
		}
		switch req.Policy.OrderClaimMode {
		case models.ClaimAuto:
			if needsUsernameFirst(req) {
				return Continue()
			}
			return AllowClaim()
		case models.ClaimEmail:
			return Deny(messages.DenyEmailClaim)
		default:
			return Deny(messages.DenyClaimingDisabled)
		}
	}

	if strings.EqualFold(claimedBy, req.SenderID) {
		return Allow()
	}
	return Deny(messages.DenyClaimedByOther)
}

// needsUsernameFirst defers the first claim to the username validation
// step when the policy demands it.
func needsUsernameFirst(req *Request) bool {
	switch req.Policy.UsernameValidationMode {
	case models.UsernameValidationAsk, models.UsernameValidationStrict:
		return !req.Order.ClaimVerified
	}
	return false
}

// 7. Username validation: the sender must supply the panel username once
// per order before the first claim. A group context can never satisfy
// this; the conversation has to move to a DM.
type usernameChecker struct{}

func (usernameChecker) Name() string { return "username_validation" }

func (usernameChecker) Evaluate(_ context.Context, req *Request) Outcome {
	switch req.Policy.UsernameValidationMode {
	case models.UsernameValidationAsk, models.UsernameValidationStrict:
	default:
		return Continue()
	}
	if req.IsGroup {
		return Deny(messages.DenyGroupClaim)
	}
	return NeedsUsername(strings.TrimSpace(req.Order.CustomerUsername))
}
