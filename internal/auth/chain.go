package auth

import (
	"context"

	"go.uber.org/zap"

	"smmbridge/internal/limiter"
	"smmbridge/internal/models"
)

// Decision is the terminal verdict of the authorization chain.
type Decision string

const (
	DecisionContinue          Decision = "continue" // checker-internal, never returned by the chain
	DecisionAllow             Decision = "allow"
	DecisionDeny              Decision = "deny"
	DecisionNeedsRegistration Decision = "needs_registration"
	DecisionNeedsUsername     Decision = "needs_username_verification"
)

// Outcome carries the verdict plus the data the caller needs to act on it.
type Outcome struct {
	Decision Decision

	// ShouldClaim tells the caller to bind the order to the sender
	// immediately after an Allow.
	ShouldClaim bool

	// Message is user-facing text for a Deny, drawn from the fixed table.
	Message string

	// ExpectedUsername accompanies NeedsUsernameVerification.
	ExpectedUsername string

	// OwnershipWarning marks the fail-open path: a registered mapping was
	// allowed through even though the order carries no customer username
	// to verify against.
	OwnershipWarning bool
}

func Allow() Outcome                { return Outcome{Decision: DecisionAllow} }
func AllowClaim() Outcome           { return Outcome{Decision: DecisionAllow, ShouldClaim: true} }
func Deny(message string) Outcome   { return Outcome{Decision: DecisionDeny, Message: message} }
func Continue() Outcome             { return Outcome{Decision: DecisionContinue} }
func NeedsRegistration() Outcome    { return Outcome{Decision: DecisionNeedsRegistration} }
func NeedsUsername(expected string) Outcome {
	return Outcome{Decision: DecisionNeedsUsername, ExpectedUsername: expected}
}

// Request is the evaluation context shared by all checkers.
type Request struct {
	Order   *models.Order
	Command models.CommandKind
	Policy  *models.SecurityPolicy

	SenderID string
	IsGroup  bool
	GroupID  string

	// StaffOverride is set by the transport when the message came from a
	// configured staff operations chat.
	StaffOverride bool

	// Mapping is populated by the ownership checker for later checkers
	// and for the caller.
	Mapping *models.UserMapping

	// ownershipOpen marks that the mapping existed but the order carried
	// no customer username to verify against (fail-open path).
	ownershipOpen bool
}

// Checker is one ordered authorization step. Continue defers to the next
// checker; anything else short-circuits the chain.
type Checker interface {
	Name() string
	Evaluate(ctx context.Context, req *Request) Outcome
}

// MappingStore resolves user mappings for the ownership checker.
type MappingStore interface {
	FindByIdentifier(userID uint, identifier string) (*models.UserMapping, error)
}

// Chain runs the ordered checkers, stopping at the first non-Continue
// outcome. A chain that falls off the end allows: every gate passed.
type Chain struct {
	checkers []Checker
	logger   *zap.Logger
}

// NewChain assembles the production checker order: staff override, sender
// rate limit, command cooldown, group policy, mapping ownership, claim
// status, username validation.
func NewChain(store limiter.Store, mappings MappingStore, logger *zap.Logger) *Chain {
	return &Chain{
		logger: logger,
		checkers: []Checker{
			staffOverrideChecker{},
			rateLimitChecker{store: store},
			cooldownChecker{store: store},
			groupPolicyChecker{},
			ownershipChecker{mappings: mappings, logger: logger},
			claimChecker{},
			usernameChecker{},
		},
	}
}

// Authorize evaluates the chain for one (order, command, sender) triple.
func (c *Chain) Authorize(ctx context.Context, req *Request) Outcome {
	for _, checker := range c.checkers {
		out := checker.Evaluate(ctx, req)
		if out.Decision == DecisionContinue {
			continue
		}
		if out.Decision == DecisionDeny {
			c.logger.Debug("authorization denied",
				zap.String("checker", checker.Name()),
				zap.String("sender", req.SenderID),
				zap.Uint("order", req.Order.ID))
		}
		if req.ownershipOpen && out.Decision == DecisionAllow {
			out.OwnershipWarning = true
		}
		return out
	}

	out := Allow()
	out.OwnershipWarning = req.ownershipOpen
	return out
}
