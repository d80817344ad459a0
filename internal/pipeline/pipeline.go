// Package pipeline is the platform-neutral entry point: transports hand
// every inbound chat message to Handle and deliver the reply verbatim.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"smmbridge/internal/auth"
	"smmbridge/internal/command"
	"smmbridge/internal/engine"
	"smmbridge/internal/messages"
	"smmbridge/internal/models"
)

// Inbound is one chat message, normalized across platforms.
type Inbound struct {
	SenderID string
	Text     string
	IsGroup  bool
	GroupID  string
	Platform string

	UserID        uint
	StaffOverride bool
}

// Reply is what the transport sends back. Handled=false means the message
// is ordinary chatter and the transport should stay silent.
type Reply struct {
	Handled bool
	Text    string
	Results []engine.Result
}

// Executor runs parsed commands. Satisfied by engine.Engine.
type Executor interface {
	ExecuteBulk(ctx context.Context, req engine.BulkRequest) []engine.Result
}

// MappingStore is the registration surface.
type MappingStore interface {
	FindByIdentifier(userID uint, identifier string) (*models.UserMapping, error)
	FindByUsername(userID uint, panelUsername string) (*models.UserMapping, error)
	Create(m *models.UserMapping) error
	Update(id uint, updates map[string]interface{}) error
	TouchActivity(id uint) error
}

// OrderStore is the claim surface used when a username verification
// completes.
type OrderStore interface {
	FindByExternalID(externalID string) (*models.Order, error)
	Claim(order *models.Order, senderID string) (bool, error)
	Update(id uint, updates map[string]interface{}) error
}

// Notifier relays free-text requests (tickets, verification codes) to a
// human operator. Optional.
type Notifier interface {
	NotifyOperator(ctx context.Context, text string) error
}

// Pipeline wires the parser, the execution engine and the conversational
// side flows together.
type Pipeline struct {
	exec     Executor
	mappings MappingStore
	orders   OrderStore
	notifier Notifier
	pending  *pendingRegistry
	logger   *zap.Logger
}

func New(exec Executor, mappings MappingStore, orders OrderStore, notifier Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		exec:     exec,
		mappings: mappings,
		orders:   orders,
		notifier: notifier,
		pending:  newPendingRegistry(),
		logger:   logger,
	}
}

// Handle routes one inbound message.
func (p *Pipeline) Handle(ctx context.Context, in Inbound) Reply {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{}
	}

	if uc := command.ParseUserCommand(text); uc != nil {
		return p.handleUserCommand(ctx, in, uc)
	}

	if command.LooksLikeCommand(text) {
		return p.handleOrderCommand(ctx, in, text)
	}

	// Not a command. In a DM this may be the answer to a pending
	// username verification.
	if !in.IsGroup {
		if reply, ok := p.resumePending(ctx, in, text); ok {
			return reply
		}
	}
	return Reply{}
}

func (p *Pipeline) handleOrderCommand(ctx context.Context, in Inbound, text string) Reply {
	parsed := command.Parse(text)
	if !parsed.Valid {
		switch parsed.Reason {
		case "too_many_orders":
			return Reply{Handled: true, Text: messages.ParseTooMany}
		case "no_order_ids":
			return Reply{Handled: true, Text: messages.ParseNoOrderIDs}
		}
		// Keyword plus digits but no recognizable grammar. Stay quiet in
		// groups, nudge in DMs.
		if in.IsGroup {
			return Reply{}
		}
		return Reply{Handled: true, Text: messages.ParseNoCommand}
	}

	results := p.exec.ExecuteBulk(ctx, engine.BulkRequest{
		UserID:        in.UserID,
		OrderIDs:      parsed.OrderIDs,
		Command:       parsed.Command,
		SenderID:      in.SenderID,
		IsGroup:       in.IsGroup,
		GroupID:       in.GroupID,
		Platform:      in.Platform,
		StaffOverride: in.StaffOverride,
	})

	p.recordPending(in, parsed.Command, results)

	return Reply{
		Handled: true,
		Text:    FormatReport(parsed.Command, results),
		Results: results,
	}
}

// recordPending remembers username-verification prompts so the sender's
// next plain DM can complete them.
func (p *Pipeline) recordPending(in Inbound, cmd models.CommandKind, results []engine.Result) {
	if in.IsGroup {
		return
	}
	for _, res := range results {
		if res.Pending == auth.DecisionNeedsUsername {
			p.pending.put(in.Platform, in.SenderID, pendingVerification{
				OrderID:  res.OrderID,
				Command:  cmd,
				Expected: res.ExpectedUsername,
			})
			return
		}
	}
}

// resumePending treats a plain DM as the answer to an outstanding
// username prompt. On a match the order is claimed as verified and the
// original command re-executed.
func (p *Pipeline) resumePending(ctx context.Context, in Inbound, text string) (Reply, bool) {
	pv, ok := p.pending.take(in.Platform, in.SenderID)
	if !ok {
		return Reply{}, false
	}

	answer := strings.TrimSpace(strings.TrimPrefix(text, "@"))

	order, err := p.orders.FindByExternalID(pv.OrderID)
	if err != nil || order == nil {
		p.logger.Error("pending order lookup failed", zap.Error(err), zap.String("order", pv.OrderID))
		return Reply{Handled: true, Text: messages.InternalError}, true
	}

	expected := pv.Expected
	if expected == "" {
		// The prompt may have gone out before a status refresh filled
		// the field in.
		expected = strings.TrimSpace(order.CustomerUsername)
	}
	if expected != "" && !strings.EqualFold(answer, expected) {
		p.logger.Info("username verification mismatch",
			zap.String("sender", in.SenderID), zap.String("order", pv.OrderID))
		return Reply{Handled: true, Text: messages.DenyNotYourOrder}, true
	}
	if expected == "" {
		// The panel never exposed the customer username. Record the
		// stated one instead of stranding the order.
		p.logger.Warn("username verification accepted without panel data",
			zap.String("sender", in.SenderID), zap.String("order", pv.OrderID))
		if err := p.orders.Update(order.ID, map[string]interface{}{"customer_username": answer}); err != nil {
			p.logger.Error("customer username write failed", zap.Error(err), zap.Uint("order_id", order.ID))
		}
	}

	claimed, err := p.orders.Claim(order, in.SenderID)
	if err != nil {
		p.logger.Error("verified claim failed", zap.Error(err), zap.Uint("order_id", order.ID))
		return Reply{Handled: true, Text: messages.InternalError}, true
	}
	if !claimed {
		return Reply{Handled: true, Text: messages.DenyClaimedByOther}, true
	}
	if err := p.orders.Update(order.ID, map[string]interface{}{"claim_verified": true}); err != nil {
		p.logger.Error("claim verify flag failed", zap.Error(err), zap.Uint("order_id", order.ID))
	}

	results := p.exec.ExecuteBulk(ctx, engine.BulkRequest{
		UserID:   in.UserID,
		OrderIDs: []string{pv.OrderID},
		Command:  pv.Command,
		SenderID: in.SenderID,
		Platform: in.Platform,
	})
	return Reply{Handled: true, Text: FormatReport(pv.Command, results), Results: results}, true
}
