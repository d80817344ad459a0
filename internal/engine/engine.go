package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smmbridge/internal/auth"
	"smmbridge/internal/limiter"
	"smmbridge/internal/messages"
	"smmbridge/internal/models"
	"smmbridge/internal/panelapi"
)

// OrderStore is the order persistence surface the engine needs.
type OrderStore interface {
	FindByExternalID(externalID string) (*models.Order, error)
	Create(order *models.Order) error
	UpdateStatus(order *models.Order, status models.OrderStatus) error
	Update(id uint, updates map[string]interface{}) error
	Claim(order *models.Order, senderID string) (bool, error)
}

// CommandStore writes the audit trail.
type CommandStore interface {
	Begin(orderID uint, cmd models.CommandKind, requesterID, platform string) (*models.CommandRecord, error)
	Finish(rec *models.CommandRecord, status models.CommandRecordStatus, rawResponse, errorText string) error
}

// PanelStore resolves a reseller's panels.
type PanelStore interface {
	FindByID(id uint) (*models.Panel, error)
	FindActiveByUser(userID uint) ([]models.Panel, error)
}

// PolicyStore resolves the reseller's security policy.
type PolicyStore interface {
	GetOrCreate(userID uint) (*models.SecurityPolicy, error)
}

// GuaranteeStore matches refill-guarantee metadata by service name.
type GuaranteeStore interface {
	MatchByServiceName(userID uint, serviceName string) (*models.Service, error)
}

// PanelAPI is the upstream client surface.
type PanelAPI interface {
	Request(ctx context.Context, panel *models.Panel, op panelapi.Op, params map[string]string) panelapi.Result
	OrderStatus(ctx context.Context, panel *models.Panel, externalID string) panelapi.Result
}

// Forwarder hands a command off to a human operator.
type Forwarder interface {
	Forward(ctx context.Context, order *models.Order, cmd models.CommandKind, senderID string) error
}

// Authorizer runs the authorization chain.
type Authorizer interface {
	Authorize(ctx context.Context, req *auth.Request) auth.Outcome
}

// Request describes one per-order command execution.
type Request struct {
	UserID   uint
	OrderID  string // panel-assigned external id
	Command  models.CommandKind
	SenderID string
	IsGroup  bool
	GroupID  string
	Platform string

	StaffOverride bool
	PanelHint     *models.Panel
}

// Result is the per-order outcome. Authorization and precondition
// failures are results, not errors, so bulk aggregation treats every
// order uniformly.
type Result struct {
	OrderID string
	Success bool
	Message string

	// Pending signals a conversation the caller must resume out-of-band
	// (registration, username verification) before retrying.
	Pending          auth.Decision
	ExpectedUsername string

	Status models.OrderStatus
}

// Engine orchestrates one command against one order: resolve, refresh,
// authorize, check preconditions, execute per action mode, record the
// outcome.
type Engine struct {
	orders    OrderStore
	commands  CommandStore
	panels    PanelStore
	policies  PolicyStore
	services  GuaranteeStore
	api       PanelAPI
	forwarder Forwarder
	chain     Authorizer
	locks     limiter.Store
	logger    *zap.Logger
}

func New(orders OrderStore, commands CommandStore, panels PanelStore, policies PolicyStore,
	services GuaranteeStore, api PanelAPI, forwarder Forwarder, chain Authorizer,
	locks limiter.Store, logger *zap.Logger) *Engine {
	return &Engine{
		orders:    orders,
		commands:  commands,
		panels:    panels,
		policies:  policies,
		services:  services,
		api:       api,
		forwarder: forwarder,
		chain:     chain,
		locks:     locks,
		logger:    logger,
	}
}

// Execute runs one command for one order id.
func (e *Engine) Execute(ctx context.Context, req Request) Result {
	order, panel, res := e.resolveOrder(ctx, req)
	if order == nil {
		return res
	}

	// Panels are the source of truth; refresh before acting. A refresh
	// that errors is swallowed and the cached status used.
	e.refreshOrder(ctx, order, panel)

	policy, err := e.policies.GetOrCreate(req.UserID)
	if err != nil {
		e.logger.Error("policy load failed", zap.Error(err), zap.Uint("user_id", req.UserID))
		return Result{OrderID: req.OrderID, Message: messages.InternalError}
	}

	outcome := e.chain.Authorize(ctx, &auth.Request{
		Order:         order,
		Command:       req.Command,
		Policy:        policy,
		SenderID:      req.SenderID,
		IsGroup:       req.IsGroup,
		GroupID:       req.GroupID,
		StaffOverride: req.StaffOverride,
	})

	switch outcome.Decision {
	case auth.DecisionDeny:
		return Result{OrderID: req.OrderID, Message: outcome.Message, Status: order.Status}
	case auth.DecisionNeedsRegistration:
		return Result{OrderID: req.OrderID, Pending: outcome.Decision, Message: messages.NeedsRegistration}
	case auth.DecisionNeedsUsername:
		return Result{
			OrderID:          req.OrderID,
			Pending:          outcome.Decision,
			ExpectedUsername: outcome.ExpectedUsername,
			Message:          messages.NeedsUsername,
		}
	}

	if outcome.OwnershipWarning {
		e.logger.Warn("ownership granted without customer username",
			zap.String("order", req.OrderID), zap.String("sender", req.SenderID))
	}

	if outcome.ShouldClaim {
		claimed, err := e.orders.Claim(order, req.SenderID)
		if err != nil {
			e.logger.Error("claim write failed", zap.Error(err), zap.Uint("order_id", order.ID))
			return Result{OrderID: req.OrderID, Message: messages.InternalError}
		}
		if !claimed {
			return Result{OrderID: req.OrderID, Message: messages.DenyClaimedByOther}
		}
	}

	if msg, ok := e.checkPrecondition(order, req.Command); !ok {
		return Result{OrderID: req.OrderID, Message: msg, Status: order.Status}
	}

	if req.Command == models.CommandStatus {
		return Result{
			OrderID: req.OrderID,
			Success: true,
			Status:  order.Status,
			Message: fmt.Sprintf(messages.StatusLine, order.ExternalID, order.Status, order.Remains),
		}
	}

	return e.executeMutating(ctx, req, order, panel, policy)
}

// resolveOrder finds the order locally, or materializes it from the first
// panel that answers. The hinted panel, when present, is the only one
// consulted.
func (e *Engine) resolveOrder(ctx context.Context, req Request) (*models.Order, *models.Panel, Result) {
	order, err := e.orders.FindByExternalID(req.OrderID)
	if err != nil {
		e.logger.Error("order lookup failed", zap.Error(err), zap.String("order", req.OrderID))
		return nil, nil, Result{OrderID: req.OrderID, Message: messages.InternalError}
	}

	if order != nil {
		panel, err := e.panels.FindByID(order.PanelID)
		if err != nil {
			e.logger.Warn("panel lookup failed for cached order",
				zap.Error(err), zap.Uint("panel_id", order.PanelID))
			return order, nil, Result{}
		}
		return order, panel, Result{}
	}

	var candidates []models.Panel
	if req.PanelHint != nil {
		candidates = []models.Panel{*req.PanelHint}
	} else {
		candidates, err = e.panels.FindActiveByUser(req.UserID)
		if err != nil {
			e.logger.Error("panel list failed", zap.Error(err), zap.Uint("user_id", req.UserID))
			return nil, nil, Result{OrderID: req.OrderID, Message: messages.InternalError}
		}
	}

	var lastKind panelapi.ErrorKind
	for i := range candidates {
		panel := &candidates[i]
		res := e.api.OrderStatus(ctx, panel, req.OrderID)
		if !res.Success {
			lastKind = res.Kind
			continue
		}
		info := panelapi.ExtractOrderInfo(res)
		if info == nil {
			continue
		}

		order = &models.Order{
			ExternalID:       req.OrderID,
			UserID:           req.UserID,
			PanelID:          panel.ID,
			Status:           info.Status,
			ServiceName:      info.ServiceName,
			Quantity:         info.Quantity,
			Charge:           info.Charge,
			StartCount:       info.StartCount,
			Remains:          info.Remains,
			CustomerUsername: info.CustomerUsername,
			Provider:         info.Provider,
			ProviderOrderID:  info.ProviderOrderID,
			ProviderStatus:   info.ProviderStatus,
		}
		if info.Status == models.OrderCompleted {
			now := time.Now()
			order.CompletedAt = &now
		}
		if err := e.orders.Create(order); err != nil {
			e.logger.Error("order materialize failed", zap.Error(err), zap.String("order", req.OrderID))
			return nil, nil, Result{OrderID: req.OrderID, Message: messages.InternalError}
		}
		return order, panel, Result{}
	}

	return nil, nil, Result{OrderID: req.OrderID, Message: e.upstreamMessage(lastKind, req.OrderID)}
}

func (e *Engine) refreshOrder(ctx context.Context, order *models.Order, panel *models.Panel) {
	if panel == nil {
		return
	}
	res := e.api.OrderStatus(ctx, panel, order.ExternalID)
	if !res.Success {
		e.logger.Debug("status refresh failed, using cached status",
			zap.String("order", order.ExternalID), zap.String("kind", string(res.Kind)))
		return
	}
	info := panelapi.ExtractOrderInfo(res)
	if info == nil {
		return
	}

	if info.Status != "" && info.Status != order.Status {
		if err := e.orders.UpdateStatus(order, info.Status); err != nil {
			e.logger.Error("status update failed", zap.Error(err), zap.Uint("order_id", order.ID))
		}
	}

	updates := map[string]interface{}{}
	if info.Remains != order.Remains {
		updates["remains"] = info.Remains
		order.Remains = info.Remains
	}
	if info.CustomerUsername != "" && info.CustomerUsername != order.CustomerUsername {
		updates["customer_username"] = info.CustomerUsername
		order.CustomerUsername = info.CustomerUsername
	}
	if info.ProviderStatus != "" && info.ProviderStatus != order.ProviderStatus {
		updates["provider_status"] = info.ProviderStatus
		order.ProviderStatus = info.ProviderStatus
	}
	if len(updates) > 0 {
		if err := e.orders.Update(order.ID, updates); err != nil {
			e.logger.Error("order field refresh failed", zap.Error(err), zap.Uint("order_id", order.ID))
		}
	}
}

// checkPrecondition enforces the per-command state machine.
func (e *Engine) checkPrecondition(order *models.Order, cmd models.CommandKind) (string, bool) {
	switch cmd {
	case models.CommandRefill:
		if order.Status != models.OrderCompleted {
			return fmt.Sprintf(messages.RefillWrongStatus, order.Status), false
		}
		return e.checkGuarantee(order)
	case models.CommandCancel:
		switch order.Status {
		case models.OrderCompleted, models.OrderCancelled, models.OrderRefunded:
			return fmt.Sprintf(messages.CancelWrongStatus, order.Status), false
		}
	case models.CommandSpeedUp:
		switch order.Status {
		case models.OrderPending, models.OrderInProgress, models.OrderProcessing:
		default:
			return fmt.Sprintf(messages.SpeedUpWrongStatus, order.Status), false
		}
	}
	return "", true
}

func (e *Engine) upstreamMessage(kind panelapi.ErrorKind, orderID string) string {
	switch kind {
	case panelapi.KindUnauthorized:
		return messages.PanelUnauthorized
	case panelapi.KindRateLimited:
		return messages.PanelRateLimited
	case panelapi.KindConnectionError:
		return messages.PanelUnreachable
	case panelapi.KindNotFound, panelapi.KindNone:
		return fmt.Sprintf(messages.OrderNotFound, orderID)
	}
	return messages.PanelError
}
