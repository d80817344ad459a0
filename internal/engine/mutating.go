package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smmbridge/internal/auth"
	"smmbridge/internal/messages"
	"smmbridge/internal/models"
	"smmbridge/internal/panelapi"
)

func opFor(cmd models.CommandKind) panelapi.Op {
	switch cmd {
	case models.CommandRefill:
		return panelapi.OpRefill
	case models.CommandCancel:
		return panelapi.OpCancel
	case models.CommandSpeedUp:
		return panelapi.OpSpeedUp
	}
	return panelapi.OpStatus
}

func submittedMessage(cmd models.CommandKind, externalID string) string {
	switch cmd {
	case models.CommandRefill:
		return fmt.Sprintf(messages.RefillSubmitted, externalID)
	case models.CommandCancel:
		return fmt.Sprintf(messages.CancelSubmitted, externalID)
	case models.CommandSpeedUp:
		return fmt.Sprintf(messages.SpeedUpSubmitted, externalID)
	}
	return ""
}

// executeMutating runs refill, cancel or speedup according to the
// policy's action mode. The command record is opened in PROCESSING before
// anything irreversible happens and closed exactly once.
func (e *Engine) executeMutating(ctx context.Context, req Request, order *models.Order,
	panel *models.Panel, policy *models.SecurityPolicy) Result {

	mode := policy.ActionMode(req.Command)
	if mode == models.ActionModeDisabled {
		return Result{OrderID: req.OrderID, Message: messages.CommandDisabled, Status: order.Status}
	}

	rec, err := e.commands.Begin(order.ID, req.Command, req.SenderID, req.Platform)
	if err != nil {
		e.logger.Error("command record create failed", zap.Error(err), zap.Uint("order_id", order.ID))
		return Result{OrderID: req.OrderID, Message: messages.InternalError}
	}

	var (
		success bool
		message string
		raw     string
		errText string
	)

	switch mode {
	case models.ActionModeAuto:
		success, message, raw, errText = e.callPanel(ctx, req, order, panel)
	case models.ActionModeForward:
		success, message, errText = e.forward(ctx, req, order)
		raw = "forwarded"
	case models.ActionModeBoth:
		// Both legs run regardless; the action counts as done when
		// either one landed.
		success, message, raw, errText = e.callPanel(ctx, req, order, panel)
		fwdOK, fwdMsg, fwdErr := e.forward(ctx, req, order)
		if !success && fwdOK {
			success, message, errText = true, fwdMsg, ""
		} else if fwdErr != "" && !success {
			errText = errText + "; forward: " + fwdErr
		}
	default:
		e.logger.Warn("unknown action mode, treating as auto", zap.String("mode", mode))
		success, message, raw, errText = e.callPanel(ctx, req, order, panel)
	}

	status := models.RecordFailed
	if success {
		status = models.RecordSuccess
	}
	if err := e.commands.Finish(rec, status, raw, errText); err != nil {
		e.logger.Error("command record finish failed", zap.Error(err), zap.String("record", rec.ID))
	}

	if success {
		e.startCooldown(ctx, order, req.Command, policy)
	}

	return Result{OrderID: req.OrderID, Success: success, Message: message, Status: order.Status}
}

func (e *Engine) callPanel(ctx context.Context, req Request, order *models.Order,
	panel *models.Panel) (bool, string, string, string) {

	if panel == nil {
		return false, messages.PanelUnreachable, "", "panel record unavailable"
	}
	res := e.api.Request(ctx, panel, opFor(req.Command), map[string]string{"order": order.ExternalID})
	if !res.Success {
		errText := string(res.Kind)
		if res.Err != nil {
			errText = res.Err.Error()
		}
		return false, e.upstreamMessage(res.Kind, order.ExternalID), res.Raw, errText
	}
	return true, submittedMessage(req.Command, order.ExternalID), res.Raw, ""
}

func (e *Engine) forward(ctx context.Context, req Request, order *models.Order) (bool, string, string) {
	if e.forwarder == nil {
		return false, messages.InternalError, "no forwarder configured"
	}
	if err := e.forwarder.Forward(ctx, order, req.Command, req.SenderID); err != nil {
		e.logger.Error("operator forward failed", zap.Error(err), zap.Uint("order_id", order.ID))
		return false, messages.InternalError, err.Error()
	}
	return true, fmt.Sprintf(messages.CommandForwarded, req.Command, order.ExternalID), ""
}

func (e *Engine) startCooldown(ctx context.Context, order *models.Order,
	cmd models.CommandKind, policy *models.SecurityPolicy) {

	if policy.CommandCooldownSeconds <= 0 {
		return
	}
	ttl := time.Duration(policy.CommandCooldownSeconds) * time.Second
	if _, err := e.locks.SetNX(ctx, auth.CooldownKey(order.ID, cmd), ttl); err != nil {
		e.logger.Warn("cooldown write failed", zap.Error(err), zap.Uint("order_id", order.ID))
	}
}
