package engine

import (
	"context"

	"go.uber.org/zap"

	"smmbridge/internal/messages"
	"smmbridge/internal/models"
)

// BulkRequest fans one parsed command out over every order id in the
// message.
type BulkRequest struct {
	UserID   uint
	OrderIDs []string
	Command  models.CommandKind
	SenderID string
	IsGroup  bool
	GroupID  string
	Platform string

	StaffOverride bool
	PanelHint     *models.Panel
}

// ExecuteBulk runs the command for each order id in message order,
// sequentially. One order's failure, including a panic inside its
// execution, never stops the rest of the batch.
func (e *Engine) ExecuteBulk(ctx context.Context, req BulkRequest) []Result {
	results := make([]Result, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		results = append(results, e.executeSafe(ctx, Request{
			UserID:        req.UserID,
			OrderID:       id,
			Command:       req.Command,
			SenderID:      req.SenderID,
			IsGroup:       req.IsGroup,
			GroupID:       req.GroupID,
			Platform:      req.Platform,
			StaffOverride: req.StaffOverride,
			PanelHint:     req.PanelHint,
		}))
	}
	return results
}

func (e *Engine) executeSafe(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during command execution",
				zap.Any("panic", r), zap.String("order", req.OrderID))
			res = Result{OrderID: req.OrderID, Message: messages.InternalError}
		}
	}()
	return e.Execute(ctx, req)
}
