package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smmbridge/internal/command"
	"smmbridge/internal/messages"
	"smmbridge/internal/models"
)

// handleUserCommand serves the stand-alone conversational commands that
// carry no order ids.
func (p *Pipeline) handleUserCommand(ctx context.Context, in Inbound, uc *command.UserCommand) Reply {
	if in.IsGroup {
		// Account management stays out of groups.
		return Reply{Handled: true, Text: messages.DenyGroupClaim}
	}

	switch uc.Kind {
	case command.UserRegister:
		return p.register(in, uc.Arg)
	case command.UserAccount:
		return p.accountInfo(in)
	case command.UserVerify:
		return p.relayToOperator(ctx, in,
			fmt.Sprintf("Verification code from %s (%s): %s", in.SenderID, in.Platform, uc.Arg),
			messages.VerificationPending)
	case command.UserTicket:
		return p.relayToOperator(ctx, in,
			fmt.Sprintf("Ticket from %s (%s): %s", in.SenderID, in.Platform, uc.Arg),
			fmt.Sprintf(messages.TicketReceived, uc.Arg))
	}
	return Reply{}
}

func (p *Pipeline) register(in Inbound, panelUsername string) Reply {
	existing, err := p.mappings.FindByIdentifier(in.UserID, in.SenderID)
	if err != nil {
		p.logger.Error("registration lookup failed", zap.Error(err), zap.String("sender", in.SenderID))
		return Reply{Handled: true, Text: messages.InternalError}
	}
	if existing != nil {
		return Reply{Handled: true, Text: fmt.Sprintf(messages.RegistrationDone, existing.PanelUsername)}
	}

	// The same panel account may write in from several numbers or chats;
	// attach the new identifier instead of forking the mapping.
	byName, err := p.mappings.FindByUsername(in.UserID, panelUsername)
	if err != nil {
		p.logger.Error("registration username lookup failed", zap.Error(err))
		return Reply{Handled: true, Text: messages.InternalError}
	}
	if byName != nil {
		ids := append(byName.IdentifierList(), in.SenderID)
		byName.SetIdentifiers(ids)
		if err := p.mappings.Update(byName.ID, map[string]interface{}{"identifiers": byName.Identifiers}); err != nil {
			p.logger.Error("identifier attach failed", zap.Error(err), zap.Uint("mapping_id", byName.ID))
			return Reply{Handled: true, Text: messages.InternalError}
		}
		return Reply{Handled: true, Text: fmt.Sprintf(messages.RegistrationDone, byName.PanelUsername)}
	}

	m := &models.UserMapping{
		UserID:        in.UserID,
		PanelUsername: panelUsername,
		BotEnabled:    true,
	}
	m.SetIdentifiers([]string{in.SenderID})
	if err := p.mappings.Create(m); err != nil {
		p.logger.Error("registration create failed", zap.Error(err), zap.String("sender", in.SenderID))
		return Reply{Handled: true, Text: messages.InternalError}
	}
	p.logger.Info("sender registered",
		zap.String("sender", in.SenderID), zap.String("panel_username", panelUsername))
	return Reply{Handled: true, Text: fmt.Sprintf(messages.RegistrationDone, panelUsername)}
}

func (p *Pipeline) accountInfo(in Inbound) Reply {
	m, err := p.mappings.FindByIdentifier(in.UserID, in.SenderID)
	if err != nil {
		p.logger.Error("account lookup failed", zap.Error(err), zap.String("sender", in.SenderID))
		return Reply{Handled: true, Text: messages.InternalError}
	}
	if m == nil {
		return Reply{Handled: true, Text: messages.NeedsRegistration}
	}
	if err := p.mappings.TouchActivity(m.ID); err != nil {
		p.logger.Debug("activity touch failed", zap.Error(err))
	}
	return Reply{Handled: true, Text: fmt.Sprintf(messages.AccountInfo, m.PanelUsername, m.BotEnabled, m.Verified)}
}

func (p *Pipeline) relayToOperator(ctx context.Context, in Inbound, note, ack string) Reply {
	if p.notifier != nil {
		if err := p.notifier.NotifyOperator(ctx, note); err != nil {
			p.logger.Error("operator relay failed", zap.Error(err), zap.String("sender", in.SenderID))
		}
	}
	return Reply{Handled: true, Text: ack}
}
