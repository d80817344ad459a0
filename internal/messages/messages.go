// Package messages holds every user-visible phrase the pipeline can emit.
// Internal details (stack traces, upstream error bodies) are logged, never
// sent to the chat; everything here is safe to deliver verbatim.
package messages

import (
	"fmt"
	"time"
)

const (
	ParseNoCommand    = "I couldn't find a command in that message. Try: refill 12345"
	ParseNoOrderIDs   = "I couldn't find any order IDs. Try: refill 12345"
	ParseTooMany      = "Too many order IDs in one message (max 100). Please split them up."
	InternalError     = "Something went wrong on our side. Please try again in a few minutes."
	OrderNotFound     = "❌ Order %s was not found on any of your panels."
	PanelUnreachable  = "❌ The panel is not responding right now. Please try again later."
	PanelUnauthorized = "❌ Panel API key was rejected. Please contact support."
	PanelRateLimited  = "❌ The panel is throttling requests. Please try again shortly."
	PanelError        = "❌ The panel rejected the request. Please try again or contact support."

	DenyRateLimited      = "⏳ Too many commands. Please wait %d seconds."
	DenyCooldown         = "⏳ This command was already processed for this order. Please wait %d more minute(s)."
	DenyGroupDisabled    = "❌ Bot commands are disabled in this group."
	DenyGroupUnverified  = "❌ This order must be claimed first. Please message me directly."
	DenyGroupClaim       = "❌ Orders can't be claimed from a group. Please message me directly."
	DenyBotDisabled      = "❌ Bot access is disabled for your account."
	DenySuspended        = "❌ Your account is suspended. Please contact support."
	DenyNotYourOrder     = "❌ This order doesn't belong to your account."
	DenyClaimedByOther   = "❌ This order is already claimed by another user."
	DenyClaimingDisabled = "❌ Order claiming is disabled. Please contact support."
	DenyEmailClaim       = "❌ This order must be verified by email first. Send: verify <code>"

	NeedsRegistration = "👋 You're not registered yet. Reply with: register <your panel username>"
	NeedsUsername     = "🔐 To verify ownership of this order, reply with your panel username."

	RefillNoGuarantee   = "❌ This service has no refill guarantee."
	RefillExpired       = "❌ The refill guarantee for this order has expired."
	RefillWrongStatus   = "❌ Refill is only available for completed orders (current status: %s)."
	CancelWrongStatus   = "❌ This order can no longer be cancelled (current status: %s)."
	SpeedUpWrongStatus  = "❌ Speed-up is only available for orders still running (current status: %s)."
	CommandDisabled     = "❌ This command is currently disabled."
	RefillSubmitted     = "✅ Refill submitted for order %s."
	CancelSubmitted     = "✅ Cancellation submitted for order %s."
	SpeedUpSubmitted    = "✅ Speed-up submitted for order %s."
	CommandForwarded    = "📨 Your %s request for order %s was forwarded to our team."
	StatusLine          = "ℹ️ Order %s: %s (remains: %d)"
	RegistrationDone    = "✅ Registered as %s. You can now manage your orders here."
	VerificationPending = "⏳ Verification received. Our team will review it shortly."
	AccountInfo         = "👤 Panel username: %s\nBot enabled: %v\nVerified: %v"
	TicketReceived      = "🎫 Ticket %s received. Our team will get back to you."
)

// WaitSeconds renders the rate-limit message.
func WaitSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(DenyRateLimited, secs)
}

// WaitMinutes renders the cooldown message, rounding up.
func WaitMinutes(d time.Duration) string {
	mins := int(d.Minutes())
	if d > time.Duration(mins)*time.Minute || mins == 0 {
		mins++
	}
	return fmt.Sprintf(DenyCooldown, mins)
}
