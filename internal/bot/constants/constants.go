package constants

const (
	// Commands.
	StartCommandName = "start"

	// Callback tokens carried by the terms buttons.
	AcceptButtonCustomID = "accept"
	RejectButtonCustomID = "reject"

	// Buttons.
	AcceptButtonLabel      = "✅ Accept"
	RejectButtonLabel      = "❌ Reject"
	JoinChannelButtonLabel = "📥 Join Channel"
	OpenChannelButtonLabel = "📥 Open Channel"

	// Title prefix shown in front of the terms title.
	TermsTitlePrefix = "📜 "

	// User replies.
	AlreadyAcceptedText  = "✅ Already accepted."
	PreviouslyRejectText = "❌ You rejected the Terms."
	AcceptedText         = "✅ Accepted. Tap to join channel."
	RejectedText         = "❌ Rejected."
	TryAgainText         = "⚠️ Something went wrong. Please try again."

	// Join request notifications.
	JoinApprovedText = "✅ Your request to join was approved."
	JoinDeclinedText = "❌ Your join request was declined. Send /start and accept the Terms first."

	// Operator messages. Verbs take the username, user ID and full name.
	AgreementCaptionFormat = "📄 Agreement accepted by @%s (ID: %d, Name: %s)"
	RejectionNoticeFormat  = "❌ @%s (ID: %d, Name: %s) rejected the Terms."
	EscalationFormat       = "⚠️ Failed to %s for @%s (ID: %d): %v"
)
