package gate

import (
	"context"
	"errors"

	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/consent"
	"go.uber.org/zap"
)

// Verdict is the adjudicator's answer to a join request.
type Verdict int

const (
	VerdictDeclined Verdict = iota
	VerdictApproved
)

// String returns the verdict name.
func (v Verdict) String() string {
	if v == VerdictApproved {
		return "approved"
	}

	return "declined"
}

// Outcome reports everything that happened while handling a join request.
// DecisionErr is the store failure that forced a decline, AdjudicationErr the
// failed approve or decline call, NotifyErr the failed user notification.
type Outcome struct {
	Verdict         Verdict
	DecisionErr     error
	AdjudicationErr error
	NotifyErr       error
}

// Err joins every failure of the outcome.
func (o Outcome) Err() error {
	return errors.Join(o.DecisionErr, o.AdjudicationErr, o.NotifyErr)
}

// Adjudicator approves join requests from users who accepted the terms
// and declines everyone else.
type Adjudicator struct {
	store       consent.Store
	messenger   Messenger
	channelLink string
	logger      *zap.Logger
}

// NewAdjudicator creates an Adjudicator.
func NewAdjudicator(store consent.Store, messenger Messenger, channelLink string, logger *zap.Logger) *Adjudicator {
	return &Adjudicator{
		store:       store,
		messenger:   messenger,
		channelLink: channelLink,
		logger:      logger.Named("adjudicator"),
	}
}

// Handle decides a join request. Failures are logged and reported in the
// outcome; none are retried.
func (a *Adjudicator) Handle(ctx context.Context, req JoinRequest) Outcome {
	var outcome Outcome

	decision, err := a.store.Get(ctx, req.Identity.ID)
	if err != nil {
		outcome.DecisionErr = err
		a.logger.Error("Failed to read decision, declining",
			zap.Int64("userID", req.Identity.ID),
			zap.Error(err))
	}

	notice := Reply{Text: constants.JoinDeclinedText}

	if err == nil && decision == consent.DecisionAccepted {
		outcome.Verdict = VerdictApproved
		outcome.AdjudicationErr = a.messenger.ApproveJoinRequest(ctx, req)
		notice = Reply{Text: constants.JoinApprovedText}

		if a.channelLink != "" {
			notice.Buttons = []Button{{Label: constants.OpenChannelButtonLabel, URL: a.channelLink}}
		}
	} else {
		outcome.AdjudicationErr = a.messenger.DeclineJoinRequest(ctx, req)
	}

	if outcome.AdjudicationErr != nil {
		a.logger.Error("Failed to adjudicate join request",
			zap.Int64("userID", req.Identity.ID),
			zap.Int64("chatID", req.ChatID),
			zap.String("verdict", outcome.Verdict.String()),
			zap.Error(outcome.AdjudicationErr))
	} else {
		a.logger.Info("Join request adjudicated",
			zap.Int64("userID", req.Identity.ID),
			zap.Int64("chatID", req.ChatID),
			zap.String("verdict", outcome.Verdict.String()))
	}

	outcome.NotifyErr = a.notify(ctx, req, notice)
	if outcome.NotifyErr != nil {
		a.logger.Warn("Failed to notify requester",
			zap.Int64("userID", req.Identity.ID),
			zap.Error(outcome.NotifyErr))
	}

	return outcome
}

// notify messages the requester, preferring the conversation attached to
// the request.
func (a *Adjudicator) notify(ctx context.Context, req JoinRequest, reply Reply) error {
	chat := ChatRef{ID: req.Identity.ID, User: true}
	if req.UserChatID != 0 {
		chat = ChatRef{ID: req.UserChatID}
	}

	return a.messenger.SendMessage(ctx, chat, reply)
}
