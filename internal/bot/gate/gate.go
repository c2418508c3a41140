// Package gate holds the platform-neutral consent flow: the terms prompt,
// the accept/reject selection and the join request adjudication.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/termsgate/internal/bot/constants"
	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/decisionlog"
	"github.com/robalyx/termsgate/internal/proof"
	"go.uber.org/zap"
)

// Renderer produces the agreement document for an accepted decision.
type Renderer interface {
	RenderAt(id consent.Identity, signedAt time.Time) ([]byte, error)
}

// Settings are the static inputs of the flow.
type Settings struct {
	TermsTitle   string
	TermsPrompt  string
	TermsVersion string
	ChannelLink  string
	Operator     ChatRef // Zero ID disables operator delivery
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the clock used to timestamp decisions.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate drives the user-facing consent flow.
type Gate struct {
	store     consent.Store
	log       decisionlog.Writer
	renderer  Renderer
	messenger Messenger
	settings  Settings
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a Gate.
func New(
	store consent.Store, log decisionlog.Writer, renderer Renderer, messenger Messenger,
	settings Settings, logger *zap.Logger, opts ...Option,
) *Gate {
	g := &Gate{
		store:     store,
		log:       log,
		renderer:  renderer,
		messenger: messenger,
		settings:  settings,
		now:       time.Now,
		logger:    logger.Named("gate"),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// HandleStart answers a start trigger according to the user's decision.
// The returned error is only the failure to send the reply.
func (g *Gate) HandleStart(ctx context.Context, event StartEvent) error {
	decision, err := g.store.Get(ctx, event.Identity.ID)
	if err != nil {
		g.logger.Error("Failed to read decision",
			zap.Int64("userID", event.Identity.ID),
			zap.Error(err))

		return g.messenger.SendMessage(ctx, event.Chat, Reply{Text: constants.TryAgainText})
	}

	return g.messenger.SendMessage(ctx, event.Chat, g.stateReply(decision))
}

// HandleSelection records the pressed button and answers by editing the
// prompt. The returned error is only the failure to edit the prompt.
func (g *Gate) HandleSelection(ctx context.Context, event SelectionEvent) error {
	id := event.Identity

	decision, ok := choiceDecision(event.Choice)
	if !ok {
		g.logger.Debug("Ignoring unknown selection",
			zap.Int64("userID", id.ID),
			zap.String("choice", event.Choice))

		return nil
	}

	at := g.now()

	current, applied, err := g.store.Record(ctx, id, decision, at)
	if err != nil {
		g.logger.Error("Failed to record decision",
			zap.Int64("userID", id.ID),
			zap.String("decision", decision.String()),
			zap.Error(err))

		return g.messenger.EditMessage(ctx, event.Message, Reply{Text: constants.TryAgainText})
	}

	if !applied {
		g.logger.Debug("Decision already final",
			zap.Int64("userID", id.ID),
			zap.String("current", current.String()),
			zap.String("requested", decision.String()))

		return g.messenger.EditMessage(ctx, event.Message, g.stateReply(current))
	}

	g.logger.Info("Recorded decision",
		zap.Int64("userID", id.ID),
		zap.String("username", id.Username),
		zap.String("decision", decision.String()))

	entry := decisionlog.Entry{
		Identity:     id,
		Decision:     decision,
		At:           at,
		TermsVersion: g.settings.TermsVersion,
	}
	if err := g.log.Append(ctx, entry); err != nil {
		g.escalate(ctx, "write the decision log", id, err)
	}

	var reply Reply

	switch decision {
	case consent.DecisionAccepted:
		g.deliverAgreement(ctx, id, at)

		reply = Reply{Text: constants.AcceptedText, Buttons: g.joinButtons(constants.JoinChannelButtonLabel)}
	case consent.DecisionRejected:
		g.notifyRejection(ctx, id)

		reply = Reply{Text: constants.RejectedText}
	case consent.DecisionUnset:
	}

	return g.messenger.EditMessage(ctx, event.Message, reply)
}

// deliverAgreement renders the agreement and sends it to the operator.
func (g *Gate) deliverAgreement(ctx context.Context, id consent.Identity, at time.Time) {
	if g.settings.Operator.ID == 0 {
		g.logger.Warn("Operator not configured, skipping agreement delivery", zap.Int64("userID", id.ID))
		return
	}

	data, err := g.renderer.RenderAt(id, at)
	if err != nil {
		g.escalate(ctx, "render the agreement", id, err)
		return
	}

	doc := Document{
		FileName: proof.FileName(id.ID),
		Data:     data,
		Caption:  fmt.Sprintf(constants.AgreementCaptionFormat, id.Username, id.ID, id.FullName),
	}
	if err := g.messenger.SendDocument(ctx, g.settings.Operator, doc); err != nil {
		g.escalate(ctx, "deliver the agreement", id, err)
	}
}

// notifyRejection tells the operator that a user rejected the terms.
func (g *Gate) notifyRejection(ctx context.Context, id consent.Identity) {
	if g.settings.Operator.ID == 0 {
		g.logger.Warn("Operator not configured, skipping rejection notice", zap.Int64("userID", id.ID))
		return
	}

	notice := Reply{Text: fmt.Sprintf(constants.RejectionNoticeFormat, id.Username, id.ID, id.FullName)}
	if err := g.messenger.SendMessage(ctx, g.settings.Operator, notice); err != nil {
		g.escalate(ctx, "deliver the rejection notice", id, err)
	}
}

// escalate logs a failure at error level and warns the operator chat.
func (g *Gate) escalate(ctx context.Context, step string, id consent.Identity, err error) {
	g.logger.Error("Failed to "+step,
		zap.Int64("userID", id.ID),
		zap.String("username", id.Username),
		zap.Error(err))

	if g.settings.Operator.ID == 0 {
		return
	}

	warning := Reply{Text: fmt.Sprintf(constants.EscalationFormat, step, id.Username, id.ID, err)}
	if sendErr := g.messenger.SendMessage(ctx, g.settings.Operator, warning); sendErr != nil {
		g.logger.Error("Failed to escalate to operator",
			zap.String("step", step),
			zap.Int64("userID", id.ID),
			zap.Error(sendErr))
	}
}

// stateReply is the answer for a user whose decision is already known.
func (g *Gate) stateReply(decision consent.Decision) Reply {
	switch decision {
	case consent.DecisionAccepted:
		return Reply{Text: constants.AlreadyAcceptedText, Buttons: g.joinButtons(constants.JoinChannelButtonLabel)}
	case consent.DecisionRejected:
		return Reply{Text: constants.PreviouslyRejectText}
	case consent.DecisionUnset:
	}

	return Reply{
		Title: constants.TermsTitlePrefix + g.settings.TermsTitle,
		Text:  g.settings.TermsPrompt,
		Buttons: []Button{
			{Label: constants.AcceptButtonLabel, Data: constants.AcceptButtonCustomID},
			{Label: constants.RejectButtonLabel, Data: constants.RejectButtonCustomID},
		},
	}
}

// joinButtons returns the link to the channel, if one is configured.
func (g *Gate) joinButtons(label string) []Button {
	if g.settings.ChannelLink == "" {
		return nil
	}

	return []Button{{Label: label, URL: g.settings.ChannelLink}}
}

func choiceDecision(choice string) (consent.Decision, bool) {
	switch choice {
	case constants.AcceptButtonCustomID:
		return consent.DecisionAccepted, true
	case constants.RejectButtonCustomID:
		return consent.DecisionRejected, true
	default:
		return consent.DecisionUnset, false
	}
}
