// Package relay implements the per-chat dialogue state machine that decides
// whether an incoming message is a fresh anonymous message, a threaded reply,
// or an invalid action, and drives delivery and ledger bookkeeping.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"whisperlink/backend/internal/dialogue"
	"whisperlink/backend/internal/localization"
	"whisperlink/backend/internal/storage"
)

// Orchestrator consumes inbound updates, reads the chat's dialogue state,
// acts through the transport and records successful deliveries in the ledger.
// All work for a chat runs inside that chat's tracker lane.
type Orchestrator struct {
	store     storage.Storage
	tracker   *dialogue.Tracker
	transport Transport
	loc       *localization.Localizer
	lang      string
	logger    *zap.SugaredLogger
}

// NewOrchestrator is the Orchestrator constructor.
func NewOrchestrator(store storage.Storage, tracker *dialogue.Tracker, transport Transport,
	loc *localization.Localizer, lang string, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		tracker:   tracker,
		transport: transport,
		loc:       loc,
		lang:      lang,
		logger:    logger,
	}
}

// HandleInbound processes one incoming message, serialized per chat.
// Every failure path leaves exactly one explanatory message in the chat.
func (o *Orchestrator) HandleInbound(ctx context.Context, in Inbound) {
	o.tracker.Serialize(in.ChatID, func() {
		if err := o.handleInbound(ctx, in); err != nil {
			o.logger.Errorw("update handling failed", "chat_id", in.ChatID, "message_id", in.MessageID, "err", err)
			if sendErr := o.transport.SendText(ctx, in.ChatID, o.text("generic_error"), 0); sendErr != nil {
				o.logger.Errorw("failed to notify chat about error", "chat_id", in.ChatID, "err", sendErr)
			}
		}
	})
}

// HandleCallback processes one inline-button action.
func (o *Orchestrator) HandleCallback(ctx context.Context, cb Callback) {
	switch cb.Action {
	case ActionCancel:
		o.tracker.Serialize(cb.ChatID, func() {
			notice := ""
			if o.cancelComposition(ctx, cb.ChatID) {
				notice = o.text("sending_cancelled")
			}
			o.answerCallback(ctx, cb.ID, notice)
		})

	case ActionReply:
		o.answerCallback(ctx, cb.ID, o.text("reply_tip"))

	case ActionHideTip:
		if err := o.store.DisableAnswerTip(ctx, cb.ChatID); err != nil {
			o.logger.Errorw("disable answer tip failed", "chat_id", cb.ChatID, "err", err)
			o.answerCallback(ctx, cb.ID, o.text("generic_error"))
			return
		}
		o.answerCallback(ctx, cb.ID, o.text("tips_muted"))

	default:
		o.logger.Debugw("unknown callback action", "chat_id", cb.ChatID, "action", cb.Action)
		o.answerCallback(ctx, cb.ID, "")
	}
}

func (o *Orchestrator) handleInbound(ctx context.Context, in Inbound) error {
	if in.IsCommand {
		return o.handleCommand(ctx, in)
	}
	return o.handleContent(ctx, in)
}

func (o *Orchestrator) handleCommand(ctx context.Context, in Inbound) error {
	// Any command aborts a pending composition first.
	if o.cancelComposition(ctx, in.ChatID) {
		if err := o.transport.SendText(ctx, in.ChatID, o.text("sending_cancelled"), 0); err != nil {
			return err
		}
	}

	switch in.Command {
	case "start":
		return o.handleStart(ctx, in)
	case "cancel":
		// The composition, if any, is already gone; still refresh the
		// user's activity like every other interaction does.
		_, err := o.store.EnsureLink(ctx, in.ChatID, nil)
		return err
	default:
		if _, err := o.store.EnsureLink(ctx, in.ChatID, nil); err != nil {
			return err
		}
		return o.transport.SendText(ctx, in.ChatID, o.text("unknown_command"), 0)
	}
}

func (o *Orchestrator) handleStart(ctx context.Context, in Inbound) error {
	if in.Payload == "" {
		code, err := o.store.EnsureLink(ctx, in.ChatID, nil)
		if err != nil {
			return err
		}
		text := fmt.Sprintf(o.text("welcome"), o.transport.DeepLink(code))
		return o.transport.SendText(ctx, in.ChatID, text, 0)
	}

	recipientID, err := o.store.ResolveLink(ctx, in.Payload)
	if err != nil {
		return err
	}
	if recipientID == nil {
		code, err := o.store.EnsureLink(ctx, in.ChatID, nil)
		if err != nil {
			return err
		}
		text := fmt.Sprintf(o.text("link_invalid"), o.transport.DeepLink(code))
		return o.transport.SendText(ctx, in.ChatID, text, 0)
	}

	// First contact through someone's link also records who invited us.
	if _, err := o.store.EnsureLink(ctx, in.ChatID, recipientID); err != nil {
		return err
	}

	promptID, err := o.transport.PromptForMessage(ctx, in.ChatID, o.text("prompt_message"))
	if err != nil {
		return err
	}
	o.tracker.Set(in.ChatID, dialogue.State{
		Kind:            dialogue.AwaitingMessage,
		RecipientID:     *recipientID,
		PendingPromptID: promptID,
	})
	return nil
}

func (o *Orchestrator) handleContent(ctx context.Context, in Inbound) error {
	code, err := o.store.EnsureLink(ctx, in.ChatID, nil)
	if err != nil {
		return err
	}
	ownLink := o.transport.DeepLink(code)

	state := o.tracker.GetOrDefault(in.ChatID)
	if state.Kind == dialogue.AwaitingMessage {
		return o.handleComposition(ctx, in, state, ownLink)
	}
	return o.handleIdleContent(ctx, in, ownLink)
}

// handleIdleContent covers chats in Start: swipe-replies thread back through
// the ledger, everything else gets the usage hint.
func (o *Orchestrator) handleIdleContent(ctx context.Context, in Inbound, ownLink string) error {
	if in.ReplyToID == 0 {
		text := fmt.Sprintf(o.text("unexpected_message"), ownLink)
		return o.transport.SendText(ctx, in.ChatID, text, 0)
	}

	counterpart, err := o.store.FindCounterpart(ctx, in.ChatID, in.ReplyToID)
	if err != nil {
		return err
	}
	if counterpart == nil {
		return o.transport.SendText(ctx, in.ChatID, o.text("reply_no_counterpart"), 0)
	}

	deliveredID, err := o.relay(ctx, in, counterpart.ChatID, counterpart.MessageID)
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		o.logger.Warnw("reply delivery failed",
			"chat_id", in.ChatID, "recipient", counterpart.ChatID, "reason", deliveryErr.Reason)
		return o.transport.SendText(ctx, in.ChatID, o.text("delivery_failed"), 0)
	}
	if err != nil {
		return err
	}

	if err := o.store.RecordRelay(ctx, in.ChatID, in.MessageID, counterpart.ChatID, deliveredID); err != nil {
		return err
	}
	return o.transport.SendText(ctx, in.ChatID, o.text("message_sent"), 0)
}

// handleComposition covers chats in AwaitingMessage: exactly one content
// message addressed to the remembered recipient. The attempt is consumed
// even when delivery fails, so a chat can never get stuck composing.
func (o *Orchestrator) handleComposition(ctx context.Context, in Inbound, state dialogue.State, ownLink string) error {
	if in.Text != "" && strings.EqualFold(in.Text, o.text("cancel_keyword")) {
		o.cancelComposition(ctx, in.ChatID)
		return o.transport.SendText(ctx, in.ChatID, o.text("sending_cancelled"), 0)
	}

	if in.ReplyToID != 0 {
		// A swipe-reply here is ambiguous; keep waiting for a plain message.
		return o.transport.SendText(ctx, in.ChatID, o.text("reply_while_composing"), 0)
	}

	if !in.HasContent {
		return o.transport.SendText(ctx, in.ChatID, o.text("unsupported_content"), 0)
	}

	o.retractPrompt(ctx, in.ChatID, state.PendingPromptID)
	o.tracker.Reset(in.ChatID)

	deliveredID, err := o.relay(ctx, in, state.RecipientID, 0)
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		o.logger.Warnw("anonymous message delivery failed",
			"chat_id", in.ChatID, "recipient", state.RecipientID, "reason", deliveryErr.Reason)
		return o.transport.SendText(ctx, in.ChatID, o.text("delivery_failed"), 0)
	}
	if err != nil {
		return err
	}

	if err := o.store.RecordRelay(ctx, in.ChatID, in.MessageID, state.RecipientID, deliveredID); err != nil {
		return err
	}
	text := fmt.Sprintf(o.text("message_sent_with_link"), ownLink)
	return o.transport.SendText(ctx, in.ChatID, text, 0)
}

// relay delivers the source content to dest, gating the reply affordance on
// the recipient's tip flag.
func (o *Orchestrator) relay(ctx context.Context, in Inbound, dest int64, replyTo int) (int, error) {
	tip, err := o.store.AnswerTipEnabled(ctx, dest)
	if errors.Is(err, storage.ErrNotFound) {
		// Should not occur for ledgered recipients; show the tip anyway.
		tip = true
	} else if err != nil {
		return 0, err
	}
	return o.transport.RelayContent(ctx, ContentRef{ChatID: in.ChatID, MessageID: in.MessageID}, dest, replyTo, tip)
}

// cancelComposition retracts the prompt and resets the chat to Start.
// Reports whether a composition was actually pending.
func (o *Orchestrator) cancelComposition(ctx context.Context, chatID int64) bool {
	state := o.tracker.GetOrDefault(chatID)
	if state.Kind != dialogue.AwaitingMessage {
		return false
	}
	o.retractPrompt(ctx, chatID, state.PendingPromptID)
	o.tracker.Reset(chatID)
	return true
}

func (o *Orchestrator) retractPrompt(ctx context.Context, chatID int64, promptID int) {
	if promptID == 0 {
		return
	}
	if err := o.transport.RetractPrompt(ctx, chatID, promptID); err != nil {
		o.logger.Warnw("failed to retract prompt", "chat_id", chatID, "prompt_id", promptID, "err", err)
	}
}

func (o *Orchestrator) answerCallback(ctx context.Context, callbackID, text string) {
	if err := o.transport.AnswerCallback(ctx, callbackID, text); err != nil {
		o.logger.Warnw("failed to answer callback", "callback_id", callbackID, "err", err)
	}
}

func (o *Orchestrator) text(key string) string {
	return o.loc.GetString(o.lang, key)
}
