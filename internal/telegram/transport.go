package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"whisperlink/backend/internal/relay"
)

// BotService implements relay.Transport. The Bot API client has no context
// support of its own; ctx is accepted for the interface contract.

// DeepLink renders the t.me deep link carrying a link code.
func (s *BotService) DeepLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", s.BotAPI.Self.UserName, code)
}

// RelayContent copies the source message to the destination chat. Copying
// (as opposed to forwarding) keeps the content type but drops the sender
// header, which is what keeps the relay anonymous.
func (s *BotService) RelayContent(_ context.Context, src relay.ContentRef, destChatID int64, replyTo int, withReplyTip bool) (int, error) {
	cfg := tgbotapi.NewCopyMessage(destChatID, src.ChatID, src.MessageID)
	if replyTo != 0 {
		cfg.ReplyToMessageID = replyTo
		// The counterpart message may have been deleted by its owner.
		cfg.AllowSendingWithoutReply = true
	}
	if withReplyTip {
		cfg.ReplyMarkup = s.replyTipKeyboard()
	}

	sent, err := s.BotAPI.CopyMessage(cfg)
	if err != nil {
		return 0, &relay.DeliveryError{Reason: err.Error()}
	}
	return sent.MessageID, nil
}

// SendText sends a plain service text.
func (s *BotService) SendText(_ context.Context, chatID int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
	}
	_, err := s.BotAPI.Send(msg)
	return err
}

// PromptForMessage shows the composition prompt with an inline cancel button.
func (s *BotService) PromptForMessage(_ context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.text("btn_cancel"), relay.ActionCancel),
		),
	)
	sent, err := s.BotAPI.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// RetractPrompt deletes a prompt message, taking its cancel button with it.
func (s *BotService) RetractPrompt(_ context.Context, chatID int64, promptID int) error {
	_, err := s.BotAPI.Request(tgbotapi.NewDeleteMessage(chatID, promptID))
	return err
}

// AnswerCallback acknowledges a callback query with a transient notice.
func (s *BotService) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := s.BotAPI.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// replyTipKeyboard is the affordance attached to delivered copies: one button
// explaining how to answer, one muting the hint for good.
func (s *BotService) replyTipKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.text("btn_reply"), relay.ActionReply),
			tgbotapi.NewInlineKeyboardButtonData(s.text("btn_hide_tip"), relay.ActionHideTip),
		),
	)
}
