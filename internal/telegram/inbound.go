package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"whisperlink/backend/internal/relay"
)

// mapInbound translates a Telegram message into the transport-agnostic shape
// the orchestrator consumes.
func mapInbound(msg *tgbotapi.Message) relay.Inbound {
	in := relay.Inbound{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}

	// Only replies within the same chat count as threading gestures.
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.Chat != nil &&
		msg.ReplyToMessage.Chat.ID == msg.Chat.ID {
		in.ReplyToID = msg.ReplyToMessage.MessageID
	}

	if msg.IsCommand() {
		in.IsCommand = true
		in.Command = strings.ToLower(msg.Command())
		in.Payload = strings.TrimSpace(msg.CommandArguments())
		return in
	}

	in.HasContent = hasDeliverableContent(msg)
	return in
}

// mapCallback translates a callback query. Queries without an attached
// message (e.g. from inline-mode results) carry no chat to act on.
func mapCallback(q *tgbotapi.CallbackQuery) (relay.Callback, bool) {
	if q.Message == nil || q.Message.Chat == nil {
		return relay.Callback{}, false
	}
	return relay.Callback{
		ID:        q.ID,
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		Action:    q.Data,
	}, true
}

// hasDeliverableContent reports whether the message carries anything the
// copy-based relay can deliver. The orchestrator never looks deeper than this.
func hasDeliverableContent(msg *tgbotapi.Message) bool {
	switch {
	case msg.Text != "":
		return true
	case len(msg.Photo) > 0:
		return true
	case msg.Video != nil, msg.VideoNote != nil, msg.Animation != nil:
		return true
	case msg.Voice != nil, msg.Audio != nil:
		return true
	case msg.Sticker != nil, msg.Document != nil:
		return true
	case msg.Contact != nil, msg.Location != nil, msg.Venue != nil:
		return true
	case msg.Poll != nil, msg.Dice != nil:
		return true
	default:
		return false
	}
}
