// Package telegram integrates with the Telegram Bot API: it receives updates
// over long polling, translates them into transport-agnostic events for the
// relay orchestrator, and implements the outbound transport by copying
// messages type-preserving.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"whisperlink/backend/internal/localization"
	"whisperlink/backend/internal/relay"
)

// Handler consumes the translated inbound events. Implemented by the relay
// orchestrator.
type Handler interface {
	HandleInbound(ctx context.Context, in relay.Inbound)
	HandleCallback(ctx context.Context, cb relay.Callback)
}

// BotService owns the Bot API connection and the update loop.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Localizer *localization.Localizer
	lang      string
	logger    *zap.SugaredLogger
}

// NewBotService authorizes against the Bot API and returns the service.
func NewBotService(token string, loc *localization.Localizer, lang string, debug bool, logger *zap.SugaredLogger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = debug
	logger.Infow("authorized on telegram", "username", bot.Self.UserName)

	return &BotService{
		BotAPI:    bot,
		Localizer: loc,
		lang:      lang,
		logger:    logger,
	}, nil
}

// Run is the main loop for receiving Telegram updates. Each update is
// dispatched on its own goroutine; per-chat ordering is enforced further
// down by the orchestrator's dialogue lanes.
func (s *BotService) Run(ctx context.Context, h Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.dispatch(ctx, h, update)
		}
	}
}

func (s *BotService) dispatch(ctx context.Context, h Handler, update tgbotapi.Update) {
	log := s.logger.With("update", uuid.NewString())

	switch {
	case update.Message != nil:
		in := mapInbound(update.Message)
		log.Debugw("inbound message",
			"chat_id", in.ChatID, "message_id", in.MessageID,
			"command", in.Command, "reply_to", in.ReplyToID)
		go h.HandleInbound(ctx, in)

	case update.CallbackQuery != nil:
		cb, ok := mapCallback(update.CallbackQuery)
		if !ok {
			log.Debugw("callback without message context", "callback_id", update.CallbackQuery.ID)
			return
		}
		log.Debugw("inbound callback", "chat_id", cb.ChatID, "action", cb.Action)
		go h.HandleCallback(ctx, cb)
	}
}

func (s *BotService) text(key string) string {
	return s.Localizer.GetString(s.lang, key)
}
