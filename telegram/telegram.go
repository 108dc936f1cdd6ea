package telegram

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gidra39/clearml-results/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	tb "gopkg.in/tucnak/telebot.v2"
)

// contextTransport binds every request the bot makes to ctx, since
// telebot.v2 has no context-aware API.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func SendTelegramNotification(ctx context.Context, message string, cfg config.Config) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "telegram notification not sent")
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		return errors.New("telegram bot token or chat id is not configured")
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid telegram chat id %q", cfg.TelegramChatID)
	}

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout(),
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
	}

	// Offline skips the getMe handshake; the bot is only used to send.
	bot, err := tb.NewBot(tb.Settings{
		URL:     cfg.TelegramAPIURL,
		Token:   cfg.TelegramBotToken,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create telegram bot")
	}

	if _, err := bot.Send(&tb.Chat{ID: chatID}, message); err != nil {
		return errors.Wrap(err, "failed to send Telegram notification")
	}

	log.Info().Int64("chat_id", chatID).Msg("successfully sent Telegram notification")
	return nil
}
