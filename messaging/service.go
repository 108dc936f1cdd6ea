package messaging

import (
	"context"
	"strings"

	"github.com/gidra39/clearml-results/config"
	"github.com/gidra39/clearml-results/slack"
	"github.com/gidra39/clearml-results/telegram"

	"github.com/rs/zerolog/log"
)

const (
	ChannelTelegram = "TELEGRAM"
	ChannelSlack    = "SLACK"
	ChannelBoth     = "BOTH"
)

// Senders are swapped out in tests.
var (
	sendTelegram = telegram.SendTelegramNotification
	sendSlack    = slack.SendSlackNotification
)

// SendNotification delivers message over the configured channels. With BOTH
// it fails only when every channel fails.
func SendNotification(ctx context.Context, message string, cfg config.Config) error {
	channels := strings.ToUpper(cfg.MessageChannels)
	if channels == "" {
		channels = ChannelTelegram
	}

	var telegramErr, slackErr error

	if channels == ChannelTelegram || channels == ChannelBoth {
		telegramErr = sendTelegram(ctx, message, cfg)
	}

	if channels == ChannelSlack || channels == ChannelBoth {
		slackErr = sendSlack(ctx, message, cfg)
	}

	switch channels {
	case ChannelBoth:
		if telegramErr != nil && slackErr != nil {
			return telegramErr
		}
		if telegramErr != nil {
			log.Warn().Err(telegramErr).Msg("telegram notification failed, slack succeeded")
		}
		if slackErr != nil {
			log.Warn().Err(slackErr).Msg("slack notification failed, telegram succeeded")
		}
		return nil
	case ChannelTelegram:
		return telegramErr
	case ChannelSlack:
		return slackErr
	}

	return nil
}
