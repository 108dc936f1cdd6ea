package slack

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gidra39/clearml-results/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SlackMessage struct {
	Text string `json:"text"`
}

func SendSlackNotification(ctx context.Context, message string, cfg config.Config) error {
	if cfg.SlackWebhookURL == "" {
		return errors.New("slack webhook URL is not configured")
	}

	payload, err := json.Marshal(SlackMessage{Text: message})
	if err != nil {
		return errors.Wrap(err, "failed to marshal slack message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.SlackWebhookURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: cfg.HTTPTimeout()}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send Slack notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("Slack API returned status code %d: %s", resp.StatusCode, string(body))
	}

	log.Info().Msg("successfully sent Slack notification")
	return nil
}
