package slack

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gidra39/clearml-results/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSlackNotification(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	err := SendSlackNotification(context.Background(), "Task detector finished", config.Config{SlackWebhookURL: server.URL})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": "Task detector finished"}`, body)
}

func TestSendSlackNotificationErrors(t *testing.T) {
	err := SendSlackNotification(context.Background(), "hi", config.Config{})
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "invalid_token")
	}))
	defer server.Close()

	err = SendSlackNotification(context.Background(), "hi", config.Config{SlackWebhookURL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid_token")
}
