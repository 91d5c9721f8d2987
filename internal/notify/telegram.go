package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kraken-trader/pkg/utils"
)

// Telegram sends messages through the Telegram bot API.
type Telegram struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegram creates a Telegram channel for the given bot token and
// chat id.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel name.
func (t *Telegram) Name() string { return "telegram" }

// Send posts the message via the bot API, retrying transient failures.
func (t *Telegram) Send(message string) error {
	return utils.Retry(context.Background(), utils.DefaultRetryConfig(), func() error {
		return t.post(message)
	})
}

func (t *Telegram) post(message string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {message},
	}

	resp, err := t.client.Post(endpoint,
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	return nil
}
