package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramMessageLimit is the maximum length of a Telegram text message.
const TelegramMessageLimit = 4096

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string            // default chat
	Chats      map[string]string // destination -> chat id overrides
	APIBase    string
	Client     *http.Client
	MaxRetries int
	Backoff    time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID string, chats map[string]string, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Chats:    chats,
		APIBase:  "https://api.telegram.org",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

func (t *TelegramNotifier) chatFor(destination string) string {
	if id, ok := t.Chats[destination]; ok && id != "" {
		return id
	}
	return t.ChatID
}

// Publish sends text to the chat routed for destination.
func (t *TelegramNotifier) Publish(ctx context.Context, destination, text string) error {
	chat := t.chatFor(destination)
	if chat == "" {
		return fmt.Errorf("telegram: %w: %s", ErrUnknownDestination, destination)
	}
	for i, chunk := range SplitMessage(text, TelegramMessageLimit) {
		err := sendWithRetry(ctx, "telegram", t.MaxRetries, t.Backoff, func() error {
			return t.Send(ctx, chat, chunk)
		})
		if err != nil {
			return fmt.Errorf("telegram %s part %d: %w", destination, i+1, err)
		}
	}
	return nil
}

// Send sends a plain-text message to chatID.
func (t *TelegramNotifier) Send(ctx context.Context, chatID, text string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.APIBase, "/"), t.BotToken)
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
