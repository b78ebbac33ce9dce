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
	"unicode/utf8"
)

// DiscordMessageLimit is the maximum content length of a Discord message.
const DiscordMessageLimit = 2000

// DiscordPublisher posts reports to Discord channels through incoming webhooks.
type DiscordPublisher struct {
	Webhooks   map[string]string // channel name -> webhook URL
	Username   string
	Client     *http.Client
	MaxRetries int
	Backoff    time.Duration
}

// NewDiscordPublisher creates a publisher with optional proxy support.
func NewDiscordPublisher(webhooks map[string]string, username, proxyURL string) *DiscordPublisher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &DiscordPublisher{
		Webhooks: webhooks,
		Username: username,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// Publish sends text to the webhook of destination, split into as many
// messages as the Discord length limit requires.
func (d *DiscordPublisher) Publish(ctx context.Context, destination, text string) error {
	hook, ok := d.Webhooks[destination]
	if !ok || hook == "" {
		return fmt.Errorf("discord: %w: %s", ErrUnknownDestination, destination)
	}
	for i, chunk := range SplitMessage(text, DiscordMessageLimit) {
		err := sendWithRetry(ctx, "discord", d.MaxRetries, d.Backoff, func() error {
			return d.send(ctx, hook, chunk)
		})
		if err != nil {
			return fmt.Errorf("discord %s part %d: %w", destination, i+1, err)
		}
	}
	return nil
}

func (d *DiscordPublisher) send(ctx context.Context, hook, content string) error {
	payload := map[string]string{"content": content}
	if d.Username != "" {
		payload["username"] = d.Username
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

const fence = "```"

// SplitMessage breaks text into chunks of at most limit runes on line
// boundaries. A code block cut by a split is closed at the end of one chunk
// and reopened at the start of the next.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	budget := limit - len("\n"+fence)
	reopen := fence + "\n"

	var (
		chunks  []string
		cur     strings.Builder
		curLen  int
		inFence bool
	)
	flush := func() {
		s := strings.TrimRight(cur.String(), "\n")
		if inFence {
			s += "\n" + fence
		}
		if strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
		if inFence {
			cur.WriteString(reopen)
			curLen = len(reopen)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for _, piece := range hardWrap(line, budget-2*len(reopen)) {
			n := utf8.RuneCountInString(piece) + 1
			if curLen+n > budget {
				flush()
			}
			cur.WriteString(piece)
			cur.WriteString("\n")
			curLen += n
		}
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inFence = !inFence
		}
	}
	if s := strings.TrimRight(cur.String(), "\n"); strings.TrimSpace(s) != "" && s != strings.TrimRight(reopen, "\n") {
		chunks = append(chunks, s)
	}
	return chunks
}

func hardWrap(line string, width int) []string {
	if width <= 0 || utf8.RuneCountInString(line) <= width {
		return []string{line}
	}
	var out []string
	runes := []rune(line)
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	return append(out, string(runes))
}
