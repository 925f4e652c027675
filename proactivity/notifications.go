package proactivity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/retry"
)

// DefaultTelegramURL is the Bot API endpoint.
const DefaultTelegramURL = "https://api.telegram.org"

// Notifier delivers one reminder message.
type Notifier interface {
	Send(ctx context.Context, message, priority string) error
}

// NewNotifier returns a Telegram notifier, or a LogNotifier when token or
// chatID is empty.
func NewNotifier(token, chatID string, logger *log.Logger) Notifier {
	if logger == nil {
		logger = log.Default()
	}
	if token == "" || chatID == "" {
		logger.Printf("[PROACTIVITY] Telegram not configured (missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID)")
		return &LogNotifier{Logger: logger}
	}
	logger.Printf("[PROACTIVITY] Telegram notifications enabled")
	n := NewTelegramNotifier(token, chatID)
	n.Logger = logger
	return n
}

// LogNotifier only logs what it would send.
type LogNotifier struct {
	Logger *log.Logger
}

func (n *LogNotifier) Send(ctx context.Context, message, priority string) error {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[PROACTIVITY] [SIMULATED] Would send (%s): %s", priority, message)
	return nil
}

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	Token      string
	ChatID     string
	BaseURL    string
	Timeout    time.Duration
	Retry      retry.Policy
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewTelegramNotifier creates a notifier for one chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		Token:      token,
		ChatID:     chatID,
		BaseURL:    DefaultTelegramURL,
		Timeout:    10 * time.Second,
		Retry:      retry.Default(),
		HTTPClient: &http.Client{},
		Logger:     log.Default(),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send calls sendMessage. Client errors are not retried.
func (n *TelegramNotifier) Send(ctx context.Context, message, priority string) error {
	body, err := json.Marshal(telegramMessage{ChatID: n.ChatID, Text: message, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.BaseURL, "/"), n.Token)

	err = n.Retry.Do(ctx, func(ctx context.Context) error {
		if n.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, n.Timeout)
			defer cancel()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		n.Logger.Printf("[PROACTIVITY] Telegram API error: %v", err)
		return err
	}
	n.Logger.Printf("[PROACTIVITY] Notification sent (%s): %s", priority, truncate(message, 50))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
