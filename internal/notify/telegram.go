// Package notify delivers formatted signal messages over push transports.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Transport is the outbound messaging collaborator. Implementations must honor the
// context deadline; the broadcast engine bounds every call.
type Transport interface {
	Send(ctx context.Context, recipientID, text string) error
}

const defaultTelegramBase = "https://api.telegram.org"

// Telegram sends messages through the Bot API sendMessage endpoint.
type Telegram struct {
	base  string
	token string
	http  *http.Client
	log   zerolog.Logger
}

// NewTelegram builds a transport with a bounded-timeout HTTP client.
func NewTelegram(token, baseURL string, timeout time.Duration, log zerolog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		base:  baseURL,
		token: token,
		http:  &http.Client{Timeout: timeout},
		log:   log,
	}
}

// Send posts one message to a chat. HTML parse mode matches the formatter output.
func (t *Telegram) Send(ctx context.Context, recipientID, text string) error {
	payload := map[string]string{
		"chat_id":    recipientID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram sendMessage status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
