// Package bot relays curated job digests over Telegram. It is presentation
// glue: every read goes through the digest usecase, the bot itself owns no
// job state beyond its long-poll cursor.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type TelegramClient interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, html string) error
}

type httpTelegramClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTelegramClient returns nil when no token is configured.
func NewTelegramClient(token string) TelegramClient {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return &httpTelegramClient{
		baseURL: telegramAPIBase,
		token:   token,
		// Long polls block up to 30s server-side; leave headroom.
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *httpTelegramClient) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("nil telegram client")
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("telegram %s failed: status=%d body=%s", method, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("telegram %s decode: %w", method, err)
	}
	if !env.OK {
		desc := env.Description
		if desc == "" {
			desc = "unknown"
		}
		return nil, fmt.Errorf("telegram %s not ok: %s", method, desc)
	}
	return env.Result, nil
}

func (c *httpTelegramClient) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeoutSeconds))
	params.Set("allowed_updates", `["message"]`)

	raw, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("telegram getUpdates decode: %w", err)
	}
	return updates, nil
}

func (c *httpTelegramClient) SendMessage(ctx context.Context, chatID int64, html string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", html)
	params.Set("parse_mode", "HTML")
	params.Set("disable_web_page_preview", "true")

	_, err := c.call(ctx, "sendMessage", params)
	return err
}

var _ TelegramClient = (*httpTelegramClient)(nil)
