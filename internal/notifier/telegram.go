package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/util"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Bot API. Sends are rate limited to
// stay under the API's per-chat ceiling.
type Telegram struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	limiter *rate.Limiter
	backoff time.Duration
	log     zerolog.Logger
}

func NewTelegram(cfg config.Config, log zerolog.Logger) *Telegram {
	client := &http.Client{Timeout: 15 * time.Second}
	if cfg.EnableProxy && cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		} else {
			log.Warn().Err(err).Msg("invalid proxy url, telegram will connect directly")
		}
	}
	return &Telegram{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		apiBase: telegramAPIBase,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		backoff: time.Second,
		log:     log,
	}
}

func (t *Telegram) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers the intent body, retrying transport errors, 429 and 5xx
// with backoff. API-level rejections (bad token, bad chat id) fail fast.
func (t *Telegram) Send(ctx context.Context, intent Intent) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return util.Retry(ctx, 3, t.backoff, func(int) (bool, error) {
		return t.sendOnce(ctx, intent.Body)
	})
}

func (t *Telegram) sendOnce(ctx context.Context, text string) (bool, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500

	body, _ := io.ReadAll(resp.Body)
	var parsed telegramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return retryable, fmt.Errorf("telegram returned non-JSON (HTTP %d)", resp.StatusCode)
	}
	if !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return retryable, fmt.Errorf("telegram rejected message: %s", desc)
	}
	return false, nil
}
