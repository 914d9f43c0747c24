package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
)

func testTelegram(t *testing.T, handler http.Handler) *Telegram {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BotToken = "token"
	cfg.ChatID = "42"
	tg := NewTelegram(cfg, zerolog.Nop())
	tg.apiBase = srv.URL
	tg.backoff = time.Millisecond
	return tg
}

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotChatID, gotText string
	tg := testTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.Write([]byte(`{"ok": true}`))
	}))

	err := tg.Send(context.Background(), Intent{Body: "room available"})
	require.NoError(t, err)
	assert.Equal(t, "/bottoken/sendMessage", gotPath)
	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, "room available", gotText)
}

func TestTelegramSendRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	tg := testTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok": false, "description": "bad gateway"}`))
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))

	require.NoError(t, tg.Send(context.Background(), Intent{Body: "hi"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegramSendDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int32
	tg := testTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok": false, "description": "Unauthorized"}`))
	}))

	err := tg.Send(context.Background(), Intent{Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
	assert.Equal(t, int32(1), calls.Load())
}
