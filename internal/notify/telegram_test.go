package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("test-token", srv.URL, time.Second, zerolog.Nop())
	if err := tg.Send(context.Background(), "12345", "hello"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotBody["chat_id"] != "12345" || gotBody["text"] != "hello" {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
	if gotBody["parse_mode"] != "HTML" {
		t.Fatalf("parse mode must match the formatter output, got %q", gotBody["parse_mode"])
	}
}

func TestTelegramSendNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"description":"Too Many Requests"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("test-token", srv.URL, time.Second, zerolog.Nop())
	err := tg.Send(context.Background(), "12345", "hello")
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "Too Many Requests") {
		t.Fatalf("error should carry status and body snippet: %v", err)
	}
}

func TestTelegramSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()

	tg := NewTelegram("test-token", srv.URL, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tg.Send(ctx, "12345", "hello")
	// unblock the handler so the server can shut down
	close(release)
	if err == nil {
		t.Fatalf("expected context deadline error")
	}
}
