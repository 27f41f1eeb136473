package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mekaem/atc/api"
)

func TestSubscribe_DeliversMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var gotQuery []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribe" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		gotQuery = r.URL.Query()["wantedCollections"]
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"commit","seq":1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"commit","seq":2}`))
		// Hold the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := &api.JetstreamClient{
		BaseURL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var messages []string
	err := client.Subscribe(ctx, []string{"app.bsky.feed.post", "app.bsky.feed.like"}, func(m []byte) {
		messages = append(messages, string(m))
		if len(messages) == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("cancellation should be a clean shutdown: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if !strings.Contains(messages[0], `"seq":1`) {
		t.Errorf("first message = %q", messages[0])
	}
	mu.Lock()
	defer mu.Unlock()
	if len(gotQuery) != 2 || gotQuery[0] != "app.bsky.feed.post" {
		t.Errorf("wantedCollections = %v", gotQuery)
	}
}

func TestSubscribe_ConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	client := &api.JetstreamClient{BaseURL: base}
	err := client.Subscribe(context.Background(), nil, func([]byte) {})
	if err == nil || !strings.Contains(err.Error(), "connect to jetstream") {
		t.Errorf("err = %v, want connect failure", err)
	}
}

func TestSubscribe_ServerCloseIsAnError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	client := &api.JetstreamClient{
		BaseURL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}
	err := client.Subscribe(context.Background(), nil, func([]byte) {})
	if err == nil {
		t.Error("a dropped connection without cancellation should surface as an error")
	}
}

func TestStandardCollections(t *testing.T) {
	if len(api.StandardCollections) != 8 {
		t.Fatalf("got %d collections, want 8", len(api.StandardCollections))
	}
	for _, col := range api.StandardCollections {
		if !strings.HasPrefix(col, "app.bsky.") {
			t.Errorf("collection %q outside the app.bsky namespace", col)
		}
	}
}

func TestNewJetstreamClient_BaseURL(t *testing.T) {
	client := api.NewJetstreamClient("example.com")
	if client.BaseURL != "wss://jetstream.example.com" {
		t.Errorf("base URL = %q", client.BaseURL)
	}
}
