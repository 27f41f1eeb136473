package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StandardCollections are the well-known collections available on a
// Jetstream instance.
var StandardCollections = []string{
	"app.bsky.actor.profile",
	"app.bsky.feed.like",
	"app.bsky.feed.post",
	"app.bsky.feed.repost",
	"app.bsky.graph.follow",
	"app.bsky.graph.block",
	"app.bsky.graph.muteActor",
	"app.bsky.graph.unmuteActor",
}

// JetstreamClient subscribes to the deployment's event stream.
type JetstreamClient struct {
	// BaseURL is the Jetstream websocket origin, e.g.
	// "wss://jetstream.example.com".
	BaseURL string

	// Dialer overrides the websocket dialer. If nil, a relaxed-TLS
	// dialer with a 10s handshake timeout is used.
	Dialer *websocket.Dialer

	Logger zerolog.Logger
}

// NewJetstreamClient returns a client for the Jetstream instance under the
// given domain.
func NewJetstreamClient(domain string) *JetstreamClient {
	return &JetstreamClient{
		BaseURL: fmt.Sprintf("wss://jetstream.%s", domain),
		Logger:  zerolog.Nop(),
	}
}

func (c *JetstreamClient) dialer() *websocket.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &websocket.Dialer{
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
		HandshakeTimeout: 10 * time.Second,
	}
}

// Subscribe connects to the event stream filtered to the given collections
// and delivers each raw message to fn until the context ends or the
// connection drops. A context cancellation is a clean shutdown, not an
// error.
func (c *JetstreamClient) Subscribe(ctx context.Context, collections []string, fn func(message []byte)) error {
	query := url.Values{}
	for _, col := range collections {
		query.Add("wantedCollections", col)
	}
	subscribeURL := c.BaseURL + "/subscribe"
	if len(query) > 0 {
		subscribeURL += "?" + query.Encode()
	}
	c.Logger.Debug().Str("url", subscribeURL).Msg("subscribing to jetstream")

	conn, resp, err := c.dialer().DialContext(ctx, subscribeURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("connect to jetstream: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	// Unblock ReadMessage when the caller gives up.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		fn(message)
	}
}
