// Package ready gates external reachability of a deployment with a staged
// check: DNS resolution, then HTTPS, then WebSocket. The gate is purely
// diagnostic. It never mutates state and is safe to call repeatedly.
package ready

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// DNSTimeout bounds the address lookup: a single attempt, no retry.
	DNSTimeout = 2 * time.Second

	// HTTPTimeout bounds the HTTPS and WebSocket stages.
	HTTPTimeout = 5 * time.Second
)

// Result holds the outcome of each stage. Stages are independent: one
// failing never blocks the others from being evaluated.
type Result struct {
	DNS       bool
	HTTPS     bool
	WebSocket bool
}

// Gate runs the staged reachability checks against a domain. Stage
// failures, including timeouts, are ordinary boolean outcomes, never
// errors.
type Gate struct {
	resolver *net.Resolver
	client   *http.Client
	dialer   *websocket.Dialer
	logger   zerolog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithResolver overrides the DNS resolver.
func WithResolver(r *net.Resolver) Option {
	return func(g *Gate) { g.resolver = r }
}

// WithHTTPClient overrides the HTTPS stage client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) { g.client = c }
}

// WithDialer overrides the WebSocket stage dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(g *Gate) { g.dialer = d }
}

// NewGate returns a Gate with relaxed certificate validation, matching the
// health prober's trust posture for self-hosted deployments.
func NewGate(opts ...Option) *Gate {
	insecure := &tls.Config{InsecureSkipVerify: true}
	g := &Gate{
		resolver: net.DefaultResolver,
		client: &http.Client{
			Timeout:   HTTPTimeout,
			Transport: &http.Transport{TLSClientConfig: insecure},
		},
		dialer: &websocket.Dialer{
			TLSClientConfig:  insecure,
			HandshakeTimeout: HTTPTimeout,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check runs all three stages. Each stage is attempted regardless of the
// others' outcomes.
func (g *Gate) Check(ctx context.Context, domain string) Result {
	return Result{
		DNS:       g.CheckDNS(ctx, domain),
		HTTPS:     g.CheckHTTPS(ctx, domain),
		WebSocket: g.CheckWebSocket(ctx, domain),
	}
}

// CheckDNS resolves the domain and passes when at least one returned record
// is a well-formed IPv4 address.
func (g *Gate) CheckDNS(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, DNSTimeout)
	defer cancel()

	addrs, err := g.resolver.LookupHost(ctx, domain)
	if err != nil {
		g.logger.Debug().Err(err).Str("domain", domain).Msg("dns lookup failed")
		return false
	}
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return true
		}
	}
	return false
}

// CheckHTTPS issues a GET to the conventional debug endpoint with redirects
// followed; it passes when the call completes with a non-error status.
func (g *Gate) CheckHTTPS(ctx context.Context, domain string) bool {
	url := fmt.Sprintf("https://test-wss.%s/", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug().Err(err).Str("url", url).Msg("https check failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// CheckWebSocket attempts a handshake against the conventional debug
// endpoint; it passes when the handshake completes.
func (g *Gate) CheckWebSocket(ctx context.Context, domain string) bool {
	url := fmt.Sprintf("wss://test-wss.%s/ws", domain)
	conn, resp, err := g.dialer.DialContext(ctx, url, nil)
	if err != nil {
		g.logger.Debug().Err(err).Str("url", url).Msg("websocket check failed")
		if resp != nil {
			resp.Body.Close()
		}
		return false
	}
	conn.Close()
	if resp != nil {
		resp.Body.Close()
	}
	return true
}
