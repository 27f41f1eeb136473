// Package health probes each logical service over the network and
// classifies the outcome. Probing never fails outright: transport errors,
// timeouts, and unknown service names all fold into a classification value,
// because a monitoring read must always produce an answer.
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State classifies a single probe outcome. The classification is total:
// every outcome maps to exactly one state.
type State int

const (
	// Healthy: the probe completed with a success status.
	Healthy State = iota
	// Degraded: the probe completed but the endpoint reported a
	// server-side error (500–599).
	Degraded
	// Unhealthy: the probe did not complete (transport failure, timeout,
	// unknown service) or returned any other non-success status.
	Unhealthy
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	default:
		return "unhealthy"
	}
}

// Status is the result of one probe invocation. Immutable after creation.
type Status struct {
	Service   string
	State     State
	LatencyMS uint64 // wall-clock probe duration, measured on every path
	Details   string // reserved for richer diagnostics
}

// DefaultTimeout bounds each probe's network call.
const DefaultTimeout = 5 * time.Second

// endpoint describes where a service's health probe goes. Every service in
// the catalog has exactly one entry; classification stays single-sourced in
// Check rather than duplicated per service.
type endpoint struct {
	subdomain string
	path      string
	websocket bool
}

var endpoints = map[string]endpoint{
	"pds":            {subdomain: "pds", path: "/xrpc/_health"},
	"plc":            {subdomain: "plc", path: "/health"},
	"appview":        {subdomain: "appview", path: "/xrpc/_health"},
	"bgs":            {subdomain: "bgs", path: "/health"},
	"social-app":     {subdomain: "social-app", path: "/"},
	"ozone":          {subdomain: "ozone", path: "/health"},
	"feed-generator": {subdomain: "feed-generator", path: "/health"},
	"jetstream":      {subdomain: "jetstream", path: "/subscribe", websocket: true},
}

// EndpointFor returns the public base URL for a recognized service, or ""
// for an unknown name.
func EndpointFor(service, domain string) string {
	ep, ok := endpoints[service]
	if !ok {
		return ""
	}
	scheme := "https"
	if ep.websocket {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s.%s", scheme, ep.subdomain, domain)
}

// Prober issues one bounded health call per service. It is state-free
// between calls: no retries, no backoff, no caching. Probes for different
// services are independent and safe to run concurrently.
type Prober struct {
	domain string
	client *http.Client
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the probe logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithHTTPClient overrides the probe HTTP client (used by tests to point
// probes at a local server).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Prober) { p.dialer = d }
}

// NewProber returns a Prober for services under the given domain.
// Certificate validation is relaxed: this is operator tooling for
// self-hosted deployments that commonly run on self-signed certificates,
// not a general-purpose client policy.
func NewProber(domain string, opts ...Option) *Prober {
	insecure := &tls.Config{InsecureSkipVerify: true}
	p := &Prober{
		domain: domain,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &http.Transport{TLSClientConfig: insecure},
		},
		dialer: &websocket.Dialer{
			TLSClientConfig:  insecure,
			HandshakeTimeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check probes one service and classifies the result. It never returns an
// error; latency is measured around the network call on every path,
// including failures.
func (p *Prober) Check(ctx context.Context, service string) Status {
	ep, ok := endpoints[service]
	if !ok {
		p.logger.Warn().Str("service", service).Msg("unknown service")
		return Status{Service: service, State: Unhealthy}
	}

	start := time.Now()
	var state State
	if ep.websocket {
		state = p.checkWebsocket(ctx, ep)
	} else {
		state = p.checkHTTP(ctx, ep)
	}
	latency := uint64(time.Since(start).Milliseconds())

	p.logger.Debug().
		Str("service", service).
		Stringer("state", state).
		Uint64("latency_ms", latency).
		Msg("probe complete")

	return Status{Service: service, State: state, LatencyMS: latency}
}

func (p *Prober) checkHTTP(ctx context.Context, ep endpoint) State {
	url := fmt.Sprintf("https://%s.%s%s", ep.subdomain, p.domain, ep.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unhealthy
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Unhealthy
	}
	resp.Body.Close()
	return classify(resp.StatusCode)
}

// checkWebsocket probes a streaming service with a handshake. A completed
// handshake is healthy; a handshake rejected with a server error status is
// degraded, the same rule as the HTTP path.
func (p *Prober) checkWebsocket(ctx context.Context, ep endpoint) State {
	url := fmt.Sprintf("wss://%s.%s%s", ep.subdomain, p.domain, ep.path)
	conn, resp, err := p.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode >= 500 && resp.StatusCode < 600 {
				return Degraded
			}
		}
		return Unhealthy
	}
	conn.Close()
	if resp != nil {
		resp.Body.Close()
	}
	return Healthy
}

// classify maps an HTTP status code to a health state: success range is
// healthy, server-error range is degraded, everything else is unhealthy.
func classify(code int) State {
	switch {
	case code >= 200 && code < 300:
		return Healthy
	case code >= 500 && code < 600:
		return Degraded
	default:
		return Unhealthy
	}
}
