// Package api holds thin clients for the deployed services themselves: the
// PDS account endpoint and the Jetstream event stream.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PDSClient talks to the personal data server's XRPC surface. Certificate
// validation is relaxed for self-signed deployments, matching the rest of
// the operator tooling.
type PDSClient struct {
	// BaseURL is the PDS origin, e.g. "https://pds.example.com".
	BaseURL string

	// HTTP is the underlying client. If nil, a relaxed-TLS client with a
	// 10s timeout is used.
	HTTP *http.Client

	Logger zerolog.Logger
}

// NewPDSClient returns a client for the PDS under the given domain.
func NewPDSClient(domain string) *PDSClient {
	return &PDSClient{
		BaseURL: fmt.Sprintf("https://pds.%s", domain),
		Logger:  zerolog.Nop(),
	}
}

func (c *PDSClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// Account is a created PDS account.
type Account struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

type createAccountRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAccount registers a new account on the PDS. On a non-success
// response the server's own error text is carried in the returned error.
func (c *PDSClient) CreateAccount(ctx context.Context, handle, email, password string) (Account, error) {
	url := c.BaseURL + "/xrpc/com.atproto.server.createAccount"
	c.Logger.Debug().Str("url", url).Str("handle", handle).Msg("creating account")

	body, err := json.Marshal(createAccountRequest{Handle: handle, Email: email, Password: password})
	if err != nil {
		return Account{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Account{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Account{}, fmt.Errorf("create account: %s: %s", resp.Status, bytes.TrimSpace(text))
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return Account{}, fmt.Errorf("parse response: %w", err)
	}
	return account, nil
}
