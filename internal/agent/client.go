package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/edvin/vpn/internal/signing"
)

const clientTimeout = 30 * time.Second

// Client calls tunnel agent endpoints with signed requests. Each call targets
// the base URL and secret of the server being provisioned, since every
// termination server holds its own secret.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	// retries is the number of additional attempts after a failed network
	// call. HTTP-level rejections (bad signature, tool failure) are never
	// retried; re-running a rejected command cannot succeed.
	retries int
	backoff time.Duration
}

// NewClient creates a new agent client. retries 0 disables retrying.
func NewClient(logger zerolog.Logger, retries int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
		logger:  logger.With().Str("component", "agent-client").Logger(),
		retries: retries,
		backoff: time.Second,
	}
}

// GenerateKeypair asks the agent for a fresh keypair.
func (c *Client) GenerateKeypair(ctx context.Context, baseURL, secret string) (Keypair, error) {
	var keys Keypair
	if err := c.do(ctx, http.MethodGet, baseURL+"/keys/new", secret, nil, &keys); err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return keys, nil
}

// AddPeer registers publicKey for address on the agent's interface.
func (c *Client) AddPeer(ctx context.Context, baseURL, secret, publicKey, address string) error {
	req := AddPeerRequest{PeerPublicKey: publicKey, PeerIP: address}
	if err := c.do(ctx, http.MethodPost, baseURL+"/peers/add", secret, req, nil); err != nil {
		return fmt.Errorf("add peer: %w", err)
	}
	return nil
}

// RemovePeer deregisters publicKey on the agent's interface.
func (c *Client) RemovePeer(ctx context.Context, baseURL, secret, publicKey string) error {
	req := RemovePeerRequest{PeerPublicKey: publicKey}
	if err := c.do(ctx, http.MethodPost, baseURL+"/peers/remove", secret, req, nil); err != nil {
		return fmt.Errorf("remove peer: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url, secret string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}
	// The signature covers the exact bytes sent; an absent body signs the
	// canonical empty object.
	sig := signing.Sign(body, secret)

	backoff := retry.WithMaxRetries(uint64(c.retries), retry.NewConstant(c.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set(signing.Header, sig)
		req.Header.Set("X-Request-ID", uuid.NewString())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("agent unreachable")
			return retry.RetryableError(fmt.Errorf("agent unreachable: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var errBody struct {
				Error string `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&errBody)
			return fmt.Errorf("agent returned %d: %s", resp.StatusCode, errBody.Error)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode agent response: %w", err)
			}
		}
		return nil
	})
}
