// Package issuer adapts the remote card-issuing API. It is stateless: three
// operations over a JSON envelope of the form {result: {...}} | {msg: "..."}.
package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/config"
	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
)

type Client interface {
	Query(ctx context.Context, cardID string) (*CardInfo, error)
	Activate(ctx context.Context, cardID string) (*CardInfo, error)
	Transactions(ctx context.Context, cardNumber string) (json.RawMessage, error)
}

type client struct {
	baseURL         string
	cardInfoBaseURL string
	token           string
	httpClient      *http.Client
}

func NewClient(cfg *config.Config) Client {
	return &client{
		baseURL:         cfg.IssuerBaseURL,
		cardInfoBaseURL: cfg.IssuerCardInfoBaseURL,
		token:           cfg.IssuerToken,
		httpClient: &http.Client{
			Timeout: cfg.IssuerTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.IssuerConnectTimeout,
				}).DialContext,
			},
		},
	}
}

func (c *client) Query(ctx context.Context, cardID string) (*CardInfo, error) {
	return c.cardRequest(ctx, "query", http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, cardID))
}

func (c *client) Activate(ctx context.Context, cardID string) (*CardInfo, error) {
	return c.cardRequest(ctx, "activate", http.MethodPost, fmt.Sprintf("%s/activate/%s", c.baseURL, cardID))
}

func (c *client) Transactions(ctx context.Context, cardNumber string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s", c.cardInfoBaseURL, cardNumber)
	return c.request(ctx, "transactions", http.MethodGet, url)
}

func (c *client) cardRequest(ctx context.Context, operation, method, url string) (*CardInfo, error) {
	result, err := c.request(ctx, operation, method, url)
	if err != nil {
		return nil, err
	}

	info := &CardInfo{}
	if err := json.Unmarshal(result, info); err != nil {
		return nil, fmt.Errorf("%w: malformed result payload: %v", ErrUnavailable, err)
	}

	return info, nil
}

func (c *client) request(ctx context.Context, operation, method, url string) (json.RawMessage, error) {
	start := time.Now()

	result, err := c.doRequest(ctx, method, url)

	status := "success"
	if err != nil {
		status = "error"
		logger.Warn("Issuer request failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	metrics.RecordIssuerRequest(operation, status, time.Since(start).Seconds())

	return result, err
}

func (c *client) doRequest(ctx context.Context, method, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}

	// The issuer only serves clients that look like its own web frontend.
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Origin", "https://misacard.com")
	req.Header.Set("Referer", "https://misacard.com/")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		msg := env.Msg
		if msg == "" {
			msg = "card not found"
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return env.Result, nil
}
