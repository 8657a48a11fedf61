package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/config"
	"go.uber.org/zap"
)

const (
	defaultLoginURL = "https://login.microsoftonline.com"
	defaultGraphURL = "https://graph.microsoft.com"
	graphScope      = "https://graph.microsoft.com/.default"
)

// ErrDisabled is returned when the client has no credentials configured.
var ErrDisabled = errors.New("graph mailer is not configured")

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusConflict:            true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// =============================================================================
// GraphClient sends mail through Microsoft Graph with an app-only token.
// =============================================================================

type GraphClient struct {
	cfg         config.GraphConfig
	loginURL    string
	graphURL    string
	tokenCache  string
	tokenExpire time.Time
	mu          sync.RWMutex
	httpClient  *http.Client
	sleep       func(time.Duration)
}

// Option customises a GraphClient.
type Option func(*GraphClient)

// WithBaseURLs points the client at alternative login and graph hosts.
func WithBaseURLs(loginURL, graphURL string) Option {
	return func(c *GraphClient) {
		c.loginURL = strings.TrimRight(loginURL, "/")
		c.graphURL = strings.TrimRight(graphURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GraphClient) { c.httpClient = hc }
}

func NewGraphClient(cfg config.GraphConfig, opts ...Option) *GraphClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &GraphClient{
		cfg:        cfg,
		loginURL:   defaultLoginURL,
		graphURL:   defaultGraphURL,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether every credential needed to send mail is present.
func (c *GraphClient) Enabled() bool {
	return c != nil && c.cfg.TenantID != "" && c.cfg.ClientID != "" &&
		c.cfg.ClientSecret != "" && c.cfg.Sender != ""
}

// accessToken returns a cached client-credentials token, refreshing it 30s
// before it expires.
func (c *GraphClient) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		token := c.tokenCache
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		return c.tokenCache, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", graphScope)
	form.Set("grant_type", "client_credentials")

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginURL, url.PathEscape(c.cfg.TenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request graph token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.AccessToken == "" {
		return "", fmt.Errorf("graph token error [%d]: %s %s", resp.StatusCode, result.Error, result.ErrorDescription)
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokenCache = result.AccessToken
	c.tokenExpire = time.Now().Add(time.Duration(expiresIn-30) * time.Second)

	return result.AccessToken, nil
}

type emailAddress struct {
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type message struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type sendMailRequest struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

// SendMail delivers a plain text message to the given recipients.
func (c *GraphClient) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if len(to) == 0 {
		return nil
	}

	payload := sendMailRequest{
		Message: message{
			Subject: subject,
			Body:    itemBody{ContentType: "Text", Content: body},
		},
		SaveToSentItems: c.cfg.SaveToSentItems,
	}
	for _, addr := range to {
		payload.Message.ToRecipients = append(payload.Message.ToRecipients, recipient{EmailAddress: emailAddress{Address: addr}})
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMail payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1.0/users/%s/sendMail", c.graphURL, url.PathEscape(c.cfg.Sender))

	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("build sendMail request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("sendMail request: %w", err)
			if attempt < maxRetries {
				c.sleep(c.backoff(attempt, ""))
				continue
			}
			return lastErr
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
			return nil
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			c.tokenCache = ""
			c.mu.Unlock()
		}

		lastErr = fmt.Errorf("sendMail failed [%d]: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if !retryableStatus[resp.StatusCode] || attempt == maxRetries {
			return lastErr
		}
		delay := c.backoff(attempt, resp.Header.Get("Retry-After"))
		zap.L().Warn("graph sendMail retry",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		c.sleep(delay)
	}
	return lastErr
}

func (c *GraphClient) backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
			return 0
		}
	}
	base := c.cfg.Backoff
	if base <= 0 {
		base = time.Second
	}
	return base * time.Duration(1<<attempt)
}
