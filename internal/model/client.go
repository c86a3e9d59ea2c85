// Package model is the outbound client for a JSON chat-completion API.
//
// A Client owns the timeout, retry and error-classification policy for every
// call. Send never returns a partially populated response: either the
// assistant's JSON answer was decoded into the caller's value, or the result
// is nil together with ErrDisabled or a *CallError.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultModel          = "gpt-4o-mini"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 4000
	defaultTimeout        = 180 * time.Second
	defaultAttemptTimeout = 55 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 3 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	maxResponseBytes      = 4 << 20
)

// Keys shipped in sample configs. A client configured with one of these is
// treated the same as one with no key at all.
var placeholderKeys = map[string]struct{}{
	"your-api-key":        {},
	"your-api-key-here":   {},
	"your_api_key":        {},
	"your_openai_api_key": {},
	"openai_api_key":      {},
	"sk-xxxx":             {},
	"changeme":            {},
	"dummy":               {},
	"placeholder":         {},
}

type Config struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	// Zero is a valid temperature; only a negative value selects the default.
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay"`
}

// Observer receives one notification per Send.
type Observer interface {
	ObserveCall(outcome string, retries []Attempt, elapsed time.Duration)
}

// Call outcomes reported to the Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeDisabled = "disabled"
	OutcomeFailed   = "failed"
)

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
	sleeper    func(time.Duration)
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithSleeper replaces the backoff sleep (tests record delays instead of waiting).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithRetryMaxAttempts sets the total number of attempts, first call included.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.cfg.RetryMaxAttempts = attempts
	}
}

// WithAttemptTimeout bounds a single HTTP attempt. The overall Timeout still
// caps the whole call.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.cfg.AttemptTimeout = timeout
		}
	}
}

func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.cfg.RetryBaseDelay = base
		c.cfg.RetryMaxDelay = maxDelay
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = defaultRetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = defaultRetryMaxDelay
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a real API key is configured.
func (c *Client) Enabled() bool {
	key := strings.ToLower(strings.TrimSpace(c.cfg.APIKey))
	if key == "" {
		return false
	}
	_, placeholder := placeholderKeys[key]
	return !placeholder
}

// NewChatRequest fills model, temperature and token budget from the client
// configuration.
func (c *Client) NewChatRequest(messages []Message, format *ResponseFormat) ChatRequest {
	return ChatRequest{
		Model:          c.cfg.Model,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		Messages:       messages,
		ResponseFormat: format,
	}
}

// Send posts req and decodes the assistant message into out.
//
// The whole call, retries and backoff included, is bounded by the configured
// timeout, and each attempt by the attempt timeout. Cancelling ctx does not
// abort a call that is already in flight.
func (c *Client) Send(ctx context.Context, req Request, out any) (*Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if !c.Enabled() {
		c.logger.Info("model client disabled, skipping call",
			zap.String("request_id", req.RequestID),
			zap.Int64("user_id", req.UserID),
		)
		c.observe(OutcomeDisabled, nil, 0)
		return nil, ErrDisabled
	}
	if req.Path == "" {
		req.Path = ChatCompletionsPath
	}
	if req.Body.Model == "" {
		req.Body.Model = c.cfg.Model
	}
	if req.Body.MaxTokens <= 0 {
		req.Body.MaxTokens = c.cfg.MaxTokens
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.sendWithRetry(callCtx, req)
	if err == nil && out != nil {
		if decodeErr := DecodeJSON(resp.Content, out); decodeErr != nil {
			err = &CallError{Kind: KindDecode, Body: resp.Content, Attempts: resp.Attempts, Err: decodeErr}
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		var retries []Attempt
		if resp != nil {
			retries = resp.Retries
		}
		c.logFailure(req, err, elapsed)
		c.observe(OutcomeFailed, retries, elapsed)
		return nil, err
	}

	resp.RequestID = req.RequestID
	resp.Elapsed = elapsed
	c.logger.Debug("model call succeeded",
		zap.String("request_id", req.RequestID),
		zap.Int64("user_id", req.UserID),
		zap.Int("attempts", resp.Attempts),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", elapsed),
	)
	c.observe(OutcomeSuccess, resp.Retries, elapsed)
	return resp, nil
}

func (c *Client) sendWithRetry(ctx context.Context, req Request) (*Response, error) {
	attempts := c.cfg.RetryMaxAttempts
	var retries []Attempt

	for attempt := 0; attempt < attempts; attempt++ {
		completion, callErr := c.sendOnce(ctx, req)
		if callErr == nil {
			return &Response{
				Content:  completionContent(completion),
				Model:    completion.Model,
				Usage:    completion.Usage,
				Attempts: attempt + 1,
				Retries:  retries,
			}, nil
		}
		callErr.Attempts = attempt + 1

		delay, retry := c.retryDelay(ctx, callErr, attempt, attempts)
		if !retry {
			return &Response{Retries: retries}, callErr
		}
		c.logger.Warn("model call failed, retrying",
			zap.String("request_id", req.RequestID),
			zap.Int64("user_id", req.UserID),
			zap.Int("attempt", attempt+1),
			zap.Stringer("cause", callErr.Kind),
			zap.Duration("backoff", delay),
			zap.Error(callErr),
		)
		retries = append(retries, Attempt{Number: attempt + 1, Delay: delay, Cause: callErr.Kind})
		if err := c.sleep(ctx, delay); err != nil {
			return &Response{Retries: retries}, &CallError{Kind: KindTimeout, Attempts: attempt + 1, Err: errors.Join(err, callErr)}
		}
	}
	return &Response{Retries: retries}, &CallError{Kind: KindUnknown, Attempts: attempts, Err: errors.New("retries exhausted")}
}

func (c *Client) sendOnce(ctx context.Context, req Request) (ChatResponse, *CallError) {
	var completion ChatResponse

	encoded, err := json.Marshal(req.Body)
	if err != nil {
		return completion, &CallError{Kind: KindEncode, Err: err}
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL+req.Path, bytes.NewReader(encoded))
	if err != nil {
		return completion, &CallError{Kind: KindEncode, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return completion, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		callErr := transportError(err)
		callErr.StatusCode = resp.StatusCode
		return completion, callErr
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return completion, &CallError{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Header:     resp.Header.Clone(),
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, &CallError{Kind: KindDecode, StatusCode: resp.StatusCode, Body: string(body), Header: resp.Header.Clone(), Err: err}
	}
	if completion.Error != nil {
		return completion, &CallError{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Header:     resp.Header.Clone(),
			Err:        errors.New(completion.Error.Message),
		}
	}
	if completionContent(completion) == "" {
		return completion, &CallError{Kind: KindEmpty, StatusCode: resp.StatusCode, Body: string(body), Header: resp.Header.Clone()}
	}
	return completion, nil
}

func completionContent(completion ChatResponse) string {
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text
		}
	}
	return ""
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt+1 >= maxAttempts {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if !Retryable(err) {
		return 0, false
	}
	return c.backoffDelay(attempt), true
}

// backoffDelay returns the wait before the attempt after attempt:
// base, base*2, base*4, ... capped at the max delay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.cfg.RetryBaseDelay
	for i := 0; i < attempt; i++ {
		if delay >= c.cfg.RetryMaxDelay/2 {
			return c.cfg.RetryMaxDelay
		}
		delay *= 2
	}
	if delay > c.cfg.RetryMaxDelay {
		return c.cfg.RetryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logFailure(req Request, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("request_id", req.RequestID),
		zap.Int64("user_id", req.UserID),
		zap.String("path", req.Path),
		zap.String("model", req.Body.Model),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		fields = append(fields,
			zap.Stringer("kind", callErr.Kind),
			zap.Int("attempts", callErr.Attempts),
			zap.Int("status", callErr.StatusCode),
			zap.String("response_body", snippet(callErr.Body)),
		)
		if len(callErr.Header) > 0 {
			fields = append(fields, zap.Any("response_headers", callErr.Header))
		}
	}
	c.logger.Error("model call failed", fields...)
}

func (c *Client) observe(outcome string, retries []Attempt, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveCall(outcome, retries, elapsed)
	}
}
