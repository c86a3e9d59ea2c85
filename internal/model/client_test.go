package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type analysis struct {
	Summary string `json:"summary"`
	Score   int    `json:"score"`
}

func completionBody(content string) string {
	payload := map[string]any{
		"id":    "chatcmpl-1",
		"model": "demo-model",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func newTestClient(t *testing.T, baseURL string, slept *[]time.Duration, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithSleeper(func(d time.Duration) { *slept = append(*slept, d) }),
	}
	return NewClient(Config{APIKey: "sk-test", BaseURL: baseURL, Model: "demo-model"}, append(base, opts...)...)
}

func testRequest() Request {
	return Request{
		Path:   ChatCompletionsPath,
		UserID: 7,
		Body: ChatRequest{
			Temperature: 0.2,
			Messages:    []Message{SystemMessage("system"), UserMessage("hello")},
		},
	}
}

func TestSendDisabledMakesNoCalls(t *testing.T) {
	for _, key := range []string{"", "   ", "your-api-key", "YOUR-API-KEY-HERE", "changeme"} {
		t.Run(key, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: key, BaseURL: server.URL}, WithLogger(zaptest.NewLogger(t)))
			assert.False(t, client.Enabled())

			var out analysis
			resp, err := client.Send(context.Background(), testRequest(), &out)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrDisabled)
			assert.Zero(t, atomic.LoadInt32(&calls))
		})
	}
}

func TestSendSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "demo-model", body["model"])
		assert.Equal(t, 0.2, body["temperature"])
		assert.EqualValues(t, 4000, body["max_tokens"])
		assert.Len(t, body["messages"], 2)

		_, _ = io.WriteString(w, completionBody(`{"summary":"ok","score":3}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL+"/v1/", &slept)

	var out analysis
	resp, err := client.Send(context.Background(), testRequest(), &out)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, analysis{Summary: "ok", Score: 3}, out)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
	assert.Empty(t, slept)
}

func TestSendRetriesTimeoutsThenSucceeds(t *testing.T) {
	var calls int
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls <= 2 {
			return nil, timeoutErr{}
		}
		return jsonResponse(r, http.StatusOK, completionBody(`{"summary":"third time","score":1}`)), nil
	})

	var slept []time.Duration
	client := newTestClient(t, "http://model.invalid", &slept, WithHTTPClient(&http.Client{Transport: transport}))

	var out analysis
	resp, err := client.Send(context.Background(), testRequest(), &out)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "third time", out.Summary)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, resp.Attempts)
	require.Len(t, slept, 2)
	assert.GreaterOrEqual(t, slept[0], 3*time.Second)
	assert.GreaterOrEqual(t, slept[1], 6*time.Second)
	require.Len(t, resp.Retries, 2)
	assert.Equal(t, Attempt{Number: 1, Delay: 3 * time.Second, Cause: KindTimeout}, resp.Retries[0])
	assert.Equal(t, Attempt{Number: 2, Delay: 6 * time.Second, Cause: KindTimeout}, resp.Retries[1])
}

func TestSendDoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request"}}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept)

	var out analysis
	resp, err := client.Send(context.Background(), testRequest(), &out)
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Empty(t, slept)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, KindHTTPStatus, callErr.Kind)
	assert.Equal(t, http.StatusBadRequest, callErr.StatusCode)
	assert.Contains(t, callErr.Body, "bad request")
}

func TestSendRetriesServerErrorsUntilExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept)

	resp, err := client.Send(context.Background(), testRequest(), &analysis{})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, slept)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 3, callErr.Attempts)
	assert.Equal(t, http.StatusBadGateway, callErr.StatusCode)
}

func TestSendDecodeFailureIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, completionBody("I cannot answer in JSON today"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept)

	resp, err := client.Send(context.Background(), testRequest(), &analysis{})
	assert.Nil(t, resp)
	assert.Equal(t, KindDecode, Classify(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Empty(t, slept)
}

func TestSendMalformedEnvelopeIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `<html>not json</html>`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept)

	_, err := client.Send(context.Background(), testRequest(), &analysis{})
	assert.Equal(t, KindDecode, Classify(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSendIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		_, _ = io.WriteString(w, completionBody(`{"summary":"finished","score":2}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept)

	var out analysis
	resp, err := client.Send(ctx, testRequest(), &out)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "finished", out.Summary)
}

type recordingObserver struct {
	outcomes []string
	retries  int
}

func (o *recordingObserver) ObserveCall(outcome string, retries []Attempt, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
	o.retries += len(retries)
}

func TestSendReportsToObserver(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, completionBody(`{"summary":"ok"}`))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept, WithObserver(obs))

	_, err := client.Send(context.Background(), testRequest(), &analysis{})
	require.NoError(t, err)

	disabled := NewClient(Config{}, WithObserver(obs))
	_, err = disabled.Send(context.Background(), testRequest(), nil)
	require.ErrorIs(t, err, ErrDisabled)

	assert.Equal(t, []string{OutcomeSuccess, OutcomeDisabled}, obs.outcomes)
	assert.Equal(t, 1, obs.retries)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &CallError{Kind: KindTimeout}, true},
		{"transport", &CallError{Kind: KindTransport}, true},
		{"500", &CallError{Kind: KindHTTPStatus, StatusCode: 500}, true},
		{"599", &CallError{Kind: KindHTTPStatus, StatusCode: 599}, true},
		{"400", &CallError{Kind: KindHTTPStatus, StatusCode: 400}, false},
		{"429", &CallError{Kind: KindHTTPStatus, StatusCode: 429}, false},
		{"decode", &CallError{Kind: KindDecode}, false},
		{"encode", &CallError{Kind: KindEncode}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestBackoffDelayIsCapped(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test", RetryBaseDelay: 3 * time.Second, RetryMaxDelay: 10 * time.Second})

	assert.Equal(t, 3*time.Second, client.backoffDelay(0))
	assert.Equal(t, 6*time.Second, client.backoffDelay(1))
	assert.Equal(t, 10*time.Second, client.backoffDelay(2))
	assert.Equal(t, 10*time.Second, client.backoffDelay(8))
}

func TestDecodeJSONCodeFence(t *testing.T) {
	var out analysis
	require.NoError(t, DecodeJSON("```json\n{\"summary\":\"fenced\",\"score\":4}\n```", &out))
	assert.Equal(t, analysis{Summary: "fenced", Score: 4}, out)

	out = analysis{}
	require.NoError(t, DecodeJSON("Here you go: {\"summary\":\"prose\"} enjoy", &out))
	assert.Equal(t, "prose", out.Summary)

	assert.Error(t, DecodeJSON("   ", &out))
}

func TestSendRetriesAttemptsThatHang(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		_, _ = io.WriteString(w, completionBody(`{"summary":"answered","score":4}`))
	}))
	defer server.Close()
	defer close(release)

	var slept []time.Duration
	client := newTestClient(t, server.URL, &slept, WithAttemptTimeout(100*time.Millisecond))

	var out analysis
	resp, err := client.Send(context.Background(), testRequest(), &out)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "answered", out.Summary)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, 3, resp.Attempts)
	require.Len(t, resp.Retries, 2)
	assert.Equal(t, KindTimeout, resp.Retries[0].Cause)
	assert.Equal(t, KindTimeout, resp.Retries[1].Cause)
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, slept)
}

func TestSendKeepsZeroTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		temperature, ok := body["temperature"]
		assert.True(t, ok, "temperature must be sent")
		assert.Equal(t, float64(0), temperature)

		_, _ = io.WriteString(w, completionBody(`{"summary":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL, Temperature: 0}, WithLogger(zaptest.NewLogger(t)))
	chat := client.NewChatRequest([]Message{UserMessage("hello")}, nil)
	assert.Zero(t, chat.Temperature)

	_, err := client.Send(context.Background(), Request{Body: chat}, &analysis{})
	require.NoError(t, err)
}

func TestNewClientNegativeTemperatureUsesDefault(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test", Temperature: -1})

	chat := client.NewChatRequest(nil, nil)

	assert.InDelta(t, defaultTemperature, chat.Temperature, 1e-9)
}
