// Package marketplace - HTTP-клиент бэкенда маркетплейса.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// GenericFailure показывается, когда бэкенд не прислал своего сообщения.
const GenericFailure = "Something went wrong. Please try again."

// ErrUnavailable - бэкенд временно недоступен (разомкнут circuit breaker).
var ErrUnavailable = errors.New("marketplace backend is unavailable")

// BackendError - бэкенд ответил ошибкой или статусом, отличным от "success".
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("marketplace error (%d): %s", e.StatusCode, e.Message)
}

// Client вызывает REST API бэкенда маркетплейса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewClient создает клиент. Все вызовы проходят через breaker.
func NewClient(baseURL string, httpClient *http.Client, breaker *gobreaker.CircuitBreaker, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// NewBreaker создает circuit breaker для бэкенда. Ответы 4xx не считаются
// отказом бэкенда.
func NewBreaker(name string, timeout time.Duration, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var backendErr *BackendError
			return errors.As(err, &backendErr) && backendErr.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (r statusResponse) text() string {
	for _, s := range []string{r.Message, r.Error, r.Detail} {
		if s != "" {
			return s
		}
	}
	return GenericFailure
}

func (c *Client) do(ctx context.Context, caller models.Caller, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, caller, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, caller models.Caller, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request to %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request to %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller.Token != "" {
		req.Header.Set("Authorization", "Bearer "+caller.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var sr statusResponse
		_ = json.Unmarshal(raw, &sr)
		c.logger.Warnf("Event ID: MARKETPLACE_HTTP_ERROR, Description: %s %s returned %d", method, path, resp.StatusCode)
		return &BackendError{StatusCode: resp.StatusCode, Message: sr.text()}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// postStatus отправляет POST на эндпоинт, отвечающий {status, message}.
func (c *Client) postStatus(ctx context.Context, caller models.Caller, path string, body interface{}, out interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, caller, http.MethodPost, path, body, &raw); err != nil {
		return err
	}

	var sr statusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if sr.Status != "success" {
		return &BackendError{StatusCode: http.StatusOK, Message: sr.text()}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
