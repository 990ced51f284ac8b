package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-companion-analytics/backend/pkg/logger"
	"chat-companion-analytics/backend/pkg/resilience"
	"chat-companion-analytics/backend/shared/observability"
)

// BotClient talks to the external bot-answer service. Calls run through a
// circuit breaker so a flapping upstream cannot stall message recording.
type BotClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger
}

func NewBotClient(baseURL string, log *logger.Logger) (*BotClient, error) {
	if baseURL == "" {
		return nil, errors.New("bot service URL is required")
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &BotClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("bot-answer"), log),
		log:        log,
	}, nil
}

type answerRequest struct {
	Query   string `json:"query"`
	History []Turn `json:"history"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// Answer asks the bot service for a reply to query, providing the recent
// history window for context.
func (c *BotClient) Answer(ctx context.Context, query string, history []Turn) (string, error) {
	var answer string
	err := c.breaker.Execute(func() error {
		var innerErr error
		answer, innerErr = c.answer(ctx, query, history)
		return innerErr
	})
	if err != nil {
		observability.CountBotAnswerFailure(ctx)
	}
	return answer, err
}

func (c *BotClient) answer(ctx context.Context, query string, history []Turn) (string, error) {
	body, err := json.Marshal(answerRequest{Query: query, History: history})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/answer", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling bot service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bot service returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("bot service error: %s", result.Error)
	}
	if result.Answer == "" {
		return "", errors.New("bot service returned an empty answer")
	}
	return result.Answer, nil
}
