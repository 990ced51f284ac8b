package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chat-companion-analytics/backend/pkg/logger"
)

// SentimentClient talks to the external sentiment classifier. The result is
// derived enrichment only; callers tolerate failures.
type SentimentClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewSentimentClient(baseURL string, log *logger.Logger) *SentimentClient {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &SentimentClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

// Classify returns the classifier's verdict, or nil when the service is not
// configured.
func (c *SentimentClient) Classify(ctx context.Context, text string) (*SentimentResult, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	body, err := json.Marshal(sentimentRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sentiment", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling sentiment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentiment service returned status %d", resp.StatusCode)
	}

	var result SentimentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &result, nil
}
