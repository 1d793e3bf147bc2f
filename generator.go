package skillquiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeneratorClient formats a generation request, sends it to the oracle
// intermediary, and validates the parsed question set. It performs no retries;
// retry policy belongs to the caller.
type GeneratorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGeneratorClient creates a client for the oracle intermediary at baseURL.
func NewGeneratorClient(baseURL, apiKey string) *GeneratorClient {
	return &GeneratorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type generateRequest struct {
	Subject       string `json:"subject"`
	SkillLevel    string `json:"skillLevel"`
	QuestionCount int    `json:"questionCount"`
}

type generateResponse struct {
	Questions []GeneratedQuestion `json:"questions"`
	Error     string              `json:"error"`
}

// Generate asks the oracle for count questions on the given subjects at the
// given skill level. On success it returns exactly the parsed question set,
// each element carrying all four option labels and a valid correct answer.
func (c *GeneratorClient) Generate(ctx context.Context, subjects []string, level SkillLevel, count int) ([]GeneratedQuestion, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("at least one subject is required")
	}
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}
	if _, err := ParseSkillLevel(string(level)); err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Subject:       JoinSubjects(subjects),
		SkillLevel:    string(level),
		QuestionCount: count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, ErrPaymentRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	var payload generateResponse
	if err := json.Unmarshal([]byte(StripCodeFence(string(raw))), &payload); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "malformed question payload"}
	}

	for i, question := range payload.Questions {
		if err := question.Validate(); err != nil {
			return nil, &UpstreamError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("invalid question %d: %v", i+1, err),
			}
		}
	}

	VerboseLog("Generated %d questions for %q at level %s", len(payload.Questions), JoinSubjects(subjects), level)
	return payload.Questions, nil
}

func upstreamMessage(raw []byte) string {
	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return ""
}

// StripCodeFence removes a surrounding markdown code fence, which the oracle
// sometimes wraps around otherwise well-formed JSON.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the fence line itself, including a language tag like ```json.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
