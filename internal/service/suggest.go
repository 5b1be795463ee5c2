package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrSuggestionsDisabled     = errors.New("suggestion api key not configured")
	ErrUnparseableSuggestions  = errors.New("could not parse suggestions from model response")
	ErrSuggestionAlreadyActive = errors.New("suggestion request already pending for this goal")
)

// MaxNextActions caps how many suggested actions a goal stores.
const MaxNextActions = 3

const suggestSystemPrompt = `You are an assistant for a personal "things I want to do" list.
Given one goal, propose 1-3 concrete next actions.

Rules:
- Each action must be practical and actionable, 1-2 short sentences.
- Answer with ONLY this JSON shape, no preamble:
{"actions":["action 1","action 2","action 3"]}`

// SuggestService proxies goal titles to an OpenAI-compatible completion
// endpoint and tracks which goals have a request in flight. The pending set
// is keyed by goal ID so concurrent requests for different goals never
// interfere.
type SuggestService struct {
	model string

	// complete performs one chat completion. Injected so tests can run the
	// request flow without the network.
	complete func(ctx context.Context, system, user string) (string, error)

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewSuggestService(apiKey, model, baseURL string) *SuggestService {
	s := &SuggestService{
		model:   model,
		pending: make(map[string]struct{}),
	}

	if apiKey == "" {
		return s
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	s.complete = func(ctx context.Context, system, user string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens:   512,
			Temperature: 0.7,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return s
}

func (s *SuggestService) Enabled() bool {
	return s.complete != nil
}

// Begin marks a goal's suggestion request as in flight. Returns false when
// one is already pending for that goal.
func (s *SuggestService) Begin(goalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, active := s.pending[goalID]
	if active {
		return false
	}
	s.pending[goalID] = struct{}{}
	return true
}

// End clears the pending marker for one goal, and only that goal.
func (s *SuggestService) End(goalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, goalID)
}

func (s *SuggestService) IsPending(goalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, active := s.pending[goalID]
	return active
}

// Pending returns the goal IDs with a request in flight.
func (s *SuggestService) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	return ids
}

// Suggest asks the model for next actions toward the goal. timeframeContext
// is a short hint such as "the goal period is: month" or "this is a goal
// for 2026, target month 6".
func (s *SuggestService) Suggest(ctx context.Context, title, timeframeContext string) ([]string, error) {
	if !s.Enabled() {
		return nil, ErrSuggestionsDisabled
	}

	user := fmt.Sprintf("Goal: %q\n%s\nPropose concrete next actions.", title, timeframeContext)
	content, err := s.complete(ctx, suggestSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("suggestion completion failed: %w", err)
	}

	return parseActions(content)
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// parseActions extracts the actions list from the model output. The model
// is instructed to answer with bare JSON, but a chatty response that wraps
// the object in prose is still accepted.
func parseActions(content string) ([]string, error) {
	var payload struct {
		Actions []string `json:"actions"`
	}

	err := json.Unmarshal([]byte(content), &payload)
	if err != nil {
		match := jsonObjectRe.FindString(content)
		if match == "" {
			return nil, ErrUnparseableSuggestions
		}
		err = json.Unmarshal([]byte(match), &payload)
		if err != nil {
			return nil, ErrUnparseableSuggestions
		}
	}

	if len(payload.Actions) == 0 {
		return nil, ErrUnparseableSuggestions
	}
	if len(payload.Actions) > MaxNextActions {
		payload.Actions = payload.Actions[:MaxNextActions]
	}
	return payload.Actions, nil
}
