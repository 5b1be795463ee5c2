package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func suggestWithResponse(response string) *SuggestService {
	s := NewSuggestService("", "test-model", "")
	s.complete = func(ctx context.Context, system, user string) (string, error) {
		return response, nil
	}
	return s
}

func TestParseActions_BareJSON(t *testing.T) {
	actions, err := parseActions(`{"actions":["book flights","renew passport"]}`)
	if err != nil {
		t.Fatalf("parseActions: %v", err)
	}
	want := []string{"book flights", "renew passport"}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("actions = %v, want %v", actions, want)
	}
}

func TestParseActions_WrappedInProse(t *testing.T) {
	content := "Sure! Here are some ideas:\n{\"actions\":[\"sign up for a class\"]}\nGood luck!"
	actions, err := parseActions(content)
	if err != nil {
		t.Fatalf("parseActions: %v", err)
	}
	if len(actions) != 1 || actions[0] != "sign up for a class" {
		t.Errorf("actions = %v", actions)
	}
}

func TestParseActions_CapsAtThree(t *testing.T) {
	actions, err := parseActions(`{"actions":["a","b","c","d","e"]}`)
	if err != nil {
		t.Fatalf("parseActions: %v", err)
	}
	if len(actions) != MaxNextActions {
		t.Errorf("len = %d, want %d", len(actions), MaxNextActions)
	}
}

func TestParseActions_Unparseable(t *testing.T) {
	for _, content := range []string{
		"I cannot help with that.",
		`{"actions":[]}`,
		`{"something":"else"}`,
		`{broken`,
	} {
		_, err := parseActions(content)
		if !errors.Is(err, ErrUnparseableSuggestions) {
			t.Errorf("parseActions(%q) err = %v, want ErrUnparseableSuggestions", content, err)
		}
	}
}

func TestSuggest_Disabled(t *testing.T) {
	s := NewSuggestService("", "test-model", "")

	if s.Enabled() {
		t.Fatal("service with no key should be disabled")
	}
	_, err := s.Suggest(context.Background(), "learn to surf", "")
	if !errors.Is(err, ErrSuggestionsDisabled) {
		t.Errorf("err = %v, want ErrSuggestionsDisabled", err)
	}
}

func TestPendingSet_GoalsAreIndependent(t *testing.T) {
	s := NewSuggestService("", "test-model", "")

	if !s.Begin("goal-a") {
		t.Fatal("first Begin for goal-a should succeed")
	}
	if !s.Begin("goal-b") {
		t.Fatal("first Begin for goal-b should succeed")
	}
	if s.Begin("goal-a") {
		t.Error("second Begin for goal-a should report already pending")
	}

	// Finishing one goal's request must not clear the other's marker.
	s.End("goal-a")
	if s.IsPending("goal-a") {
		t.Error("goal-a should no longer be pending")
	}
	if !s.IsPending("goal-b") {
		t.Error("goal-b should still be pending")
	}

	s.End("goal-b")
	if len(s.Pending()) != 0 {
		t.Errorf("pending = %v, want empty", s.Pending())
	}
}

func TestSuggest_UsesCompletionResponse(t *testing.T) {
	s := suggestWithResponse(`{"actions":["stretch daily","find a pool"]}`)

	actions, err := s.Suggest(context.Background(), "swim more", "The goal period is: month.")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(actions) != 2 {
		t.Errorf("actions = %v", actions)
	}
}
