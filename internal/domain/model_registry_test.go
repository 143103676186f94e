package domain

import "testing"

func TestIsRestrictedModel(t *testing.T) {
	cases := map[string]bool{
		"gpt-4o":      false,
		"gpt-4o-mini": false,
		"o1-preview":  true,
		"o1-mini":     true,
		"unknown":     false,
		"":            false,
	}
	for id, want := range cases {
		if got := IsRestrictedModel(id); got != want {
			t.Fatalf("IsRestrictedModel(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestDefaultModelIsRegisteredAndUnrestricted(t *testing.T) {
	m, ok := LookupModel(DefaultModelID)
	if !ok {
		t.Fatalf("default model %q not registered", DefaultModelID)
	}
	if !m.SupportsSystemPrompt {
		t.Fatalf("default model should accept system prompts")
	}
}

func TestModelsReturnsCopy(t *testing.T) {
	out := Models()
	if len(out) != 4 {
		t.Fatalf("expected 4 models, got %d", len(out))
	}
	out[0].ID = "mutated"
	if Models()[0].ID != "gpt-4o" {
		t.Fatalf("registry should not be mutable through Models()")
	}
}

func TestChatCloneDoesNotShareMessages(t *testing.T) {
	c := Chat{ID: "c1", Messages: []Message{{ID: "m1", Content: "hola"}}}
	cp := c.Clone()
	cp.Messages[0].Content = "changed"
	if c.Messages[0].Content != "hola" {
		t.Fatalf("clone shares message storage")
	}
}
