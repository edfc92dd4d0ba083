package service

import (
	"context"
	"strings"
	"testing"

	"metatags-backend/internal/config"
	"metatags-backend/internal/model"

	"github.com/cloudwego/eino/schema"
)

func TestBuildPromptEmbedsFields(t *testing.T) {
	got := BuildPrompt(model.GenerationRequest{
		Description:  "bakery in Lisbon",
		Language:     "Portuguese",
		RobotsIndex:  true,
		RobotsFollow: false,
		TagVariant:   model.TagVariantSelfClosing,
	})

	for _, want := range []string{
		"My company is a bakery in Lisbon",
		"language: Portuguese",
		"index: true, follow: false",
		"self-closing",
		`content="..." />`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildPrompt() = %q, missing %q", got, want)
		}
	}
}

func TestBuildPromptTagVariantOnlyChangesStyleSentence(t *testing.T) {
	base := model.GenerationRequest{Description: "bakery", Language: "English", RobotsIndex: true, RobotsFollow: true}

	selfReq := base
	selfReq.TagVariant = model.TagVariantSelfClosing
	nonReq := base
	nonReq.TagVariant = model.TagVariantNonSelfClosing

	selfPrompt := BuildPrompt(selfReq)
	nonPrompt := BuildPrompt(nonReq)
	if selfPrompt == nonPrompt {
		t.Fatal("prompts should differ by tag variant")
	}

	selfPrefix := strings.TrimSuffix(selfPrompt, tagStyleInstruction(model.TagVariantSelfClosing))
	nonPrefix := strings.TrimSuffix(nonPrompt, tagStyleInstruction(model.TagVariantNonSelfClosing))
	if selfPrefix != nonPrefix {
		t.Errorf("prompts differ outside the tag style sentence:\n%q\n%q", selfPrefix, nonPrefix)
	}
	if !strings.Contains(nonPrompt, "not self-closing") {
		t.Errorf("non self-closing prompt = %q", nonPrompt)
	}
}

func TestBuildPromptDefaults(t *testing.T) {
	got := BuildPrompt(model.GenerationRequest{Description: "bakery"})
	if !strings.Contains(got, "language: English") {
		t.Errorf("default language missing: %q", got)
	}
	if !strings.Contains(got, "not self-closing") {
		t.Errorf("default tag variant should be non self-closing: %q", got)
	}
}

func TestBuildPromptEmptyDescription(t *testing.T) {
	for _, desc := range []string{"", "   ", "\n\t"} {
		if got := BuildPrompt(model.GenerationRequest{Description: desc}); got != "" {
			t.Errorf("BuildPrompt(%q) = %q, want empty", desc, got)
		}
	}
}

func TestPromptTemplateMessages(t *testing.T) {
	tpl := newPromptTemplate(config.DefaultSystemPrompt)
	userPrompt := `My company is a {curly} shop`

	msgs, err := formatMessages(context.Background(), tpl, userPrompt)
	if err != nil {
		t.Fatalf("formatMessages() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("formatMessages() len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[0].Content != config.DefaultSystemPrompt {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != schema.User || msgs[1].Content != userPrompt {
		t.Errorf("user message = %+v", msgs[1])
	}
}
