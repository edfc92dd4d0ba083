package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apperrors "metatags-backend/pkg/errors"
)

func TestGenerationRequestValidateDescriptionBounds(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		wantErr string
	}{
		{name: "empty", desc: "", wantErr: "Description is required"},
		{name: "one char", desc: "a"},
		{name: "max length", desc: strings.Repeat("a", MaxDescriptionLength)},
		{name: "max length multibyte", desc: strings.Repeat("é", MaxDescriptionLength)},
		{name: "too long", desc: strings.Repeat("a", MaxDescriptionLength+1), wantErr: "Description is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GenerationRequest{Description: tt.desc}.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error %q, got nil", tt.wantErr)
			}
			if !errors.Is(err, apperrors.ErrBadRequest) {
				t.Fatalf("Validate() error kind = %s, want BadRequest", apperrors.KindOf(err))
			}
			if got := apperrors.AsAppError(err).Message; got != tt.wantErr {
				t.Errorf("Validate() message = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestGenerationRequestDecodeTagVariant(t *testing.T) {
	tests := []struct {
		body string
		want TagVariant
	}{
		{body: `{"description":"x","tagVariant":"selfClosing"}`, want: TagVariantSelfClosing},
		{body: `{"description":"x","tagVariant":"nonSelfClosing"}`, want: TagVariantNonSelfClosing},
		{body: `{"description":"x","tagVariant":"notSelfClosing"}`, want: TagVariantNonSelfClosing},
		{body: `{"description":"x","tagVariant":""}`, want: TagVariantNonSelfClosing},
	}

	for _, tt := range tests {
		var req GenerationRequest
		if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", tt.body, err)
		}
		if req.TagVariant != tt.want {
			t.Errorf("Unmarshal(%s) tagVariant = %q, want %q", tt.body, req.TagVariant, tt.want)
		}
		if err := req.Validate(); err != nil {
			t.Errorf("Validate() after decoding %s: %v", tt.body, err)
		}
	}
}

func TestGenerationRequestInvalidTagVariant(t *testing.T) {
	var req GenerationRequest
	if err := json.Unmarshal([]byte(`{"description":"x","tagVariant":"closing"}`), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	err := req.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for unknown tag variant")
	}
	if got := apperrors.AsAppError(err).Message; got != "Invalid tag variant" {
		t.Errorf("Validate() message = %q, want %q", got, "Invalid tag variant")
	}

	if err := json.Unmarshal([]byte(`{"tagVariant":42}`), &req); err == nil {
		t.Error("Unmarshal expected error for non-string tagVariant")
	}
}

func TestGenerationRequestWithDefaults(t *testing.T) {
	req := GenerationRequest{Description: "bakery", Language: "  "}.WithDefaults()
	if req.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", req.Language, DefaultLanguage)
	}
	if req.TagVariant != TagVariantNonSelfClosing {
		t.Errorf("TagVariant = %q, want %q", req.TagVariant, TagVariantNonSelfClosing)
	}

	req = GenerationRequest{Description: "bakery", Language: "German", TagVariant: TagVariantSelfClosing}.WithDefaults()
	if req.Language != "German" || !req.TagVariant.SelfClosing() {
		t.Errorf("WithDefaults() overwrote explicit fields: %+v", req)
	}
}

func TestGenerationRequestJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(GenerationRequest{
		Description:  "bakery",
		Language:     "English",
		RobotsIndex:  true,
		RobotsFollow: false,
		TagVariant:   TagVariantSelfClosing,
	})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"description":"bakery","language":"English","robotsIndex":true,"robotsFollow":false,"tagVariant":"selfClosing"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestGenerationRequestLanguageUnbounded(t *testing.T) {
	req := GenerationRequest{Description: "bakery", Language: strings.Repeat("Portuguese (Brazil) ", 10)}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() rejected a long language: %v", err)
	}
}
