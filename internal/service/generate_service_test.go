package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"metatags-backend/internal/config"
	"metatags-backend/internal/model"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	openai "github.com/sashabaranov/go-openai"
)

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		SystemPrompt: config.DefaultSystemPrompt,
		Temperature:  0.7,
		TopP:         1,
		MaxTokens:    200,
		N:            1,
		Timeout:      5 * time.Second,
	}
}

func newTestService(t *testing.T, fake *fakeChatModel, provider string) *GenerateService {
	t.Helper()
	s, err := NewGenerateService(fake, provider, "gpt-3.5-turbo", testGenerationConfig())
	if err != nil {
		t.Fatalf("NewGenerateService() error: %v", err)
	}
	return s
}

func drain(t *testing.T, g *Generation) (string, error) {
	t.Helper()
	var sb strings.Builder
	for {
		chunk, err := g.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

func TestGenerateServiceStreamsChunksInOrder(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"<meta ", "", "name=\"a\">", "\n<meta name=\"b\">"}}
	s := newTestService(t, fake, "fake-ok")

	g, err := s.Stream(context.Background(), model.GenerationRequest{Description: "bakery"})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	text, err := drain(t, g)
	g.Close(StatusOK)
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}
	if want := "<meta name=\"a\">\n<meta name=\"b\">"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}

	if got := testutil.ToFloat64(metrics.GenerationTotal.WithLabelValues("fake-ok", StatusOK)); got != 1 {
		t.Errorf("generation ok counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.GenerationStreamedBytes.WithLabelValues("fake-ok")); got != float64(len(text)) {
		t.Errorf("streamed bytes = %v, want %d", got, len(text))
	}

	// 重复 Close 不会重复计数
	g.Close(StatusOK)
	if got := testutil.ToFloat64(metrics.GenerationTotal.WithLabelValues("fake-ok", StatusOK)); got != 1 {
		t.Errorf("generation ok counter after second Close = %v, want 1", got)
	}
}

func TestGenerateServiceSendsFixedCallOptions(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"x"}}
	s := newTestService(t, fake, "fake-opts")

	req := model.GenerationRequest{Description: "bakery", Language: "French", RobotsIndex: true}
	g, err := s.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	defer g.Close(StatusOK)

	opts := fake.options
	if opts.Temperature == nil || *opts.Temperature != 0.7 {
		t.Errorf("temperature option = %v", opts.Temperature)
	}
	if opts.TopP == nil || *opts.TopP != 1 {
		t.Errorf("top_p option = %v", opts.TopP)
	}
	if opts.MaxTokens == nil || *opts.MaxTokens != 200 {
		t.Errorf("max_tokens option = %v", opts.MaxTokens)
	}
	if opts.Model == nil || *opts.Model != "gpt-3.5-turbo" {
		t.Errorf("model option = %v", opts.Model)
	}

	if len(fake.messages) != 2 {
		t.Fatalf("messages len = %d, want 2", len(fake.messages))
	}
	if got := fake.messages[1].Content; got != BuildPrompt(req) {
		t.Errorf("user message = %q, want %q", got, BuildPrompt(req))
	}
}

func TestGenerateServiceRejectsBeforeUpstream(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"x"}}
	s := newTestService(t, fake, "fake-reject")

	tests := []struct {
		name    string
		req     model.GenerationRequest
		wantMsg string
	}{
		{name: "empty", req: model.GenerationRequest{}, wantMsg: NoPromptMessage},
		{name: "blank", req: model.GenerationRequest{Description: "  "}, wantMsg: NoPromptMessage},
		{name: "too long", req: model.GenerationRequest{Description: strings.Repeat("a", 281)}, wantMsg: "Description is too long"},
		{name: "bad variant", req: model.GenerationRequest{Description: "a", TagVariant: "closing"}, wantMsg: "Invalid tag variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Stream(context.Background(), tt.req)
			if apperrors.KindOf(err) != apperrors.KindBadRequest {
				t.Fatalf("Stream() error = %v, want BadRequest", err)
			}
			if got := apperrors.AsAppError(err).Message; got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
	if fake.Calls() != 0 {
		t.Errorf("upstream called %d times for rejected requests", fake.Calls())
	}
}

func TestGenerateServiceUpstreamOpenError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "network", err: errors.New("connection refused"), wantStatus: http.StatusBadGateway},
		{name: "api error", err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, wantStatus: http.StatusUnauthorized},
		{name: "wrapped api error", err: fmt.Errorf("open: %w", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}), wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, &fakeChatModel{openErr: tt.err}, "fake-open-err")
			_, err := s.Stream(context.Background(), model.GenerationRequest{Description: "bakery"})
			appErr := apperrors.AsAppError(err)
			if appErr.Kind != apperrors.KindUpstream {
				t.Fatalf("kind = %s, want UpstreamError", appErr.Kind)
			}
			if appErr.HTTPStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", appErr.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestGenerateServiceMidStreamError(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"partial"}, midErr: errors.New("reset by peer")}
	s := newTestService(t, fake, "fake-mid")

	g, err := s.Stream(context.Background(), model.GenerationRequest{Description: "bakery"})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	text, err := drain(t, g)
	g.Close(StatusAborted)

	if text != "partial" {
		t.Errorf("text before failure = %q", text)
	}
	if apperrors.KindOf(err) != apperrors.KindUpstream {
		t.Fatalf("Recv() error = %v, want UpstreamError", err)
	}
	if got := testutil.ToFloat64(metrics.GenerationTotal.WithLabelValues("fake-mid", StatusAborted)); got != 1 {
		t.Errorf("aborted counter = %v, want 1", got)
	}
}
