package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"metatags-backend/internal/config"
	"metatags-backend/internal/utils"
	"metatags-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

// NewChatModel 按 model.provider 创建上游模型
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return createOpenAIModel(cfg.OpenAI, cfg.Generation), nil
	case config.ProviderDoubao:
		return createDoubaoModel(ctx, cfg.Doubao, cfg.Generation)
	case config.ProviderQwen:
		return createQwenModel(ctx, cfg.Qwen, cfg.Generation)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

// SamplingFromConfig 把 generation 配置转换成采样参数
func SamplingFromConfig(gen config.GenerationConfig) SamplingParams {
	return SamplingParams{
		Temperature:      gen.Temperature,
		TopP:             gen.TopP,
		FrequencyPenalty: gen.FrequencyPenalty,
		PresencePenalty:  gen.PresencePenalty,
		MaxTokens:        gen.MaxTokens,
		N:                gen.N,
	}
}

func createOpenAIModel(cfg config.OpenAIConfig, gen config.GenerationConfig) einoModel.BaseChatModel {
	logger.Infof("Using OpenAI model: %s", cfg.Model)

	httpClient := utils.NewHTTPClient(cfg.Timeout)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.DebugRequest)

	return NewOpenAIChatModel(cfg.APIKey, cfg.BaseURL, cfg.Model, SamplingFromConfig(gen), httpClient)
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig, gen config.GenerationConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Doubao model: %s, API key: %s", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, doubaoModelConfig(cfg, gen))
	if err != nil {
		return nil, fmt.Errorf("failed to create Doubao model: %w", err)
	}
	return chatModel, nil
}

// doubaoModelConfig ark 不支持 n，每次只返回一个候选
func doubaoModelConfig(cfg config.DoubaoConfig, gen config.GenerationConfig) *ark.ChatModelConfig {
	p := SamplingFromConfig(gen)
	return &ark.ChatModelConfig{
		APIKey:           cfg.APIKey,
		Model:            cfg.Model,
		MaxTokens:        &p.MaxTokens,
		Temperature:      &p.Temperature,
		TopP:             &p.TopP,
		FrequencyPenalty: &p.FrequencyPenalty,
		PresencePenalty:  &p.PresencePenalty,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	}
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig, gen config.GenerationConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model: %s, BaseURL: %s, API key: %s", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	httpClient := utils.NewHTTPClient(cfg.Timeout)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.DebugRequest)

	chatModel, err := qwen.NewChatModel(ctx, qwenModelConfig(cfg, gen, httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Qwen model: %w", err)
	}
	return chatModel, nil
}

// qwenModelConfig 同 ark，不支持 n
func qwenModelConfig(cfg config.QwenConfig, gen config.GenerationConfig, httpClient *http.Client) *qwen.ChatModelConfig {
	p := SamplingFromConfig(gen)
	return &qwen.ChatModelConfig{
		BaseURL:          cfg.BaseURL,
		APIKey:           cfg.APIKey,
		Model:            cfg.Model,
		MaxTokens:        &p.MaxTokens,
		Temperature:      &p.Temperature,
		TopP:             &p.TopP,
		FrequencyPenalty: &p.FrequencyPenalty,
		PresencePenalty:  &p.PresencePenalty,
		Timeout:          cfg.Timeout,
		HTTPClient:       httpClient,
	}
}

func maskKey(key string) string {
	if len(key) > 6 {
		return key[:6] + "..."
	}
	return "***"
}

// DebugTransport 在 debug 开启时记录上游请求，敏感头与字段会被遮盖
type DebugTransport struct {
	base         http.RoundTripper
	debugEnabled bool
}

func NewDebugTransport(base http.RoundTripper, debugEnabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{
		base:         base,
		debugEnabled: debugEnabled,
	}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.debugEnabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.debugEnabled {
		logger.WithContext(req.Context()).Errorf("[upstream debug] request failed: %v", err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	entry := logger.WithContext(req.Context())
	entry.Debugf("[upstream debug] %s %s", req.Method, req.URL.String())

	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			entry.Debugf("[upstream debug]   %s: [REDACTED]", name)
		} else {
			entry.Debugf("[upstream debug]   %s: %s", name, strings.Join(values, ", "))
		}
	}

	if req.Body == nil {
		return
	}
	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		entry.Errorf("[upstream debug] failed to read request body: %v", err)
		return
	}
	// 恢复请求体，以免影响实际请求
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	entry.Debugf("[upstream debug] body (%d bytes): %s", len(bodyBytes), sanitizeJSONFields(string(bodyBytes)))
}

var sensitiveFieldPattern = regexp.MustCompile(`(?i)"(api_key|apikey|password|secret|token)"\s*:\s*"[^"]*"`)

func sanitizeJSONFields(body string) string {
	return sensitiveFieldPattern.ReplaceAllString(body, `"$1": "[REDACTED]"`)
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-api-key", "x-auth-token", "cookie", "api-key":
		return true
	}
	return false
}
