package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"metatags-backend/internal/config"
	"metatags-backend/internal/model"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/logger"
	"metatags-backend/pkg/metrics"
	"metatags-backend/pkg/tracer"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 生成结果状态，用作指标标签
const (
	StatusOK           = "ok"
	StatusBadRequest   = "bad_request"
	StatusUpstreamErr  = "upstream_error"
	StatusAborted      = "aborted"
	StatusClientClosed = "client_closed"
)

// GenerateService 无状态的中继服务：组装 prompt，打开上游流
type GenerateService struct {
	chatModel einoModel.BaseChatModel
	template  prompt.ChatTemplate
	provider  string
	modelName string
	gen       config.GenerationConfig
}

func NewGenerateService(chatModel einoModel.BaseChatModel, provider, modelName string, gen config.GenerationConfig) (*GenerateService, error) {
	s := &GenerateService{
		chatModel: chatModel,
		template:  newPromptTemplate(gen.SystemPrompt),
		provider:  provider,
		modelName: modelName,
		gen:       gen,
	}

	// 系统提示词含有非法占位符时在启动阶段暴露
	if _, err := formatMessages(context.Background(), s.template, "probe"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfiguration, "invalid generation.system_prompt")
	}
	return s, nil
}

// callOptions 每次调用都带上固定采样参数，保证任意 provider 行为一致
func (s *GenerateService) callOptions() []einoModel.Option {
	opts := []einoModel.Option{
		einoModel.WithTemperature(s.gen.Temperature),
		einoModel.WithTopP(s.gen.TopP),
		einoModel.WithMaxTokens(s.gen.MaxTokens),
	}
	if s.modelName != "" {
		opts = append(opts, einoModel.WithModel(s.modelName))
	}
	return opts
}

// Stream 校验请求并打开上游流。返回的 Generation 必须 Close。
func (s *GenerateService) Stream(ctx context.Context, req model.GenerationRequest) (*Generation, error) {
	userPrompt := BuildPrompt(req)
	if userPrompt == "" {
		metrics.RecordGeneration(s.provider, StatusBadRequest)
		return nil, apperrors.BadRequest(NoPromptMessage)
	}
	if err := req.Validate(); err != nil {
		metrics.RecordGeneration(s.provider, StatusBadRequest)
		return nil, err
	}

	messages, err := formatMessages(ctx, s.template, userPrompt)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindUnknown, "failed to format prompt")
	}

	var cancel context.CancelFunc
	if s.gen.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.gen.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	ctx, span := tracer.Start(ctx, "upstream.stream", trace.WithAttributes(
		attribute.String("llm.provider", s.provider),
		attribute.String("llm.model", s.modelName),
		attribute.String("generation.tag_variant", string(req.WithDefaults().TagVariant)),
	))

	logger.WithContext(ctx).WithField("provider", s.provider).Debugf("upstream prompt: %s", userPrompt)

	start := time.Now()
	reader, err := s.chatModel.Stream(ctx, messages, s.callOptions()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		cancel()
		metrics.RecordUpstreamCall(s.provider, s.modelName, StatusUpstreamErr, time.Since(start).Seconds())
		metrics.RecordGeneration(s.provider, StatusUpstreamErr)
		return nil, apperrors.Upstream(err, model.UpstreamStatusCode(err))
	}

	return &Generation{
		reader:    reader,
		cancel:    cancel,
		span:      span,
		start:     start,
		provider:  s.provider,
		modelName: s.modelName,
	}, nil
}

// Generation 一次进行中的上游流
type Generation struct {
	reader    *schema.StreamReader[*schema.Message]
	cancel    context.CancelFunc
	span      trace.Span
	start     time.Time
	provider  string
	modelName string

	bytes     int
	closeOnce sync.Once
}

// Recv 返回下一个文本片段，流结束时返回 io.EOF
func (g *Generation) Recv() (string, error) {
	for {
		msg, err := g.reader.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", apperrors.Upstream(fmt.Errorf("stream interrupted: %w", err), model.UpstreamStatusCode(err))
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		g.bytes += len(msg.Content)
		return msg.Content, nil
	}
}

// Close 结束本次生成并记录结果
func (g *Generation) Close(status string) {
	g.closeOnce.Do(func() {
		g.reader.Close()
		g.cancel()

		upstreamStatus := StatusOK
		if status == StatusAborted {
			upstreamStatus = StatusUpstreamErr
			g.span.SetStatus(codes.Error, "stream aborted")
		}
		g.span.SetAttributes(attribute.Int("generation.bytes", g.bytes))
		g.span.End()

		metrics.RecordUpstreamCall(g.provider, g.modelName, upstreamStatus, time.Since(g.start).Seconds())
		metrics.RecordStreamedBytes(g.provider, g.bytes)
		metrics.RecordGeneration(g.provider, status)
	})
}
