package service

import (
	"context"
	"fmt"
	"strings"

	"metatags-backend/internal/model"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// NoPromptMessage prompt 为空时返回给调用方的文本
const NoPromptMessage = "No prompt in the request"

const userPromptKey = "user_prompt"

// BuildPrompt 把表单字段拼成一条自然语言指令，字段原样嵌入；描述为空时返回空串
func BuildPrompt(req model.GenerationRequest) string {
	if strings.TrimSpace(req.Description) == "" {
		return ""
	}
	req = req.WithDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "My company is a %s and I want to rank on Google. ", req.Description)
	b.WriteString("I want to use the following meta tags for my website. ")
	fmt.Fprintf(&b, "I want to use the following language: %s. ", req.Language)
	fmt.Fprintf(&b, "I want to use the following robots.txt settings: index: %t, follow: %t. ", req.RobotsIndex, req.RobotsFollow)
	b.WriteString(tagStyleInstruction(req.TagVariant))
	return b.String()
}

func tagStyleInstruction(v model.TagVariant) string {
	if v.SelfClosing() {
		return `I want the meta tags to be self-closing, for example <meta name="description" content="..." />.`
	}
	return `I want the meta tags to be not self-closing, for example <meta name="description" content="...">.`
}

// newPromptTemplate 系统指令 + 用户 prompt
func newPromptTemplate(systemPrompt string) prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{"+userPromptKey+"}"),
	)
}

// formatMessages 用模板生成发往上游的消息
func formatMessages(ctx context.Context, tpl prompt.ChatTemplate, userPrompt string) ([]*schema.Message, error) {
	return tpl.Format(ctx, map[string]any{
		userPromptKey: userPrompt,
	})
}
