package service

import (
	"context"
	"sync"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel 按预设片段返回流，记录收到的消息与选项
type fakeChatModel struct {
	chunks  []string
	openErr error
	midErr  error

	mu       sync.Mutex
	calls    int
	messages []*schema.Message
	options  *einoModel.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: "unused"}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.calls++
	f.messages = input
	f.options = einoModel.GetCommonOptions(&einoModel.Options{}, opts...)
	f.mu.Unlock()

	if f.openErr != nil {
		return nil, f.openErr
	}

	reader, writer := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer writer.Close()
		for _, c := range f.chunks {
			if writer.Send(&schema.Message{Role: schema.Assistant, Content: c}, nil) {
				return
			}
		}
		if f.midErr != nil {
			writer.Send(nil, f.midErr)
		}
	}()
	return reader, nil
}

func (f *fakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
