// Package composer 是生成接口的客户端：校验表单、发起请求、增量解码响应流。
package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"metatags-backend/internal/model"
	"metatags-backend/internal/utils"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// ErrSuperseded 提交在完成前被更新的提交取代
var ErrSuperseded = errors.New("composer: submission superseded by a newer one")

const (
	readBufferSize = 32 * 1024
	maxErrorBody   = 4 * 1024
)

// Composer 同一时刻只有一个有效提交；新的提交会取消旧的请求。
type Composer struct {
	endpoint string
	client   *http.Client
	buffer   *DisplayBuffer

	// OnChunk 收到当前提交的每段解码文本时调用
	OnChunk func(delta string)

	mu          sync.Mutex
	inflightGen uint64
	cancel      context.CancelFunc
}

// New 创建 Composer；client 为 nil 时使用默认出站客户端
func New(endpoint string, client *http.Client) *Composer {
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	return &Composer{
		endpoint: endpoint,
		client:   client,
		buffer:   NewDisplayBuffer(),
	}
}

func (c *Composer) Buffer() *DisplayBuffer {
	return c.buffer
}

// Submit 发起一次生成，阻塞直到流结束，返回完整文本
func (c *Composer) Submit(ctx context.Context, req model.GenerationRequest) (string, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	gen := c.begin(cancel)
	defer c.finish(gen, cancel)

	log := logger.WithContext(ctx).WithFields(logrus.Fields{
		"generation": gen,
		"endpoint":   c.endpoint,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.buffer.Fail(gen, err)
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", c.fail(gen, apperrors.Wrap(err, apperrors.KindRequestFailed, "request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		reqErr := apperrors.RequestFailed(resp.StatusCode, resp.Status)
		if msg := strings.TrimSpace(string(reason)); msg != "" {
			reqErr.Err = errors.New(msg)
		}
		log.Warnf("generate request failed: %s", resp.Status)
		return "", c.fail(gen, reqErr)
	}

	// 单消费者顺序读取，保证字节顺序
	dec := NewDecoder()
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			c.emit(gen, dec.Decode(buf[:n]))
		}
		if errors.Is(readErr, io.EOF) {
			c.emit(gen, dec.Flush())
			break
		}
		if readErr != nil {
			return "", c.fail(gen, apperrors.Wrap(readErr, apperrors.KindRequestFailed, "stream interrupted"))
		}
	}

	text, ok := c.buffer.Complete(gen)
	if !ok {
		return "", ErrSuperseded
	}
	log.Debugf("generation complete, %d bytes", len(text))
	return text, nil
}

// Reset 作废进行中的提交并清空显示内容
func (c *Composer) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.buffer.Reset()
}

func (c *Composer) begin(cancel context.CancelFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	gen := c.buffer.Begin()
	c.inflightGen = gen
	c.cancel = cancel
	return gen
}

func (c *Composer) finish(gen uint64, cancel context.CancelFunc) {
	c.mu.Lock()
	if c.inflightGen == gen {
		c.cancel = nil
	}
	c.mu.Unlock()
	cancel()
}

func (c *Composer) emit(gen uint64, text string) {
	if text == "" {
		return
	}
	if c.buffer.Append(gen, text) && c.OnChunk != nil {
		c.OnChunk(text)
	}
}

// fail 当前提交失败时记录到 buffer；已被取代则返回 ErrSuperseded
func (c *Composer) fail(gen uint64, err error) error {
	if !c.buffer.IsCurrent(gen) {
		return ErrSuperseded
	}
	c.buffer.Fail(gen, err)
	return err
}
