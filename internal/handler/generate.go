package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"metatags-backend/internal/model"
	"metatags-backend/internal/service"
	"metatags-backend/internal/utils"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Generator 打开一次上游生成流
type Generator interface {
	Stream(ctx context.Context, req model.GenerationRequest) (*service.Generation, error)
}

type GenerateHandler struct {
	generator Generator
}

func NewGenerateHandler(generator Generator) *GenerateHandler {
	return &GenerateHandler{
		generator: generator,
	}
}

// Generate POST /api/generate：把上游文本流原样转发给调用方
func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx)

	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("invalid generate request body: %v", err)
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	generation, err := h.generator.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			log.Infof("client went away before upstream opened: %v", ctx.Err())
			return
		}
		writeError(c, err)
		return
	}

	status := service.StatusOK
	defer func() {
		generation.Close(status)
	}()

	writer := utils.NewTextStreamWriter(c.Writer)
	for {
		chunk, err := generation.Recv()
		if errors.Is(err, io.EOF) {
			log.Debugf("generation finished, %d bytes relayed", writer.Written())
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				// 调用方已断开，不再写任何内容
				status = service.StatusClientClosed
				log.Infof("client went away after %d bytes: %v", writer.Written(), ctx.Err())
				return
			}
			status = service.StatusAborted
			if writer.Written() == 0 {
				// 还没有写出任何字节，可以返回正常的错误状态
				writeError(c, err)
				return
			}
			log.Errorf("upstream stream failed after %d bytes: %v", writer.Written(), err)
			// 中断连接，让客户端看到不完整的响应而不是正常结束
			panic(http.ErrAbortHandler)
		}

		if err := writer.WriteChunk(chunk); err != nil {
			status = service.StatusClientClosed
			log.Infof("client went away: %v", err)
			return
		}
	}
}

// writeError 以纯文本返回错误原因
func writeError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	log := logger.WithContext(c.Request.Context())

	switch appErr.Kind {
	case apperrors.KindBadRequest:
		log.Infof("rejected generate request: %s", appErr.Message)
		c.String(http.StatusBadRequest, "%s", appErr.Message)
	case apperrors.KindUpstream:
		log.Errorf("upstream error: %v", appErr)
		c.String(appErr.HTTPStatus, "Upstream request failed: %s", http.StatusText(appErr.HTTPStatus))
	default:
		log.Errorf("generate failed: %v", appErr)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
