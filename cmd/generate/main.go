// generate 命令行客户端：提交表单并实时打印生成的 meta 标签
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"metatags-backend/internal/composer"
	"metatags-backend/internal/config"
	"metatags-backend/internal/model"
	"metatags-backend/internal/utils"
	apperrors "metatags-backend/pkg/errors"
	"metatags-backend/pkg/logger"
)

func main() {
	var (
		configPath   string
		endpoint     string
		description  string
		language     string
		robotsIndex  bool
		robotsFollow bool
		selfClosing  bool
		strip        bool
	)
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.StringVar(&endpoint, "endpoint", "", "生成接口地址，默认取 composer.endpoint")
	flag.StringVar(&description, "description", "", "网站描述（1-280 字符）")
	flag.StringVar(&language, "language", model.DefaultLanguage, "网站语言")
	flag.BoolVar(&robotsIndex, "index", false, "允许搜索引擎索引")
	flag.BoolVar(&robotsFollow, "follow", false, "允许搜索引擎跟踪链接")
	flag.BoolVar(&selfClosing, "self-closing", false, "生成自闭合标签")
	flag.BoolVar(&strip, "strip-fences", true, "结束后去掉 Markdown 代码围栏并重新输出")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.InitWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	if endpoint == "" {
		endpoint = cfg.Composer.Endpoint
	}

	variant := model.TagVariantNonSelfClosing
	if selfClosing {
		variant = model.TagVariantSelfClosing
	}

	c := composer.New(endpoint, utils.NewHTTPClient(cfg.Composer.Timeout))
	c.OnChunk = func(delta string) {
		fmt.Fprint(os.Stdout, delta)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	text, err := c.Submit(ctx, model.GenerationRequest{
		Description:  description,
		Language:     language,
		RobotsIndex:  robotsIndex,
		RobotsFollow: robotsFollow,
		TagVariant:   variant,
	})
	fmt.Fprintln(os.Stdout)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.Is(err, apperrors.ErrRequestFailed) && errors.As(err, &appErr) && appErr.Status != "" {
			logger.Errorf("生成失败: %s (%v)", appErr.Status, appErr.Err)
		} else {
			logger.Errorf("生成失败: %v", err)
		}
		os.Exit(1)
	}

	if strip {
		fmt.Fprintln(os.Stdout, "----")
		fmt.Fprintln(os.Stdout, composer.StripCodeFences(text))
	}
}
