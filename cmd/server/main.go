// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fin-analyzer-go/internal/config"
	"fin-analyzer-go/internal/handler"
	"fin-analyzer-go/internal/metrics"
	"fin-analyzer-go/internal/pipeline"
	"fin-analyzer-go/internal/repository"
	"fin-analyzer-go/internal/service"
	"fin-analyzer-go/pkg/database"
	"fin-analyzer-go/pkg/extractor"
	"fin-analyzer-go/pkg/llm"
	"fin-analyzer-go/pkg/log"
	"fin-analyzer-go/pkg/tika"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	defer database.Close(db)

	// 4. 初始化文档提取与分析智能体
	var ex *extractor.FileExtractor
	if cfg.Extractor.PDFBackend == "tika" {
		ex = extractor.NewWithRemote(tika.NewClient(cfg.Tika))
		log.Infof("PDF 提取使用 Tika: %s", cfg.Tika.ServerURL)
	} else {
		ex = extractor.New()
	}

	validation, err := llm.ValidationOption(cfg.Analysis.Validation)
	if err != nil {
		log.Fatal("invalid analysis validation mode", err)
	}
	agent := llm.NewAgent(
		llm.NewChatClient(cfg.LLM),
		cfg.LLM,
		llm.WithTool(llm.NewDocumentTool(ex)),
		validation,
	)
	log.Infof("LLM 智能体初始化完成, model: %s, base_url: %s", cfg.LLM.Model, cfg.LLM.BaseURL)

	// 5. 初始化 Repository、Pipeline 和 Service
	analysisRepo := repository.NewAnalysisRepository(db)
	processor := pipeline.NewProcessor(ex, agent, cfg.Analysis.MaxChars)
	analysisService := service.NewAnalysisService(processor, analysisRepo, cfg.Analysis.ScratchDir)

	// 6. 设置 Gin 路由
	metrics.Init()
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.NewAnalysisHandler(analysisService), cfg.Server.MaxUploadMB<<20)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP 服务监听失败", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
}
