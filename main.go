package main

import (
	"context"
	"log"

	"EmoFace/config"
	"EmoFace/controller"
	"EmoFace/dao/mysql"
	"EmoFace/dao/store"
	"EmoFace/middleware"
	"EmoFace/pkg/gemini"
	"EmoFace/pkg/horde"
	"EmoFace/pkg/logger"
	"EmoFace/pkg/queue"
	"EmoFace/pkg/sse"
	"EmoFace/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(gin.Mode() != gin.ReleaseMode); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()
	detector, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to init Gemini client: %v", err)
	}
	generator := horde.NewClient(cfg.HordeAPIKey, cfg.HordeBaseURL)

	// MySQL 历史记录，可选
	historyEnabled := false
	if cfg.MySQLDSN != "" {
		if err := mysql.Init(cfg.MySQLDSN); err != nil {
			log.Fatalf("Failed to init MySQL: %v", err)
		}
		defer mysql.Close()
		historyEnabled = true
	}

	// 异步任务需要 redis + rabbitmq，配置齐了才开
	asyncEnabled := cfg.AsyncEnabled()
	if asyncEnabled {
		if err := store.Init(cfg.RedisAddr); err != nil {
			log.Fatalf("Failed to init Redis: %v", err)
		}
		if err := queue.InitGenerationQueue(cfg.RabbitMQDSN); err != nil {
			log.Fatalf("Failed to init RabbitMQ: %v", err)
		}
		genQueue, err := queue.GetGenerationQueue()
		if err != nil {
			log.Fatalf("Failed to get generation queue: %v", err)
		}
		defer genQueue.Close()

		processor := worker.NewProcessor(generator, genQueue, nil, 0, historyEnabled)
		go processor.Start()
	}

	r := gin.Default()
	r.Use(middleware.CORS())

	// 初始化并启动 SSE hub
	sseHub := sse.NewHub()
	sse.SetDefaultHub(sseHub)
	go sseHub.Run()

	h := controller.NewHandler(detector, generator, asyncEnabled, historyEnabled)

	r.GET("/", controller.Health)
	r.GET("/events", sse.ServeSSE)
	r.POST("/api/detect-emotion", h.DetectEmotion)
	r.POST("/api/edit-image", h.EditImage)
	r.POST("/api/generate-image", h.GenerateImage)
	r.POST("/api/generate-image/async", h.SubmitGenerationTask)
	r.GET("/api/tasks/:task_id", h.GetTaskResult)
	r.GET("/api/tasks", h.GetTaskHistory)
	r.GET("/api/history", h.GetGenerationHistory)
	r.GET("/api/history/:task_id", h.GetGenerationRecord)
	// 异步任务生成的图片走静态目录
	r.Static("/public/pic", "./public/pic")

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
