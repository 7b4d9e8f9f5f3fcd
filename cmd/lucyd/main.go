// Command lucyd serves Lucy's HTTP API: retrieval, conversations,
// settings, media, and every enabled channel plugin's webhook/upload
// routes. Background task processing lives in cmd/lucyworker instead,
// so lucyd stays responsive under a slow LLM call.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/config"
	apperrors "github.com/pickeld/lucy/internal/errors"
	"github.com/pickeld/lucy/internal/handler"
	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
	"github.com/pickeld/lucy/internal/settings"
	"github.com/pickeld/lucy/internal/taskrt"

	_ "github.com/pickeld/lucy/internal/plugins/call_recording"
	_ "github.com/pickeld/lucy/internal/plugins/gmail"
	_ "github.com/pickeld/lucy/internal/plugins/paperless"
	_ "github.com/pickeld/lucy/internal/plugins/whatsapp"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	ctx := context.Background()

	h, err := host.NewHost(ctx, cfg)
	if err != nil {
		logger.Errorf(ctx, "constructing host: %v", err)
		os.Exit(1)
	}
	defer h.Close()

	taskCfg := taskrt.Config{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}
	enqueuer := taskrt.NewEnqueuer(taskCfg)
	defer enqueuer.Close()
	h.Tasks = enqueuer
	h.Ingest.Tasks = enqueuer

	registry := plugins.NewRegistry(h)
	if err := registry.LoadEnabled(ctx); err != nil {
		logger.Errorf(ctx, "loading plugins: %v", err)
		os.Exit(1)
	}
	defer registry.Shutdown(ctx)

	engine := gin.New()
	engine.Use(gin.Recovery(), apperrors.Recovery(), apperrors.Middleware())

	systemHandler := handler.NewSystemHandler(cfg, h, registry)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/system/info", systemHandler.GetSystemInfo)
	engine.GET("/system/minio/buckets", systemHandler.ListMinioBuckets)

	ragHandler := handler.NewRAGHandler(h.Retrieval, h.Vectors)
	rag := engine.Group("/rag")
	{
		rag.POST("/query", ragHandler.Query)
		rag.POST("/search", ragHandler.Search)
		rag.GET("/stats", ragHandler.Stats)
		rag.POST("/delete-by-source", ragHandler.DeleteBySource)
		rag.POST("/reset", ragHandler.Reset)
	}

	conversationsHandler := handler.NewConversationsHandler(h.Conversations)
	conv := engine.Group("/conversations")
	{
		conv.POST("", conversationsHandler.Create)
		conv.GET("", conversationsHandler.List)
		conv.GET("/:id", conversationsHandler.Get)
		conv.PATCH("/:id", conversationsHandler.Rename)
		conv.DELETE("/:id", conversationsHandler.Delete)
	}

	settingsHandler := handler.NewSettingsHandler(h.Settings, settings.BuiltinDefaults)
	settingsGroup := engine.Group("/settings")
	{
		settingsGroup.GET("", settingsHandler.ListSettings)
		settingsGroup.POST("", settingsHandler.SetSetting)
		settingsGroup.PUT("/:key", settingsHandler.UpdateSetting)
		settingsGroup.POST("/reset", settingsHandler.ResetSettings)
	}

	mediaHandler := handler.NewMediaHandler(h.Retrieval.RichContent)
	media := engine.Group("/media")
	{
		media.GET("/images/:name", mediaHandler.Image)
		media.GET("/events/:name", mediaHandler.Event)
	}

	registry.MountRoutes(engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof(ctx, "lucyd listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf(ctx, "server error: %v", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "shutting down lucyd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "server shutdown: %v", err)
	}
}
