// Command lucyworker drains the durable task queue (spec component
// C7): identity extraction, ingestion, scheduled channel sync, and
// call-recording transcription. Runs two asynq servers, one per
// queue, so a burst of lightweight tasks never starves the single
// heavy-queue slot transcription and bulk sync share.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pickeld/lucy/internal/config"
	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
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
		RedisAddr:          cfg.Redis.Addr,
		RedisPassword:      cfg.Redis.Password,
		RedisDB:            cfg.Redis.DB,
		DefaultConcurrency: 4,
		HeavyConcurrency:   1,
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

	chatModelName, _ := h.Settings.Get(ctx, "chat.model_name")
	extractor := &identity.Extractor{
		Store:            h.Identity,
		Chat:             h.Chat,
		Meter:            h.CostMeter,
		ModelName:        chatModelName,
		MinMessageLength: 20,
	}

	mux := taskrt.BuildMux(taskrt.Deps{
		Extractor: extractor,
		Identity:  h.Identity,
		Ingest:    h.Ingest,
		Plugins:   registry,
	})

	defaultServer := taskrt.NewDefaultServer(taskCfg)
	heavyServer := taskrt.NewHeavyServer(taskCfg)

	if err := defaultServer.Start(mux); err != nil {
		logger.Errorf(ctx, "starting default queue server: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "lucyworker default queue started")

	if err := heavyServer.Start(mux); err != nil {
		logger.Errorf(ctx, "starting heavy queue server: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "lucyworker heavy queue started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof(ctx, "received %s, shutting down lucyworker", sig)

	defaultServer.Shutdown()
	heavyServer.Shutdown()
}
