package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pipeline/internal/api"
	"pipeline/internal/config"
	"pipeline/internal/database"
	"pipeline/internal/models"
	"pipeline/internal/pipeline"
	"pipeline/internal/repository"
	"pipeline/internal/server"
	"pipeline/internal/webhook"
	"pipeline/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-running pipeline server over stdio",
	Long: `serve preloads every configured model worker in the background and
then dispatches jobs read as newline-delimited JSON requests on stdin,
writing one JSON response per line to stdout. A health probe answers
immediately, even while workers are still warming up.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	log.Println("loading configuration...")
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Startup("config", "configuration loaded", "output_dir", cfg.OutputDir, "port", cfg.Port)

	logger.Startup("database", "initializing job store", "path", cfg.DatabasePath)
	if err := database.Initialize(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()
	jobs := repository.NewJobRepository(database.DB)

	logger.Startup("executor", "wiring pipeline capabilities")
	exec, err := buildExecutor(cfg, true)
	if err != nil {
		log.Fatalf("failed to build pipeline executor: %v", err)
	}
	defer stopPools(exec)

	registry := models.NewWorkerRegistry()
	srv := server.New(exec, registry)
	srv.Webhook = webhook.NewService()
	srv.WebhookURL = cfg.WebhookURL
	srv.Jobs = jobs

	registerLoaders(srv, exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Startup("loader", "starting background worker warm-up")
	srv.StartBackgroundLoader(ctx, os.Stdout)

	handler := api.NewHandler(registry, exec, jobs)
	adminSrv := &http.Server{Addr: ":" + cfg.Port, Handler: api.SetupRoutes(handler)}
	go func() {
		logger.Startup("admin", "starting admin HTTP surface", "addr", adminSrv.Addr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server exited with error", "error", err.Error())
		}
	}()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("received shutdown signal, finishing in-flight request")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = adminSrv.Shutdown(shutdownCtx)
		cancel()
	}()

	logger.Startup("server", "ready to accept requests on stdin")
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	os.Exit(0)
}

// registerLoaders wires each WorkerRegistry-named capability to the warm-up
// step the background loader runs for it. The resolver carries no warm-up
// cost worth gating health on, so it reports ready immediately (the
// normalizer registers no loader);
// the transcriber's Ready probes its subprocess environment, and the
// diarizer/translator/extractor report whether their credential was
// configured, matching the diarizer's own "skip without credential" policy
// (§4.8).
func registerLoaders(srv *server.Server, exec *pipeline.Executor) {
	srv.RegisterLoader("resolver", func(ctx context.Context) error { return nil })

	srv.RegisterLoader("transcriber", func(ctx context.Context) error {
		return exec.Transcriber.Ready(ctx)
	})

	srv.RegisterLoader("diarizer", func(ctx context.Context) error {
		if !exec.Diarizer.Enabled() {
			return fmt.Errorf("HF_TOKEN not configured, diarization disabled")
		}
		return nil
	})

	srv.RegisterLoader("translator", func(ctx context.Context) error {
		if exec.Translator == nil {
			return fmt.Errorf("SEALION_API_KEY not configured, translation disabled")
		}
		return nil
	})

	srv.RegisterLoader("extractor", func(ctx context.Context) error {
		if exec.Extractor == nil {
			return fmt.Errorf("no clinical extractor configured")
		}
		return nil
	})
}
