package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/api"
	"github.com/talentgate/interview-pipeline/internal/logger"
	"github.com/talentgate/interview-pipeline/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for enqueueing analyses and polling results",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the api server", zap.String("version", version))

	st, err := buildStore(config)
	if err != nil {
		zlog.Fatal("opening the database", zap.Error(err))
	}

	broker, err := buildQueue(config, zlog)
	if err != nil {
		zlog.Fatal("connecting to the queue", zap.Error(err))
	}
	defer broker.Close()

	service := pipeline.NewService(st, broker, zlog)
	server := &http.Server{
		Addr:    listenAddress(config),
		Handler: api.NewServer(service, zlog).Router(),
	}

	go func() {
		zlog.Info("listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown incomplete", zap.Error(err))
	}
}
