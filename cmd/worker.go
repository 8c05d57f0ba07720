package cmd

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/ai/gemini"
	"github.com/talentgate/interview-pipeline/internal/authenticity"
	"github.com/talentgate/interview-pipeline/internal/logger"
	"github.com/talentgate/interview-pipeline/internal/media"
	"github.com/talentgate/interview-pipeline/internal/notify"
	"github.com/talentgate/interview-pipeline/internal/pipeline"
	"github.com/talentgate/interview-pipeline/internal/queue"
	"github.com/talentgate/interview-pipeline/internal/scoring"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the analysis worker consuming queued interviews",
	Run: func(_ *cobra.Command, _ []string) {
		work()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func work() {
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

	zlog.Info("starting the analysis worker", zap.String("version", version))

	st, err := buildStore(config)
	if err != nil {
		zlog.Fatal("opening the database", zap.Error(err))
	}

	broker, err := buildQueue(config, zlog)
	if err != nil {
		zlog.Fatal("connecting to the queue", zap.Error(err))
	}
	defer broker.Close()

	client, geminiConfig, err := buildGeminiClient(ctx, config, zlog)
	if err != nil {
		zlog.Fatal("configuring the ai provider", zap.Error(err))
	}

	mediaRoot := ""
	ffmpegBinary := ""
	if config.Media != nil {
		mediaRoot = config.Media.Root
		ffmpegBinary = config.Media.FFmpegBinary
	}
	if mediaRoot == "" {
		zlog.Fatal("media root is not configured (set media.root)")
	}

	aiLogger := logger.WithCommonFields(zlog, "gemini", client.Model())
	transcriber := gemini.NewTranscriber(client, media.FFmpeg{Binary: ffmpegBinary}, aiLogger)

	maxLogLength := 0
	if geminiConfig != nil {
		maxLogLength = geminiConfig.MaxLogLength
	}
	scorer := gemini.NewScorer(client, aiLogger, maxLogLength)

	sampler := authenticity.NewOpenCVSampler(cascadeFile(config))
	if config.Authenticity != nil && config.Authenticity.FrameStride > 0 {
		sampler.Stride = config.Authenticity.FrameStride
	}

	transcribeLimit := 0
	if config.Pipeline != nil {
		transcribeLimit = config.Pipeline.TranscribeConcurrency
	}

	runner := pipeline.NewRunner(pipeline.RunnerParams{
		Store:           st,
		Media:           media.Dir{Root: mediaRoot},
		Transcriber:     transcriber,
		Scoring:         scoring.New(scorer, zlog),
		Assessor:        authenticity.NewScorer(sampler, zlog),
		Notifier:        notify.NewLog(zlog),
		Logger:          zlog,
		TranscribeLimit: transcribeLimit,
	})

	err = broker.Consume(ctx, func(jobCtx context.Context, job queue.Job) error {
		return runner.Process(jobCtx, job)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal("consumer stopped", zap.Error(err))
	}
	zlog.Info("worker stopped")
}
