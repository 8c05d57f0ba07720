package cmd

import (
	"context"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/logger"
	"github.com/talentgate/interview-pipeline/internal/pipeline"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var requeuePrompt = promptui.Select{
	Label: "Re-enqueue these interviews?",
	Items: []string{PromptYes, PromptNo},
}

var requeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Re-enqueue failed interviews for another analysis run",
	Run: func(cmd *cobra.Command, _ []string) {
		requeue(cmd)
	},
}

func init() {
	rootCmd.AddCommand(requeueCmd)

	requeueCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation")
}

func requeue(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	st, err := buildStore(config)
	if err != nil {
		zlog.Fatal("opening the database", zap.Error(err))
	}

	failed, err := st.FailedInterviews(ctx)
	if err != nil {
		zlog.Fatal("listing failed interviews", zap.Error(err))
	}
	if len(failed) == 0 {
		zlog.Info("exiting", zap.String("reason", "no failed interviews found"))
		return
	}

	for _, interview := range failed {
		zlog.Info("failed interview",
			zap.Uint("interview_id", interview.ID),
			zap.String("role_code", interview.RoleCode),
			zap.String("error", interview.ErrorMessage),
		)
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		_, action, err := requeuePrompt.Run()
		if err != nil {
			zlog.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			zlog.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	broker, err := buildQueue(config, zlog)
	if err != nil {
		zlog.Fatal("connecting to the queue", zap.Error(err))
	}
	defer broker.Close()

	service := pipeline.NewService(st, broker, zlog)
	entries, err := service.RequeueFailed(ctx)
	if err != nil {
		zlog.Fatal("requeueing failed interviews", zap.Error(err))
	}

	zlog.Info("interviews re-enqueued", zap.Int("count", len(entries)))
}
