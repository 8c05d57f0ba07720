package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/ai/gemini"
	"github.com/talentgate/interview-pipeline/internal/logger"
	"github.com/talentgate/interview-pipeline/internal/queue"
	"github.com/talentgate/interview-pipeline/internal/secrets"
	"github.com/talentgate/interview-pipeline/internal/store"
)

const (
	defaultListen      = ":8080"
	defaultCascadeFile = "haarcascade_frontalface_default.xml"
)

func buildStore(config *Config) (*store.Gorm, error) {
	if config.Database == nil || config.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is not configured (set database.dsn or DB_DSN)")
	}
	return store.Open(config.Database.DSN)
}

func buildQueue(config *Config, log *zap.Logger) (*queue.RabbitMQ, error) {
	if config.Queue == nil || config.Queue.URL == "" {
		return nil, fmt.Errorf("queue url is not configured (set queue.url or RABBITMQ_URL)")
	}
	return queue.Dial(config.Queue.URL, log)
}

func buildGeminiClient(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Client, *GeminiConfig, error) {
	aiConfig := config.AI
	if aiConfig == nil {
		aiConfig = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(aiConfig.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", aiConfig.Provider)
	}

	geminiConfig := aiConfig.Gemini
	if geminiConfig == nil {
		geminiConfig = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: geminiConfig.APIKey,
		File:  geminiConfig.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey, geminiConfig.Model)
	if err != nil {
		return nil, nil, err
	}

	logger.WithCommonFields(log, "gemini", client.Model()).Info("ai provider configured")
	return client, geminiConfig, nil
}

func listenAddress(config *Config) string {
	if config.HTTP == nil || config.HTTP.Listen == "" {
		return defaultListen
	}
	return config.HTTP.Listen
}

func cascadeFile(config *Config) string {
	if config.Authenticity == nil || config.Authenticity.CascadeFile == "" {
		return defaultCascadeFile
	}
	return config.Authenticity.CascadeFile
}
