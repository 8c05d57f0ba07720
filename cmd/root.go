package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interview-pipeline"
)

type Config struct {
	Database     *DatabaseConfig     `mapstructure:"database"`
	Queue        *QueueConfig        `mapstructure:"queue"`
	Media        *MediaConfig        `mapstructure:"media"`
	HTTP         *HTTPConfig         `mapstructure:"http"`
	AI           *AIConfig           `mapstructure:"ai"`
	Authenticity *AuthenticityConfig `mapstructure:"authenticity"`
	Pipeline     *PipelineConfig     `mapstructure:"pipeline"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type QueueConfig struct {
	URL string `mapstructure:"url"`
}

type MediaConfig struct {
	Root         string `mapstructure:"root"`
	FFmpegBinary string `mapstructure:"ffmpeg-binary"`
}

type HTTPConfig struct {
	Listen string `mapstructure:"listen"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AuthenticityConfig struct {
	CascadeFile string `mapstructure:"cascade-file"`
	FrameStride int    `mapstructure:"frame-stride"`
}

type PipelineConfig struct {
	TranscribeConcurrency int `mapstructure:"transcribe-concurrency"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-pipeline analyzes recorded interview responses and scores candidates",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"database.dsn":           "DB_DSN",
		"queue.url":              "RABBITMQ_URL",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-pipeline.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Local development keeps credentials in a .env file.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit config file everything can come from
		// environment variables.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}
