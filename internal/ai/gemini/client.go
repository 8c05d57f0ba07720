package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/talentgate/interview-pipeline/internal/util"
)

const (
	defaultModel = "gemini-2.5-flash"

	// Uploaded media is processed asynchronously; poll until active.
	filePollInterval = 500 * time.Millisecond
	filePollTimeout  = 30 * time.Second
)

// Client wraps the Google GenAI client for the transcription and scoring
// gateways.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a new Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, modelName: model}, nil
}

// GenerateText sends the prompt to Gemini and returns the combined textual
// response.
func (c *Client) GenerateText(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return collectText(resp)
}

// TranscribeFile uploads the media file, waits until Gemini has processed it,
// and asks the model to transcribe its spoken content. The uploaded file is
// deleted afterwards. An empty transcript is a valid outcome.
func (c *Client) TranscribeFile(ctx context.Context, path, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}

	file, err := c.client.Files.UploadFromPath(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("upload media file: %w", err)
	}
	defer func() {
		_, _ = c.client.Files.Delete(ctx, file.Name, nil)
	}()

	file, err = c.awaitFile(ctx, file)
	if err != nil {
		return "", err
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(file.URI, file.MIMEType),
	}, genai.RoleUser)

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, []*genai.Content{content}, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("generate transcription: %w", err)
	}

	text, err := collectText(resp)
	if errors.Is(err, errEmptyResponse) {
		// Silence is a legitimate transcription result.
		return "", nil
	}
	return text, err
}

func (c *Client) awaitFile(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(filePollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("media file %s: processing timed out", file.Name)
		}
		if err := util.WaitFor(ctx, filePollInterval); err != nil {
			return nil, err
		}

		var err error
		file, err = c.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("poll media file state: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("media file %s: provider rejected the file", file.Name)
	}

	return file, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

var errEmptyResponse = errors.New("gemini api returned empty response")

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errEmptyResponse
	}

	return output, nil
}
