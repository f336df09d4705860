package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/internal/utils"
	"github.com/nutrilens/backend/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Analyzer produces a nutritional analysis for a food image. Implementations
// are expected to be network-bound and respect ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, contentType string) (string, error)
}

const nutritionSystemPrompt = "You are a professional nutrition expert and certified dietitian. " +
	"Provide detailed, accurate nutritional analysis."

const nutritionPrompt = `Analyze this food image and provide a comprehensive nutritional assessment:

**FOOD IDENTIFICATION**
- List all visible food items and ingredients
- Estimate portion sizes

**NUTRITIONAL BREAKDOWN**
- Total estimated calories
- Macronutrients (carbs, protein, fat) in grams
- Key vitamins and minerals
- Fiber and sugar content

**HEALTH ASSESSMENT**
- Overall nutritional quality (1-10 rating)
- Health benefits and concerns
- Allergen information

**RECOMMENDATIONS**
- Suggestions for nutritional balance
- Complementary foods
- Portion recommendations

**SUMMARY**
- Key nutritional highlights
- Main takeaway

Be specific with numbers and explain your reasoning.`

// VisionService calls a vision-capable LLM with the uploaded image. The
// provider is fixed at startup from config; each provider speaks its native
// SDK.
type VisionService struct {
	cfg *config.AIConfig
}

func NewVisionService(cfg *config.AIConfig) *VisionService {
	return &VisionService{cfg: cfg}
}

// Analyze sends the image to the configured provider and returns the model's
// analysis text. Errors are returned raw; the admission pipeline classifies
// them.
func (s *VisionService) Analyze(ctx context.Context, image []byte, contentType string) (string, error) {
	timeout := time.Duration(s.cfg.TimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	logger.Info().
		Str("provider", s.cfg.Provider).
		Str("model", s.cfg.Model).
		Int("image_bytes", len(image)).
		Msg("vision analysis started")

	var content string
	var err error

	switch s.cfg.Provider {
	case "openai":
		content, err = s.callOpenAI(ctx, image, contentType)
	case "anthropic":
		content, err = s.callAnthropic(ctx, image, contentType)
	case "ollama":
		content, err = s.callOllama(ctx, image)
	default:
		// gemini is the default provider
		content, err = s.callGemini(ctx, image, contentType)
	}

	if err != nil {
		logger.Error().Err(err).
			Str("provider", s.cfg.Provider).
			Dur("latency", time.Since(start)).
			Msg("vision analysis failed")
		return "", err
	}

	logger.Info().
		Str("provider", s.cfg.Provider).
		Int("result_chars", len(content)).
		Dur("latency", time.Since(start)).
		Msg("vision analysis completed")

	return content, nil
}

// callGemini handles Google Gemini using the native SDK.
func (s *VisionService) callGemini(ctx context.Context, image []byte, contentType string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := s.cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(nutritionSystemPrompt + "\n\n" + nutritionPrompt),
			genai.NewPartFromBytes(image, contentType),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return resp.Text(), nil
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs.
func (s *VisionService) callOpenAI(ctx context.Context, image []byte, contentType string) (string, error) {
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	dataURL := "data:" + contentType + ";base64," + utils.EncodeImage(image)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: nutritionSystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: nutritionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// callAnthropic handles Anthropic Claude using the native SDK.
func (s *VisionService) callAnthropic(ctx context.Context, image []byte, contentType string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(s.cfg.APIKey)}
	if s.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := s.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: nutritionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(contentType, utils.EncodeImage(image)),
				anthropic.NewTextBlock(nutritionPrompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return content.String(), nil
}

// callOllama handles locally hosted models via the Ollama API.
func (s *VisionService) callOllama(ctx context.Context, image []byte) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := s.cfg.Model
	if model == "" {
		model = "llava"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: nutritionSystemPrompt},
			{Role: "user", Content: nutritionPrompt, Images: []api.ImageData{image}},
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	return content.String(), nil
}
