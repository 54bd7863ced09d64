// Package listing generates listing titles and prices with a completion API.
package listing

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/steps"
)

// Assistant implements steps.ListingAssistant.
type Assistant struct {
	Model   llms.Model
	Prompts *PromptManager
	Events  *observability.Logger
}

func NewAssistant(model llms.Model, prompts *PromptManager, events *observability.Logger) *Assistant {
	return &Assistant{Model: model, Prompts: prompts, Events: events}
}

// NewOpenAIModel builds a chat model for an OpenAI compatible endpoint. An
// empty key yields steps.ErrNoCredential.
func NewOpenAIModel(apiKey, model, baseURL string) (llms.Model, error) {
	if apiKey == "" {
		return nil, steps.ErrNoCredential
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

// Title describes the product in image, a local path or an http(s) URL.
func (a *Assistant) Title(ctx context.Context, image string) (string, error) {
	if a == nil || a.Model == nil {
		return "", steps.ErrNoCredential
	}
	imagePart, err := imageContent(image)
	if err != nil {
		return "", err
	}
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(a.Prompts.GetTitlePrompt())},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart("Write the listing title for this product."),
				imagePart,
			},
		},
	}
	return a.generate(ctx, "title", image, messages, llms.WithMaxTokens(60), llms.WithTemperature(0.4))
}

// Price returns the model's raw answer; callers extract the amount.
func (a *Assistant) Price(ctx context.Context, title string) (string, error) {
	if a == nil || a.Model == nil {
		return "", steps.ErrNoCredential
	}
	request := a.Prompts.PriceRequest(title)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, a.Prompts.GetPricePrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, request),
	}
	return a.generate(ctx, "price", request, messages, llms.WithMaxTokens(40), llms.WithTemperature(0.2))
}

func (a *Assistant) generate(ctx context.Context, purpose, prompt string, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	resp, err := a.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", purpose, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion: empty response", purpose)
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	a.Events.LogLLM("", purpose, prompt, content)
	return content, nil
}

func imageContent(image string) (llms.ContentPart, error) {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return llms.ImageURLPart(image), nil
	}
	data, err := os.ReadFile(image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(image)))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return llms.BinaryPart(mimeType, data), nil
}
