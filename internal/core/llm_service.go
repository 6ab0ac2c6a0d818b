package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

const (
	completionTemperature = 0.1
	completionMaxTokens   = 256

	deepSeekFallback = "No response from DeepSeek"
	geminiFallback   = "No response from Gemini"
)

// completionAPI is the subset of *openai.Client used by DeepSeekCompleter.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// DeepSeekCompleter talks to the OpenAI-compatible DeepSeek chat endpoint.
type DeepSeekCompleter struct {
	api   completionAPI
	model string
}

func NewDeepSeekCompleter(apiKey, baseURL, model string) *DeepSeekCompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &DeepSeekCompleter{api: openai.NewClientWithConfig(cfg), model: model}
}

func (c *DeepSeekCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("deepseek completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("deepseek returned no content", "model", c.model)
		return deepSeekFallback, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// GeminiCompleter is the alternate provider backed by the Gemini SDK.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (c *GeminiCompleter) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			slog.Error("error closing GenAI client", "err", err)
		}
	}
}

func (c *GeminiCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	history := toGeminiContents(messages)
	if len(history) == 0 {
		return "", errors.New("prompt history is empty for chat completion")
	}
	last := history[len(history)-1]
	if last.Role != RoleUser {
		return "", errors.New("last message in history is not from 'user', cannot proceed with chat completion")
	}

	model := c.client.GenerativeModel(c.model)
	temp := float32(completionTemperature)
	maxTokens := int32(completionMaxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temp,
		MaxOutputTokens: &maxTokens,
	}

	session := model.StartChat()
	session.History = history[:len(history)-1]

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	text := geminiText(resp)
	if text == "" {
		slog.Warn("gemini returned no text", "model", c.model)
		return geminiFallback, nil
	}
	return text, nil
}

// toGeminiContents maps roles onto Gemini's user/model vocabulary.
func toGeminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := RoleUser
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return contents
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
