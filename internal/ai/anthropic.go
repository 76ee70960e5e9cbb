package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient is the production Client backed by the Anthropic API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicClient() *AnthropicClient {
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	log.Println("AI client using Anthropic API:", model)
	return &AnthropicClient{client: &client, model: model}
}

func (c *AnthropicClient) GenerateQuestions(ctx context.Context, content string, count int, difficulty string) (*Response, error) {
	return c.send(ctx, quizSystemPrompt, BuildQuizPrompt(content, count, difficulty), 0.8)
}

func (c *AnthropicClient) GradeAnswer(ctx context.Context, question, rubric, answer string) (*Response, error) {
	return c.send(ctx, gradeSystemPrompt, BuildGradePrompt(question, rubric, answer), 0.2)
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	return c.send(ctx, "", prompt, 0.7)
}

func (c *AnthropicClient) Model() string {
	return c.model
}

func (c *AnthropicClient) ParseImage(ctx context.Context, data []byte, mediaType string) (*Response, error) {
	encoded := base64.StdEncoding.EncodeToString(data)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, encoded),
				anthropic.NewTextBlock(ocrPrompt),
			),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	return responseFromMessage(message)
}

func (c *AnthropicClient) send(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	return responseFromMessage(message)
}

func (c *AnthropicClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			select {
			case <-time.After(sleepDuration):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

func responseFromMessage(message *anthropic.Message) (*Response, error) {
	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}
	return &Response{
		Content:      text,
		Model:        string(message.Model),
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}
