package ai

import (
	"context"
	"fmt"
	"strings"
)

// MockClient serves canned responses for local development (MOCK_AI=true).
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GenerateQuestions(ctx context.Context, content string, count int, difficulty string) (*Response, error) {
	if count <= 0 {
		count = 6
	}
	var questions []string
	for i := 0; i < count; i++ {
		questions = append(questions, fmt.Sprintf(
			`{"prompt":"[Mock] Question %d about the supplied material (%s).","question_type":"multiple_choice","choices":["A","B","C","D"],"correct_answer":"A","explanation":"[Mock] A restates the key point."}`,
			i+1, difficulty,
		))
	}
	return &Response{
		Content:      fmt.Sprintf(`{"questions":[%s]}`, strings.Join(questions, ",")),
		Model:        "mock",
		PromptTokens: 1200,
		OutputTokens: 600,
	}, nil
}

func (m *MockClient) ParseImage(ctx context.Context, data []byte, mediaType string) (*Response, error) {
	return &Response{
		Content:      fmt.Sprintf("[Mock] transcription of %d-byte %s document", len(data), mediaType),
		Model:        "mock",
		PromptTokens: 900,
		OutputTokens: 120,
	}, nil
}

func (m *MockClient) GradeAnswer(ctx context.Context, question, rubric, answer string) (*Response, error) {
	return &Response{
		Content:      `{"score":0.8,"max_score":1.0,"feedback":"[Mock] Mostly correct.","detected_mistakes":[],"confidence":0.9}`,
		Model:        "mock",
		PromptTokens: 700,
		OutputTokens: 80,
	}, nil
}

func (m *MockClient) Model() string {
	return "mock"
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	return &Response{
		Content:      "[Mock] completion",
		Model:        "mock",
		PromptTokens: 100,
		OutputTokens: 20,
	}, nil
}
