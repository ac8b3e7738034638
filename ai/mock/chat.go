package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// DefaultResponse is returned by MockChatModel when no behavior is injected.
const DefaultResponse = "mock response"

// MockChatModel is a test double for llms.Model.
// It records the messages it receives and answers with DefaultResponse
// unless GenerateContentFunc is set.
type MockChatModel struct {
	// GenerateContentFunc is called by GenerateContent if set.
	GenerateContentFunc func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)

	mu           sync.Mutex
	callCount    int
	lastMessages []llms.MessageContent
}

var _ llms.Model = (*MockChatModel)(nil)

// NewMockChatModel creates a mock chat model with default behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// GenerateContent records the call and returns the injected or default response.
func (m *MockChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = messages
	fn := m.GenerateContentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, options...)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: DefaultResponse}},
	}, nil
}

// Call implements the single-prompt convenience method of llms.Model.
func (m *MockChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}

// CallCount returns the number of GenerateContent calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the concatenated text of the human messages from the last call.
func (m *MockChatModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return HumanText(m.lastMessages)
}

// LastMessages returns the messages from the last call.
func (m *MockChatModel) LastMessages() []llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessages
}

// Reset clears recorded calls and injected behavior.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastMessages = nil
	m.GenerateContentFunc = nil
}

// HumanText joins the text parts of all human messages.
func HumanText(messages []llms.MessageContent) string {
	var sb strings.Builder
	for _, msg := range messages {
		if msg.Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
	}
	return sb.String()
}

// Respond builds a ContentResponse with a single choice.
func Respond(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}
