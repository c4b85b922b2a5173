package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// MockClient is a mock implementation of LLMClient for testing.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateMessage returns a mock reply echoing the last user message.
func (m *MockClient) CreateMessage(ctx context.Context, messages []domain.Message, opts Options) (*MessageResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := m.generateMockResponse(messages)

	return &MessageResponse{
		ID:         fmt.Sprintf("msg_mock_%d", time.Now().UnixNano()),
		Type:       "message",
		Role:       string(domain.RoleAssistant),
		Content:    []ResponseContent{{Type: "text", Text: reply}},
		Model:      opts.Model,
		StopReason: "end_turn",
		Usage: &domain.Usage{
			InputTokens:  m.estimateTokens(messages),
			OutputTokens: len(reply) / 4,
		},
	}, nil
}

// CreateMessageStream returns an Anthropic-shaped event stream of the mock reply.
func (m *MockClient) CreateMessageStream(ctx context.Context, messages []domain.Message, opts Options) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := m.generateMockResponse(messages)
	id := fmt.Sprintf("msg_mock_%d", time.Now().UnixNano())

	var b strings.Builder
	writeEvent(&b, "message_start", map[string]interface{}{
		"type":    "message_start",
		"message": map[string]interface{}{"id": id, "model": opts.Model, "role": "assistant"},
	})
	for _, chunk := range splitIntoChunks(reply, 10) {
		writeEvent(&b, "content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]string{"type": "text_delta", "text": chunk},
		})
	}
	writeEvent(&b, "message_stop", map[string]string{"type": "message_stop"})

	return io.NopCloser(strings.NewReader(b.String())), nil
}

func writeEvent(b *strings.Builder, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(b, "event: %s\ndata: %s\n\n", event, data)
}

// generateMockResponse generates a mock response based on the conversation.
func (m *MockClient) generateMockResponse(messages []domain.Message) string {
	var lastUserMessage string
	var images int
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != domain.RoleUser {
			continue
		}
		content := messages[i].Content
		if content.Kind == domain.ContentPlainText {
			lastUserMessage = content.Text
			break
		}
		for _, block := range content.Blocks {
			switch block.Type {
			case domain.BlockTypeText:
				lastUserMessage = block.Text
			case domain.BlockTypeImage:
				images++
			}
		}
		break
	}

	if images > 0 {
		return fmt.Sprintf("[MOCK] Received %d image(s) with prompt %q. This is a mock response.", images, truncate(lastUserMessage, 100))
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(messages []domain.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content.Text) / 4
		for _, block := range msg.Content.Blocks {
			total += len(block.Text) / 4
		}
	}
	return total
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
