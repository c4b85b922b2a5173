package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1/messages"
	DefaultVersion   = "2023-06-01"
	defaultMediaType = "image/jpeg"
)

// Client is the Anthropic Messages API client.
type Client struct {
	url        string
	apiKey     string
	version    string
	httpClient *http.Client
}

// NewClient creates a new client posting to url, the full messages endpoint.
// A zero timeout leaves the transport's own timeouts in charge.
func NewClient(url, apiKey, version string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		url:     url,
		apiKey:  apiKey,
		version: version,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MessagesRequest is the upstream request body.
type MessagesRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	Messages    []MessageInput `json:"messages"`
	Stream      bool           `json:"stream"`
	System      string         `json:"system,omitempty"`
}

// MessageInput is one formatted conversation turn.
type MessageInput struct {
	Role    domain.Role `json:"role"`
	Content interface{} `json:"content"` // string or []ContentInput
}

// ContentInput is a formatted content block.
type ContentInput struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource is the nested descriptor for inline image data.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// MessageResponse is the non-streaming upstream reply.
type MessageResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []ResponseContent `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
	Usage      *domain.Usage     `json:"usage,omitempty"`
}

// ResponseContent is a content block in the reply.
type ResponseContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text returns the text of the first content block.
func (r *MessageResponse) Text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

// FormatMessages converts stored messages into the upstream request shape.
func FormatMessages(messages []domain.Message) []MessageInput {
	out := make([]MessageInput, 0, len(messages))
	for _, msg := range messages {
		switch msg.Content.Kind {
		case domain.ContentBlocks:
			blocks := make([]ContentInput, 0, len(msg.Content.Blocks))
			for _, block := range msg.Content.Blocks {
				blocks = append(blocks, formatBlock(block))
			}
			out = append(out, MessageInput{Role: msg.Role, Content: blocks})
		default:
			out = append(out, MessageInput{Role: msg.Role, Content: msg.Content.Text})
		}
	}
	return out
}

func formatBlock(block domain.ContentBlock) ContentInput {
	switch block.Type {
	case domain.BlockTypeImage:
		mediaType := block.MediaType
		if mediaType == "" {
			mediaType = defaultMediaType
		}
		return ContentInput{
			Type: string(domain.BlockTypeImage),
			Source: &ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      block.Data,
			},
		}
	default:
		return ContentInput{Type: string(block.Type), Text: block.Text}
	}
}

// CreateMessage sends a non-streaming request.
func (c *Client) CreateMessage(ctx context.Context, messages []domain.Message, opts Options) (*MessageResponse, error) {
	opts.Stream = false

	resp, err := c.do(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result MessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// CreateMessageStream sends a streaming request and hands back the open body.
func (c *Client) CreateMessageStream(ctx context.Context, messages []domain.Message, opts Options) (io.ReadCloser, error) {
	opts.Stream = true

	resp, err := c.do(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, messages []domain.Message, opts Options) (*http.Response, error) {
	body, err := json.Marshal(MessagesRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages:    FormatMessages(messages),
		Stream:      opts.Stream,
		System:      opts.SystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, opts.Stream)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return resp, nil
}

// setHeaders sets the fixed protocol headers.
func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
}
