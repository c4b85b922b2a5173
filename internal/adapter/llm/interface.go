// Package llm provides clients for the upstream Anthropic Messages API.
package llm

import (
	"context"
	"io"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// LLMClient defines the upstream operations used by the service.
type LLMClient interface {
	// CreateMessage sends a non-streaming request and returns the full reply.
	CreateMessage(ctx context.Context, messages []domain.Message, opts Options) (*MessageResponse, error)

	// CreateMessageStream sends a streaming request and returns the open
	// event-stream body. The caller owns and must close it.
	CreateMessageStream(ctx context.Context, messages []domain.Message, opts Options) (io.ReadCloser, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
