package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModeMock selects the mock client.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the given mode.
// MOCK returns a MockClient; anything else returns a real Client.
func NewLLMClient(mode, url, apiKey, version string, timeout time.Duration, logger *zap.Logger) LLMClient {
	if strings.EqualFold(mode, ModeMock) {
		logger.Info("PROXY_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if apiKey == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; upstream calls will be rejected")
	}
	return NewClient(url, apiKey, version, timeout)
}
