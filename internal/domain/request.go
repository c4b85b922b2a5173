package domain

// ChatRequest is the JSON body accepted by the chat, multimodal and stream endpoints.
type ChatRequest struct {
	Message      string   `json:"message"`
	Images       []string `json:"images,omitempty"`
	SessionID    string   `json:"sessionId,omitempty"`
	Model        string   `json:"model,omitempty"`
	MaxTokens    *int     `json:"maxTokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
}

// ImageRequest is the JSON body accepted by the image upload endpoint.
type ImageRequest struct {
	Image       string   `json:"image"`
	Prompt      string   `json:"prompt,omitempty"`
	SessionID   string   `json:"sessionId,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Usage is the token accounting reported by the upstream API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is returned by the non-streaming chat endpoints.
type ChatResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Model     string `json:"model"`
	Usage     *Usage `json:"usage,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ImageInfo describes a validated image in an analysis response.
type ImageInfo struct {
	MediaType string `json:"mediaType"`
	Size      int    `json:"size"`
	Format    string `json:"format"`
}

// ImageResponse is returned by the image upload endpoint.
type ImageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Analysis  string    `json:"analysis"`
	ImageInfo ImageInfo `json:"imageInfo"`
	Model     string    `json:"model"`
	Usage     *Usage    `json:"usage,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// SessionResponse is returned by the session history endpoint.
type SessionResponse struct {
	SessionID    string    `json:"sessionId"`
	Messages     []Message `json:"messages"`
	CreatedAt    int64     `json:"createdAt"`
	LastActivity int64     `json:"lastActivity"`
}

// ErrorResponse is the JSON error body used by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
