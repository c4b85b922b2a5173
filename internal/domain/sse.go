package domain

// StreamFrame is one outbound relay event.
type StreamFrame struct {
	Type      FrameType `json:"type"`
	Text      string    `json:"text,omitempty"`
	Model     string    `json:"model,omitempty"`
	Error     string    `json:"error,omitempty"`
	SessionID string    `json:"sessionId"`
}

// StartFrame announces the upstream model.
func StartFrame(sessionID, model string) StreamFrame {
	return StreamFrame{Type: FrameTypeStart, SessionID: sessionID, Model: model}
}

// ContentFrame carries one text increment.
func ContentFrame(sessionID, text string) StreamFrame {
	return StreamFrame{Type: FrameTypeContent, SessionID: sessionID, Text: text}
}

// DoneFrame terminates a successful stream.
func DoneFrame(sessionID string) StreamFrame {
	return StreamFrame{Type: FrameTypeDone, SessionID: sessionID}
}

// ErrorFrame terminates a failed stream.
func ErrorFrame(sessionID, message string) StreamFrame {
	return StreamFrame{Type: FrameTypeError, SessionID: sessionID, Error: message}
}
