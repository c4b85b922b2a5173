// Package domain defines the core domain models for the proxy.
package domain

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind tags which variant a Content value holds.
type ContentKind int

const (
	ContentPlainText ContentKind = iota
	ContentBlocks
)

// BlockType is the tag of a content block.
type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeImage BlockType = "image"
)

// FrameType is the type of an outbound relay frame.
type FrameType string

const (
	FrameTypeStart   FrameType = "start"
	FrameTypeContent FrameType = "content"
	FrameTypeDone    FrameType = "done"
	FrameTypeError   FrameType = "error"
)
