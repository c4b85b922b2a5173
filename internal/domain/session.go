package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Session is the persisted conversation state for one session id.
type Session struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Message represents a single message in a session.
type Message struct {
	Role      Role      `json:"role"`
	Content   Content   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContentBlock is one unit of multimodal content.
type ContentBlock struct {
	Type      BlockType `json:"type"`
	Text      string    `json:"text,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Data      string    `json:"data,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// ImageBlock builds an inline base64 image block.
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, MediaType: mediaType, Data: data}
}

// Content is either plain text or an ordered sequence of blocks.
// It encodes to a JSON string or a JSON array respectively.
type Content struct {
	Kind   ContentKind
	Text   string
	Blocks []ContentBlock
}

// PlainText returns text-only content.
func PlainText(text string) Content {
	return Content{Kind: ContentPlainText, Text: text}
}

// Blocks returns block-sequence content.
func Blocks(blocks ...ContentBlock) Content {
	return Content{Kind: ContentBlocks, Blocks: blocks}
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentPlainText:
		return json.Marshal(c.Text)
	case ContentBlocks:
		if c.Blocks == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Blocks)
	default:
		return nil, fmt.Errorf("unknown content kind %d", c.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty content")
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*c = PlainText(text)
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return err
		}
		*c = Blocks(blocks...)
	case 'n':
		*c = PlainText("")
	default:
		return fmt.Errorf("content must be a string or an array of blocks")
	}
	return nil
}
