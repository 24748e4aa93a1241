package native

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Chunk is one typed content part of an assistant message.
type Chunk struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Content is the assistant message payload. Upstream sends either a plain
// JSON string or an array of typed chunks; Content holds exactly one of the
// two after decoding.
type Content struct {
	String *string
	Chunks []Chunk
}

// UnmarshalJSON decodes either shape. A JSON null leaves both fields unset.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content{String: &s}
		return nil
	case '[':
		var chunks []Chunk
		if err := json.Unmarshal(data, &chunks); err != nil {
			return err
		}
		*c = Content{Chunks: chunks}
		return nil
	default:
		return fmt.Errorf("native: unsupported message content %.32q", data)
	}
}

// Text flattens the payload to plain text. Only chunks of type "text" are
// kept; images, references and other chunk kinds are dropped.
func (c Content) Text() string {
	if c.String != nil {
		return *c.String
	}
	var sb strings.Builder
	for _, ch := range c.Chunks {
		if ch.Type == "text" {
			sb.WriteString(ch.Text)
		}
	}
	return sb.String()
}
