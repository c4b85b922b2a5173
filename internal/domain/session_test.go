package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentJSONShape(t *testing.T) {
	data, err := json.Marshal(PlainText("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(data))

	data, err = json.Marshal(Blocks(TextBlock("look"), ImageBlock("image/png", "AAAA")))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"look"},{"type":"image","media_type":"image/png","data":"AAAA"}]`, string(data))

	data, err = json.Marshal(Blocks())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestContentUnmarshal(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":[{"type":"image","media_type":"image/gif","data":"R0lG"}]}`), &msg))
	assert.Equal(t, RoleUser, msg.Role)
	require.Equal(t, ContentBlocks, msg.Content.Kind)
	assert.Equal(t, ImageBlock("image/gif", "R0lG"), msg.Content.Blocks[0])

	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"hi"}`), &msg))
	assert.Equal(t, PlainText("hi"), msg.Content)

	var c Content
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.Equal(t, PlainText(""), c)

	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestStreamFrameJSON(t *testing.T) {
	data, err := json.Marshal(ContentFrame("s1", "Hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"content","text":"Hi","sessionId":"s1"}`, string(data))

	data, err = json.Marshal(DoneFrame("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"done","sessionId":"s1"}`, string(data))
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{StatusCode: 400, Body: "bad"}
	assert.Equal(t, "Claude API error: 400 bad", err.Error())
}
