package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/imageval"
)

func TestBuildContent(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		content, err := BuildContent("hello", nil, false)
		require.NoError(t, err)
		assert.Equal(t, domain.PlainText("hello"), content)
	})

	t.Run("images ignored outside multimodal", func(t *testing.T) {
		content, err := BuildContent("hello", []string{pngURI}, false)
		require.NoError(t, err)
		assert.Equal(t, domain.ContentPlainText, content.Kind)
	})

	t.Run("empty text without images", func(t *testing.T) {
		_, err := BuildContent("", nil, true)
		assert.True(t, errors.Is(err, domain.ErrBadRequest))
	})

	t.Run("empty text with images outside multimodal", func(t *testing.T) {
		_, err := BuildContent("", []string{pngURI}, false)
		assert.True(t, errors.Is(err, domain.ErrBadRequest))
	})

	t.Run("image only", func(t *testing.T) {
		content, err := BuildContent("", []string{pngURI}, true)
		require.NoError(t, err)
		require.Equal(t, domain.ContentBlocks, content.Kind)
		require.Len(t, content.Blocks, 1)
		assert.Equal(t, domain.BlockTypeImage, content.Blocks[0].Type)
		assert.Equal(t, "image/png", content.Blocks[0].MediaType)
		assert.Equal(t, "iVBORw0KGgo=", content.Blocks[0].Data)
	})

	t.Run("text leads images in order", func(t *testing.T) {
		content, err := BuildContent("look", []string{pngURI, "data:image/gif;base64,R0lG"}, true)
		require.NoError(t, err)
		require.Len(t, content.Blocks, 3)
		assert.Equal(t, domain.TextBlock("look"), content.Blocks[0])
		assert.Equal(t, "image/png", content.Blocks[1].MediaType)
		assert.Equal(t, "image/gif", content.Blocks[2].MediaType)
	})

	t.Run("first invalid image aborts", func(t *testing.T) {
		_, err := BuildContent("look", []string{pngURI, "not-an-image", "data:image/bmp;base64,AA"}, true)
		assert.ErrorIs(t, err, imageval.ErrInvalidFormat)
		assert.ErrorIs(t, err, domain.ErrInvalidImage)
	})
}

func TestPrepareConversationWindowIncludesNewMessage(t *testing.T) {
	svc, store := newTestService(t, newStubClient(), WithHistoryWindow(3))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.prepareConversation(ctx, "s1", domain.PlainText(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}

	window, err := svc.prepareConversation(ctx, "s1", domain.PlainText("latest"))
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "latest", window[2].Content.Text)
	assert.Equal(t, "m2", window[0].Content.Text)

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 5)
}

func TestPrepareConversationCreatesSession(t *testing.T) {
	svc, store := newTestService(t, newStubClient())
	ctx := context.Background()

	window, err := svc.prepareConversation(ctx, "fresh", domain.PlainText("hello"))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, domain.RoleUser, window[0].Role)

	session, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, session)
}
