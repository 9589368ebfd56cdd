package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/model"
)

func TestNormalizeBreaks(t *testing.T) {
	require.Equal(t, "a\nb\nc\nd", NormalizeBreaks("a<br>b<br/>c<br />d"))
	require.Equal(t, "plain", NormalizeBreaks("plain"))
}

func TestRenderMarkdownEscapesRawHTML(t *testing.T) {
	out, err := RenderMarkdown("**bold**<br>- item<script>x</script>")
	require.NoError(t, err)
	require.Contains(t, out, "<strong>bold</strong>")
	require.Contains(t, out, "<li>")
	require.NotContains(t, out, "<script>")
}

func TestRenderTranscript(t *testing.T) {
	out, err := RenderTranscript(&model.ChatSession{
		Title: "Bitcoin <paper>",
		ChatHistory: []model.ChatMessage{
			{Role: model.RoleHuman, Content: "What is this document about?"},
			{Role: model.RoleAI, Content: "A peer-to-peer *cash* system."},
		},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, `<article class="chat-transcript"><h1>Bitcoin &lt;paper&gt;</h1>`))
	require.Contains(t, out, `<section class="message human">`)
	require.Contains(t, out, "<em>cash</em>")
}
