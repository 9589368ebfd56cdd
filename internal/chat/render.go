package chat

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/xxxsen/pdfchat/internal/model"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var breakReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

// NormalizeBreaks turns the literal <br> markers of streamed text into newlines.
func NormalizeBreaks(text string) string {
	return breakReplacer.Replace(text)
}

// RenderMarkdown renders message content as HTML. Raw HTML in the content is escaped.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(NormalizeBreaks(content)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTranscript renders a whole session as a standalone HTML fragment.
func RenderTranscript(session *model.ChatSession) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<article class="chat-transcript">`)
	if session.Title != "" {
		buf.WriteString("<h1>" + html.EscapeString(session.Title) + "</h1>")
	}
	for _, msg := range session.ChatHistory {
		body, err := RenderMarkdown(msg.Content)
		if err != nil {
			return "", err
		}
		buf.WriteString(`<section class="message ` + html.EscapeString(msg.Role) + `">`)
		buf.WriteString(body)
		buf.WriteString("</section>")
	}
	buf.WriteString("</article>")
	return buf.String(), nil
}
