package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/ragclient"
)

const (
	relayInterrupted = "chat stream interrupted"
	relayParseFailed = "failed to parse the server response"
)

// relayStream re-encodes a backend stream for the browser: every event is a message
// event carrying a JSON envelope, followed by a final end event. The backend stream is
// closed when the client goes away.
func relayStream(c *gin.Context, stream chat.EventStream) {
	done := make(chan struct{})
	defer close(done)
	defer func() { _ = stream.Close() }()
	ctx := c.Request.Context()
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		env, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			msg := relayInterrupted
			if errors.Is(err, ragclient.ErrMalformedEnvelope) {
				msg = relayParseFailed
			}
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				logutil.GetLogger(ctx).Warn("relay stream failed", zap.Error(err))
			}
			writeEvent(c, sseMessage, ragclient.Envelope{Type: ragclient.TypeError, Content: msg})
			writeEvent(c, ragclient.EndEventName, "")
			return
		}
		if env.Type == ragclient.TypeEnd {
			writeEvent(c, ragclient.EndEventName, "")
			return
		}
		writeEvent(c, sseMessage, env)
		if env.Type == ragclient.TypeError {
			writeEvent(c, ragclient.EndEventName, "")
			return
		}
	}
}

const sseMessage = "message"

func writeEvent(c *gin.Context, name string, data interface{}) {
	c.SSEvent(name, data)
	c.Writer.Flush()
}
