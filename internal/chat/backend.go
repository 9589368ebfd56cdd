package chat

import (
	"context"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/ragclient"
)

// EventStream yields envelopes until Close is called or the stream ends.
type EventStream interface {
	Next() (ragclient.Envelope, error)
	Close() error
}

type Backend interface {
	Send(ctx context.Context, req ragclient.SendRequest) error
	Open(ctx context.Context, req ragclient.StreamRequest) (EventStream, error)
}

// SessionSaver persists a finished turn's session on the server.
type SessionSaver interface {
	SaveSession(ctx context.Context, session *model.ChatSession) error
}

type ragBackend struct {
	client *ragclient.Client
}

func NewBackend(client *ragclient.Client) Backend {
	return &ragBackend{client: client}
}

func (b *ragBackend) Send(ctx context.Context, req ragclient.SendRequest) error {
	return b.client.ChatSend(ctx, req)
}

func (b *ragBackend) Open(ctx context.Context, req ragclient.StreamRequest) (EventStream, error) {
	stream, err := b.client.OpenStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
