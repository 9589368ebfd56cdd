package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/model"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/timeutil"
	"github.com/xxxsen/pdfchat/internal/ragclient"
)

const (
	maxTitleRunes   = 60
	maxSessionIDLen = 128
	defaultTitle    = "New chat"
)

type ChatSessionRepository interface {
	Upsert(ctx context.Context, session *model.ChatSession, now int64) error
	GetByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	OwnerOf(ctx context.Context, sessionID string) (string, error)
	ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type SendInput struct {
	Message         string
	ChatSessionID   string
	PdfID           string
	Model           string
	RetrievalMethod string
}

type ChatService struct {
	sessions ChatSessionRepository
	docs     DocumentRepository
	backend  chat.Backend
	demo     *DemoCatalog
}

func NewChatService(sessions ChatSessionRepository, docs DocumentRepository, backend chat.Backend, demo *DemoCatalog) *ChatService {
	return &ChatService{sessions: sessions, docs: docs, backend: backend, demo: demo}
}

func (s *ChatService) List(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func (s *ChatService) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	return s.sessions.GetByID(ctx, userID, sessionID)
}

// Save upserts a session owned by userID. An empty title is derived from the first
// human message.
func (s *ChatService) Save(ctx context.Context, userID string, session *model.ChatSession) (*model.ChatSession, error) {
	if session == nil || !validSessionID(session.ChatSessionID) {
		return nil, appErr.ErrInvalid
	}
	out := *session
	out.UserID = userID
	out.IsNewSession = false
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = titleFromHistory(out.ChatHistory)
	}
	now := timeutil.NowUnix()
	if out.LastActivity == nil && len(out.ChatHistory) > 0 {
		out.LastActivity = &now
	}
	if err := s.sessions.Upsert(ctx, &out, now); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ChatService) RenderHTML(ctx context.Context, userID, sessionID string) (string, error) {
	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	return chat.RenderTranscript(session)
}

// Send forwards one authenticated turn to the AI backend.
func (s *ChatService) Send(ctx context.Context, userID, token string, in SendInput) error {
	msg := strings.TrimSpace(in.Message)
	if msg == "" || !validSessionID(in.ChatSessionID) || in.PdfID == "" {
		return appErr.ErrInvalid
	}
	if err := s.checkOwner(ctx, userID, in.ChatSessionID); err != nil {
		return err
	}
	doc, err := s.docs.GetByID(ctx, userID, in.PdfID)
	if err != nil {
		return err
	}
	if !doc.IngestionStatus.Selectable() {
		return fmt.Errorf("%w: %w", chat.ErrDocumentNotReady, appErr.ErrConflict)
	}
	return s.forward(ctx, ragclient.SendRequest{
		Message:       msg,
		ChatSessionID: in.ChatSessionID,
		PdfID:         in.PdfID,
		UserID:        userID,
		Token:         token,
	})
}

// DemoSend forwards a demo turn. Only catalog documents and enabled options are accepted.
func (s *ChatService) DemoSend(ctx context.Context, in SendInput) error {
	msg := strings.TrimSpace(in.Message)
	if msg == "" || !validSessionID(in.ChatSessionID) {
		return appErr.ErrInvalid
	}
	if _, ok := s.demo.Get(in.PdfID); !ok {
		return appErr.ErrNotFound
	}
	modelName := in.Model
	if modelName == "" {
		modelName = chat.DefaultModel()
	}
	retrieval := in.RetrievalMethod
	if retrieval == "" {
		retrieval = chat.DefaultRetrievalMethod()
	}
	if err := chat.ValidateModel(modelName); err != nil {
		return fmt.Errorf("%w: %w", err, appErr.ErrInvalid)
	}
	if err := chat.ValidateRetrievalMethod(retrieval); err != nil {
		return fmt.Errorf("%w: %w", err, appErr.ErrInvalid)
	}
	return s.forward(ctx, ragclient.SendRequest{
		Message:         msg,
		ChatSessionID:   in.ChatSessionID,
		PdfID:           in.PdfID,
		Model:           modelName,
		RetrievalMethod: retrieval,
		Demo:            true,
	})
}

func (s *ChatService) forward(ctx context.Context, req ragclient.SendRequest) error {
	if err := s.backend.Send(ctx, req); err != nil {
		return fmt.Errorf("chat send: %w: %w", err, appErr.ErrUnavailable)
	}
	return nil
}

// OpenUserStream opens the stream of an authenticated session. Sessions saved by another
// user are rejected; ids never saved are allowed.
func (s *ChatService) OpenUserStream(ctx context.Context, userID, sessionID, token string) (chat.EventStream, error) {
	if !validSessionID(sessionID) {
		return nil, appErr.ErrInvalid
	}
	if err := s.checkOwner(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.OpenStream(ctx, sessionID, token, false)
}

func (s *ChatService) checkOwner(ctx context.Context, userID, sessionID string) error {
	owner, err := s.sessions.OwnerOf(ctx, sessionID)
	if appErr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return appErr.ErrForbidden
	}
	return nil
}

// OpenStream opens the backend event stream of a session. token is empty for demo streams.
func (s *ChatService) OpenStream(ctx context.Context, sessionID, token string, demo bool) (chat.EventStream, error) {
	if !validSessionID(sessionID) {
		return nil, appErr.ErrInvalid
	}
	stream, err := s.backend.Open(ctx, ragclient.StreamRequest{SessionID: sessionID, Demo: demo, Token: token})
	if err != nil {
		return nil, fmt.Errorf("open chat stream: %w: %w", err, appErr.ErrUnavailable)
	}
	return stream, nil
}

func (s *ChatService) PurgeUser(ctx context.Context, userID string) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

func titleFromHistory(history []model.ChatMessage) string {
	for _, msg := range history {
		if msg.Role != model.RoleHuman {
			continue
		}
		text := strings.Join(strings.Fields(chat.NormalizeBreaks(msg.Content)), " ")
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) <= maxTitleRunes {
			return text
		}
		return string([]rune(text)[:maxTitleRunes]) + "..."
	}
	return defaultTitle
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	return !strings.ContainsAny(id, "/?# \t\n")
}
