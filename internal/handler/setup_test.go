package handler

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/filestore"
	"github.com/xxxsen/pdfchat/internal/ingest"
	"github.com/xxxsen/pdfchat/internal/middleware"
	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/oauth"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
	"github.com/xxxsen/pdfchat/internal/pkg/jwt"
	"github.com/xxxsen/pdfchat/internal/ragclient"
	"github.com/xxxsen/pdfchat/internal/service"
)

var testSecret = []byte("handler-secret")

type memDocs struct {
	mu   sync.Mutex
	docs []model.Document
}

func (m *memDocs) Create(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *memDocs) GetByID(ctx context.Context, userID, pdfID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.PdfID == pdfID && d.UserID == userID {
			doc := d
			return &doc, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memDocs) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Document{}
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocs) Delete(ctx context.Context, userID, pdfID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.docs {
		if d.PdfID == pdfID && d.UserID == userID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (m *memDocs) DeleteByUser(ctx context.Context, userID string) error {
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]model.ChatSession
}

func (m *memSessions) Upsert(ctx context.Context, session *model.ChatSession, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ChatSessionID] = *session
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) OwnerOf(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", appErr.ErrNotFound
	}
	return s.UserID, nil
}

func (m *memSessions) ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessions) DeleteByUser(ctx context.Context, userID string) error {
	return nil
}

// scriptedStream replays envelopes, then returns err (or io.ErrUnexpectedEOF).
type scriptedStream struct {
	mu     sync.Mutex
	envs   []ragclient.Envelope
	err    error
	closes atomic.Int32
}

func (s *scriptedStream) Next() (ragclient.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.envs) > 0 {
		env := s.envs[0]
		s.envs = s.envs[1:]
		return env, nil
	}
	if s.err != nil {
		return ragclient.Envelope{}, s.err
	}
	return ragclient.Envelope{}, errUnexpectedEOF
}

func (s *scriptedStream) Close() error {
	s.closes.Add(1)
	return nil
}

type scriptedBackend struct {
	mu     sync.Mutex
	sent   []ragclient.SendRequest
	opened []ragclient.StreamRequest
	stream *scriptedStream
}

func (b *scriptedBackend) Send(ctx context.Context, req ragclient.SendRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, req)
	return nil
}

func (b *scriptedBackend) Open(ctx context.Context, req ragclient.StreamRequest) (chat.EventStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, req)
	return b.stream, nil
}

type nopTrigger struct {
	reqs []ingest.Request
}

func (n *nopTrigger) Trigger(ctx context.Context, req ingest.Request) bool {
	n.reqs = append(n.reqs, req)
	return true
}

type failingProvider struct{}

func (failingProvider) Name() string { return "github" }

func (failingProvider) AuthURL(state string) (string, error) {
	return "https://provider.test/authorize?state=" + state, nil
}

func (failingProvider) ExchangeCode(ctx context.Context, code string) (*oauth.Profile, error) {
	return nil, appErr.ErrInvalid
}

type testEnv struct {
	handler  http.Handler
	docs     *memDocs
	sessions *memSessions
	backend  *scriptedBackend
	trigger  *nopTrigger
	oauth    *OAuthHandler
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)

	env := &testEnv{
		docs:     &memDocs{},
		sessions: &memSessions{sessions: map[string]model.ChatSession{}},
		backend:  &scriptedBackend{stream: &scriptedStream{}},
		trigger:  &nopTrigger{},
	}
	catalog := service.NewDemoCatalog(nil)
	authService := service.NewAuthService(nil, nil, testSecret, 0)
	oauthService := service.NewOAuthService(nil, nil, testSecret, 0, map[string]oauth.Provider{"github": failingProvider{}})
	docService := service.NewDocumentService(env.docs, store, env.trigger, 1<<20)
	chatService := service.NewChatService(env.sessions, env.docs, env.backend, catalog)
	env.oauth = NewOAuthHandler(oauthService)

	deps := RouterDeps{
		Auth:      NewAuthHandler(authService),
		OAuth:     env.oauth,
		Users:     NewUserHandler(authService),
		PDFs:      NewPDFHandler(docService, 1<<20),
		Chats:     NewChatHandler(chatService),
		Demo:      NewDemoHandler(catalog, chatService),
		Files:     NewFileHandler(store),
		JWTSecret: testSecret,
	}
	gate := config.GateConfig{
		PagePrefixes:     []string{"/chat", "/dashboard"},
		APIPrefixes:      []string{"/api/pdf", "/api/chat", "/api/user", "/api/auth/current-user", "/api/auth/get-token"},
		BypassPaths:      []string{"/api/demo"},
		UnauthorizedPath: "/unauthorized",
	}
	engine, err := webapi.NewEngine(
		"/",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Gate(testSecret, gate),
		),
	)
	require.NoError(t, err)
	env.handler = engine
	return env
}

func sessionCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	token, err := jwt.GenerateToken(jwt.Identity{ID: userID, Name: "Ann", Email: "ann@example.com", Role: model.RoleUser}, testSecret, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.TokenCookie, Value: token}
}
