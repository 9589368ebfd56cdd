package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/ragclient"
)

type Mode int

const (
	ModeDemo Mode = iota
	ModeAuthenticated
)

var (
	ErrNoDocument       = errors.New("please select a document first")
	ErrDocumentNotReady = errors.New("the selected document is not ready yet")
	ErrNoUser           = errors.New("user id is required")
	// ErrSuperseded marks a generation replaced by a newer send or a session switch.
	ErrSuperseded = errors.New("generation superseded")
)

const parseErrorMessage = "failed to parse the server response"

// StreamError carries an error envelope sent by the backend.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// StreamHandlers observe one send operation.
type StreamHandlers struct {
	OnChunkReceived  func(chunk string)
	OnStreamComplete func(final string)
	OnStreamError    func(err error)
}

type OrchestratorOption func(o *Orchestrator)

func WithMode(mode Mode) OrchestratorOption {
	return func(o *Orchestrator) { o.mode = mode }
}

// WithUser sets the identity sent with authenticated turns.
func WithUser(userID, token string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.userID = userID
		o.token = token
	}
}

func WithSessionSaver(saver SessionSaver) OrchestratorOption {
	return func(o *Orchestrator) { o.saver = saver }
}

func WithHandlers(h StreamHandlers) OrchestratorOption {
	return func(o *Orchestrator) { o.handlers = h }
}

func WithIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator sends chat turns and streams the answers into a Store. At most one
// generation is live; starting another closes the previous stream first.
type Orchestrator struct {
	store    *Store
	backend  Backend
	mode     Mode
	userID   string
	token    string
	saver    SessionSaver
	handlers StreamHandlers
	newID    func() string

	mu      sync.Mutex
	current *Generation
}

func NewOrchestrator(store *Store, backend Backend, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		backend: backend,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Store() *Store {
	return o.store
}

// Send delivers text for the current session. Empty text is a no-op and returns a nil
// Generation. Validation failures are recorded in the store and returned. Transport and
// stream failures are reported through the store and the returned Generation.
func (o *Orchestrator) Send(ctx context.Context, text string) (*Generation, error) {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return nil, nil
	}
	pdfID := o.store.CurrentPdfID()
	if pdfID == "" {
		o.store.SetError(ErrNoDocument.Error())
		return nil, ErrNoDocument
	}
	if doc := o.store.CurrentDocument(); doc != nil && !doc.IngestionStatus.Selectable() {
		o.store.SetError(ErrDocumentNotReady.Error())
		return nil, ErrDocumentNotReady
	}
	mode := o.currentMode()
	if mode == ModeAuthenticated && o.userID == "" {
		o.store.SetError(ErrNoUser.Error())
		return nil, ErrNoUser
	}

	session := o.store.CurrentChat()
	if session == nil {
		session = o.store.RegisterSession(o.newID(), pdfID)
	}

	gen := o.begin(ctx)
	o.store.beginTurn(model.ChatMessage{Role: model.RoleHuman, Content: msg, PdfID: pdfID})

	modelName, retrieval := o.store.Settings()
	req := ragclient.SendRequest{
		Message:         msg,
		ChatSessionID:   session.ChatSessionID,
		PdfID:           pdfID,
		UserID:          o.userID,
		Model:           modelName,
		RetrievalMethod: retrieval,
		Token:           o.token,
		Demo:            mode == ModeDemo,
	}
	if err := o.backend.Send(gen.ctx, req); err != nil {
		gen.closeStream()
		o.fail(gen, fmt.Errorf("failed to send message: %w", err))
		close(gen.done)
		return gen, nil
	}
	gen.setState(StateStreaming)
	go o.consume(gen, mode, session.ChatSessionID, pdfID)
	return gen, nil
}

// NewChat discards the current conversation and starts a fresh session for the
// currently selected document.
func (o *Orchestrator) NewChat() *model.ChatSession {
	o.supersede()
	o.store.SetMessages(nil)
	o.store.SetError("")
	o.store.SetLoading(false)
	return o.store.RegisterSession(o.newID(), o.store.CurrentPdfID())
}

// SelectDocument makes doc current. In demo mode, or when no session is active, a new
// session is minted for it.
func (o *Orchestrator) SelectDocument(doc model.Document) {
	o.store.SetCurrentDocument(&doc)
	if o.currentMode() == ModeDemo || o.store.CurrentChat() == nil {
		o.NewChat()
	}
}

// SelectSession switches to an existing session and loads its history.
func (o *Orchestrator) SelectSession(session model.ChatSession) {
	o.supersede()
	o.store.SetCurrentChat(&session)
	o.store.SetMessages(session.ChatHistory)
	o.store.SetError("")
	o.store.SetLoading(false)
}

// EnterDemo resets the store and preselects the demo document.
func (o *Orchestrator) EnterDemo(doc model.Document) {
	o.supersede()
	o.store.Reset()
	o.mu.Lock()
	o.mode = ModeDemo
	o.mu.Unlock()
	o.SelectDocument(doc)
}

func (o *Orchestrator) currentMode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) begin(ctx context.Context) *Generation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		o.current.closeStream()
	}
	gen := newGeneration(ctx)
	o.current = gen
	return gen
}

func (o *Orchestrator) supersede() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		o.current.closeStream()
		o.current = nil
	}
}

func (o *Orchestrator) consume(gen *Generation, mode Mode, sessionID, pdfID string) {
	defer close(gen.done)
	stream, err := o.backend.Open(gen.ctx, ragclient.StreamRequest{
		SessionID: sessionID,
		Demo:      mode == ModeDemo,
		Token:     o.token,
	})
	if err != nil {
		o.fail(gen, fmt.Errorf("failed to open chat stream: %w", err))
		return
	}
	if !gen.attach(stream) {
		gen.setErr(ErrSuperseded)
		return
	}
	for {
		env, err := stream.Next()
		if err != nil {
			gen.closeStream()
			if errors.Is(err, ragclient.ErrMalformedEnvelope) {
				o.fail(gen, fmt.Errorf("%s: %w", parseErrorMessage, err))
				return
			}
			o.fail(gen, fmt.Errorf("chat stream interrupted: %w", err))
			return
		}
		switch env.Type {
		case ragclient.TypeChunk:
			if !o.appendChunk(gen, env.Content) {
				return
			}
		case ragclient.TypeError:
			gen.closeStream()
			msg := env.Content
			if msg == "" {
				msg = "the assistant failed to answer"
			}
			o.fail(gen, &StreamError{Message: msg})
			return
		case ragclient.TypeEnd:
			gen.closeStream()
			o.complete(gen, mode, sessionID, pdfID)
			return
		}
	}
}

func (o *Orchestrator) appendChunk(gen *Generation, chunk string) bool {
	o.mu.Lock()
	if o.current != gen {
		o.mu.Unlock()
		gen.setErr(ErrSuperseded)
		return false
	}
	o.store.appendStreaming(chunk)
	o.mu.Unlock()
	if o.handlers.OnChunkReceived != nil {
		o.handlers.OnChunkReceived(chunk)
	}
	return true
}

func (o *Orchestrator) complete(gen *Generation, mode Mode, sessionID, pdfID string) {
	o.mu.Lock()
	if o.current != gen {
		o.mu.Unlock()
		gen.setErr(ErrSuperseded)
		return
	}
	final, session := o.store.completeStream(pdfID)
	o.current = nil
	o.mu.Unlock()
	gen.setState(StateCompleted)
	if o.handlers.OnStreamComplete != nil {
		o.handlers.OnStreamComplete(final)
	}
	if mode == ModeAuthenticated && o.saver != nil && session != nil && session.ChatSessionID == sessionID {
		o.persist(session, pdfID)
	}
}

func (o *Orchestrator) fail(gen *Generation, err error) {
	o.mu.Lock()
	if o.current != gen {
		o.mu.Unlock()
		gen.setErr(ErrSuperseded)
		return
	}
	gen.setErr(err)
	o.store.failStream(userMessage(err))
	o.current = nil
	o.mu.Unlock()
	if o.handlers.OnStreamError != nil {
		o.handlers.OnStreamError(err)
	}
}

// persist saves the session captured when its turn completed, even if another session
// has been selected since.
func (o *Orchestrator) persist(session *model.ChatSession, pdfID string) {
	now := time.Now().Unix()
	session.LatestPdfID = pdfID
	session.LastActivity = &now
	session.UserID = o.userID
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.saver.SaveSession(ctx, session); err != nil {
		logutil.GetLogger(ctx).Error("persist chat session failed",
			zap.String("chat_session_id", session.ChatSessionID), zap.Error(err))
		return
	}
	o.store.markPersisted(*session)
}

func userMessage(err error) string {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Message
	}
	if errors.Is(err, ragclient.ErrMalformedEnvelope) {
		return parseErrorMessage
	}
	return err.Error()
}
