package chat

import (
	"context"
	"sync"

	"github.com/xxxsen/pdfchat/internal/model"
)

// OptionSource supplies the documents and sessions offered in selection menus.
type OptionSource interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
	ListSessions(ctx context.Context) ([]model.ChatSession, error)
}

// Snapshot is a copy of the store taken under its lock.
type Snapshot struct {
	Messages        []model.ChatMessage
	Streaming       string
	Loading         bool
	Error           string
	Input           string
	CurrentChat     *model.ChatSession
	CurrentDocument *model.Document
	CurrentPdfID    string
	Model           string
	RetrievalMethod string
	Documents       []model.Document
	Sessions        []model.ChatSession
	OptionsError    string
}

// Store is the single source of truth for the active chat and the selection menus.
// currentPdfID is always derived from the last selected chat or document.
type Store struct {
	mu sync.RWMutex

	messages  []model.ChatMessage
	streaming string
	loading   bool
	err       string
	input     string

	currentChat     *model.ChatSession
	currentDocument *model.Document
	currentPdfID    string

	model           string
	retrievalMethod string

	documents    []model.Document
	sessions     []model.ChatSession
	optionsError string
}

func NewStore() *Store {
	return &Store{
		model:           firstEnabled(ModelOptions),
		retrievalMethod: firstEnabled(RetrievalOptions),
	}
}

func (s *Store) AppendMessage(msg model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *Store) SetMessages(msgs []model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]model.ChatMessage(nil), msgs...)
}

func (s *Store) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ChatMessage(nil), s.messages...)
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *Store) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

func (s *Store) Streaming() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// beginTurn applies the synchronous part of a send in one step.
func (s *Store) beginTurn(msg model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.input = ""
	s.err = ""
	s.streaming = ""
	s.loading = true
}

func (s *Store) appendStreaming(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming += chunk
}

// completeStream moves the transient buffer into the message list as an ai message. It
// also returns a copy of the current session carrying the full history, or nil when no
// session is selected.
func (s *Store) completeStream(pdfID string) (string, *model.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	final := s.streaming
	s.messages = append(s.messages, model.ChatMessage{Role: model.RoleAI, Content: final, PdfID: pdfID})
	s.streaming = ""
	s.loading = false
	if s.currentChat == nil {
		return final, nil
	}
	session := cloneSession(*s.currentChat)
	session.ChatHistory = append([]model.ChatMessage(nil), s.messages...)
	return final, &session
}

func (s *Store) failStream(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
	s.streaming = ""
	s.loading = false
}

func (s *Store) SetCurrentDocument(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		s.currentDocument = nil
		s.currentPdfID = ""
		return
	}
	cp := *doc
	s.currentDocument = &cp
	s.currentPdfID = cp.PdfID
}

func (s *Store) CurrentDocument() *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentDocument == nil {
		return nil
	}
	cp := *s.currentDocument
	return &cp
}

// SetCurrentChat selects a chat and re-derives the current pdf id from its latest_pdfId,
// including the empty id.
func (s *Store) SetCurrentChat(chat *model.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCurrentChatLocked(chat)
}

func (s *Store) setCurrentChatLocked(chat *model.ChatSession) {
	if chat == nil {
		s.currentChat = nil
		s.currentPdfID = ""
		s.currentDocument = nil
		return
	}
	cp := cloneSession(*chat)
	s.currentChat = &cp
	s.currentPdfID = cp.LatestPdfID
	s.currentDocument = nil
	for i := range s.documents {
		if s.documents[i].PdfID == cp.LatestPdfID && cp.LatestPdfID != "" {
			doc := s.documents[i]
			s.currentDocument = &doc
			break
		}
	}
}

func (s *Store) CurrentChat() *model.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentChat == nil {
		return nil
	}
	cp := cloneSession(*s.currentChat)
	return &cp
}

func (s *Store) CurrentPdfID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPdfID
}

func (s *Store) SetModel(value string) error {
	if err := validateOption(ModelOptions, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = value
	return nil
}

func (s *Store) SetRetrievalMethod(value string) error {
	if err := validateOption(RetrievalOptions, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrievalMethod = value
	return nil
}

func (s *Store) Settings() (modelName, retrievalMethod string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.retrievalMethod
}

// FetchOptions replaces both option lists on success. On failure the lists are kept and
// the error string is recorded.
func (s *Store) FetchOptions(ctx context.Context, src OptionSource) error {
	docs, err := src.ListDocuments(ctx)
	if err != nil {
		s.setOptionsError(err)
		return err
	}
	sessions, err := src.ListSessions(ctx)
	if err != nil {
		s.setOptionsError(err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append([]model.Document(nil), docs...)
	s.sessions = append([]model.ChatSession(nil), sessions...)
	s.optionsError = ""
	return nil
}

func (s *Store) setOptionsError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optionsError = err.Error()
}

// RegisterSession adds a brand-new session to the option list before the server knows
// about it and makes it current.
func (s *Store) RegisterSession(sessionID, pdfID string) *model.ChatSession {
	session := model.ChatSession{
		ChatSessionID: sessionID,
		ChatHistory:   []model.ChatMessage{},
		LatestPdfID:   pdfID,
		IsNewSession:  true,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]model.ChatSession{session}, s.sessions...)
	currentDoc := s.currentDocument
	s.setCurrentChatLocked(&session)
	if s.currentDocument == nil && currentDoc != nil && currentDoc.PdfID == pdfID {
		s.currentDocument = currentDoc
	}
	cp := cloneSession(session)
	return &cp
}

// markPersisted records that the server now holds the session.
func (s *Store) markPersisted(saved model.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved.IsNewSession = false
	for i := range s.sessions {
		if s.sessions[i].ChatSessionID == saved.ChatSessionID {
			s.sessions[i] = cloneSession(saved)
		}
	}
	if s.currentChat != nil && s.currentChat.ChatSessionID == saved.ChatSessionID {
		s.currentChat.IsNewSession = false
		s.currentChat.Title = saved.Title
		s.currentChat.LastActivity = saved.LastActivity
	}
}

// Reset clears every chat related field. Settings and option lists survive.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.streaming = ""
	s.loading = false
	s.err = ""
	s.input = ""
	s.currentChat = nil
	s.currentDocument = nil
	s.currentPdfID = ""
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Messages:        append([]model.ChatMessage(nil), s.messages...),
		Streaming:       s.streaming,
		Loading:         s.loading,
		Error:           s.err,
		Input:           s.input,
		CurrentPdfID:    s.currentPdfID,
		Model:           s.model,
		RetrievalMethod: s.retrievalMethod,
		Documents:       append([]model.Document(nil), s.documents...),
		OptionsError:    s.optionsError,
	}
	for _, session := range s.sessions {
		snap.Sessions = append(snap.Sessions, cloneSession(session))
	}
	if s.currentChat != nil {
		cp := cloneSession(*s.currentChat)
		snap.CurrentChat = &cp
	}
	if s.currentDocument != nil {
		cp := *s.currentDocument
		snap.CurrentDocument = &cp
	}
	return snap
}

func cloneSession(in model.ChatSession) model.ChatSession {
	out := in
	out.ChatHistory = append([]model.ChatMessage(nil), in.ChatHistory...)
	if in.LastActivity != nil {
		v := *in.LastActivity
		out.LastActivity = &v
	}
	return out
}
