package model

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	PdfID   string `json:"pdfId,omitempty"`
}

type ChatSession struct {
	ChatSessionID string        `json:"chat_session_id"`
	ChatHistory   []ChatMessage `json:"chat_history"`
	LastActivity  *int64        `json:"last_activity"`
	LatestPdfID   string        `json:"latest_pdfId"`
	Title         string        `json:"title"`
	UserID        string        `json:"userId,omitempty"`
	IsNewSession  bool          `json:"isNewSession,omitempty"`
}
