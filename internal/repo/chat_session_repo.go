package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/pdfchat/internal/model"
	"github.com/xxxsen/pdfchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/pdfchat/internal/pkg/errors"
)

var chatSessionFields = []string{"chat_session_id", "user_id", "title", "latest_pdf_id", "chat_history", "last_activity"}

type ChatSessionRepo struct {
	db *sql.DB
}

func NewChatSessionRepo(db *sql.DB) *ChatSessionRepo {
	return &ChatSessionRepo{db: db}
}

// Upsert stores the session. A session id owned by another user yields ErrConflict.
func (r *ChatSessionRepo) Upsert(ctx context.Context, session *model.ChatSession, now int64) error {
	history := session.ChatHistory
	if history == nil {
		history = []model.ChatMessage{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO chat_sessions (chat_session_id, user_id, title, latest_pdf_id, chat_history, last_activity, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (chat_session_id) DO UPDATE SET
			title = EXCLUDED.title,
			latest_pdf_id = EXCLUDED.latest_pdf_id,
			chat_history = EXCLUDED.chat_history,
			last_activity = EXCLUDED.last_activity,
			mtime = EXCLUDED.mtime
		WHERE chat_sessions.user_id = EXCLUDED.user_id
	`
	var lastActivity sql.NullInt64
	if session.LastActivity != nil {
		lastActivity = sql.NullInt64{Int64: *session.LastActivity, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query,
		session.ChatSessionID,
		session.UserID,
		session.Title,
		session.LatestPdfID,
		string(historyJSON),
		lastActivity,
		now,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func (r *ChatSessionRepo) GetByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	sessions, err := r.query(ctx, map[string]interface{}{"user_id": userID, "chat_session_id": sessionID})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &sessions[0], nil
}

// OwnerOf returns the user owning sessionID, or ErrNotFound when it was never saved.
func (r *ChatSessionRepo) OwnerOf(ctx context.Context, sessionID string) (string, error) {
	sessions, err := r.query(ctx, map[string]interface{}{"chat_session_id": sessionID})
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", appErr.ErrNotFound
	}
	return sessions[0].UserID, nil
}

func (r *ChatSessionRepo) ListByUser(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return r.query(ctx, map[string]interface{}{"user_id": userID, "_orderby": "mtime desc"})
}

func (r *ChatSessionRepo) query(ctx context.Context, where map[string]interface{}) ([]model.ChatSession, error) {
	sqlStr, args, err := builder.BuildSelect("chat_sessions", where, chatSessionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	sessions := make([]model.ChatSession, 0)
	for rows.Next() {
		var (
			session      model.ChatSession
			historyJSON  string
			lastActivity sql.NullInt64
		)
		if err := rows.Scan(&session.ChatSessionID, &session.UserID, &session.Title, &session.LatestPdfID, &historyJSON, &lastActivity); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(historyJSON), &session.ChatHistory); err != nil {
			return nil, err
		}
		if lastActivity.Valid {
			v := lastActivity.Int64
			session.LastActivity = &v
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *ChatSessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete("chat_sessions", map[string]interface{}{"user_id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
