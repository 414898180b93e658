package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"aquanova-auth/internal/domain"
)

// ChatHistoryRepository persiste conversaciones; toda operacion queda acotada a la cuenta dueña.
// GetByID, Update y Delete devuelven pgx.ErrNoRows si la conversacion no es de esa cuenta.
type ChatHistoryRepository interface {
	Create(ctx context.Context, conv domain.Conversation) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.ConversationSummary, error)
	GetByID(ctx context.Context, accountID, id string) (domain.Conversation, error)
	Update(ctx context.Context, conv domain.Conversation) error
	Delete(ctx context.Context, accountID, id string) error
}

// PgChatHistoryRepository implementa ChatHistoryRepository sobre la tabla chat_history.
type PgChatHistoryRepository struct {
	pool DBTX
}

func NewPgChatHistoryRepository(pool DBTX) *PgChatHistoryRepository {
	return &PgChatHistoryRepository{pool: pool}
}

func (r *PgChatHistoryRepository) Create(ctx context.Context, conv domain.Conversation) error {
	const query = `
		INSERT INTO chat_history (id, account_id, title, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`
	messages, err := encodeMessages(conv.Messages)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		conv.ID,
		conv.AccountID,
		conv.Title,
		messages,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return oops.Code("CHAT_CREATE_FAILED").With("account_id", conv.AccountID).Wrap(err)
	}
	return nil
}

func (r *PgChatHistoryRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.ConversationSummary, error) {
	const query = `
		SELECT id, title, created_at, updated_at
		FROM chat_history
		WHERE account_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, oops.Code("CHAT_LIST_FAILED").With("account_id", accountID).Wrap(err)
	}
	defer rows.Close()

	out := []domain.ConversationSummary{}
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, oops.Code("CHAT_LIST_FAILED").With("account_id", accountID).Wrap(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CHAT_LIST_FAILED").With("account_id", accountID).Wrap(err)
	}
	return out, nil
}

func (r *PgChatHistoryRepository) GetByID(ctx context.Context, accountID, id string) (domain.Conversation, error) {
	const query = `
		SELECT id, account_id, title, messages::text, created_at, updated_at
		FROM chat_history
		WHERE id = $1 AND account_id = $2
	`
	var (
		conv     domain.Conversation
		messages string
	)
	err := r.pool.QueryRow(ctx, query, id, accountID).Scan(
		&conv.ID,
		&conv.AccountID,
		&conv.Title,
		&messages,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, err
	}
	if err != nil {
		return domain.Conversation{}, oops.Code("CHAT_GET_FAILED").With("id", id).Wrap(err)
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return domain.Conversation{}, oops.Code("CHAT_DECODE_FAILED").With("id", id).Wrap(err)
	}
	return conv, nil
}

func (r *PgChatHistoryRepository) Update(ctx context.Context, conv domain.Conversation) error {
	const query = `
		UPDATE chat_history
		SET title = $3, messages = $4::jsonb, updated_at = $5
		WHERE id = $1 AND account_id = $2
	`
	messages, err := encodeMessages(conv.Messages)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, conv.ID, conv.AccountID, conv.Title, messages, conv.UpdatedAt)
	if err != nil {
		return oops.Code("CHAT_UPDATE_FAILED").With("id", conv.ID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgChatHistoryRepository) Delete(ctx context.Context, accountID, id string) error {
	const query = `DELETE FROM chat_history WHERE id = $1 AND account_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, accountID)
	if err != nil {
		return oops.Code("CHAT_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodeMessages(messages []domain.ChatMessage) (string, error) {
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return "", oops.Code("CHAT_ENCODE_FAILED").Wrap(err)
	}
	return string(raw), nil
}
