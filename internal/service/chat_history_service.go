package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/repository"
)

var errConversationRequired = domain.ValidationError("Title and messages are required")

// ConversationInput es el contenido editable de una conversacion.
// Messages nil significa que el campo no vino; un slice vacio es valido.
type ConversationInput struct {
	Title    string
	Messages []domain.ChatMessage
}

// ChatHistoryService guarda el historial de chat de cada cuenta autenticada.
type ChatHistoryService struct {
	logger *zap.Logger
	repo   repository.ChatHistoryRepository
	now    func() time.Time
}

func NewChatHistoryService(logger *zap.Logger, repo repository.ChatHistoryRepository) *ChatHistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHistoryService{
		logger: logger,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List devuelve las conversaciones de la cuenta, la mas reciente primero.
func (s *ChatHistoryService) List(ctx context.Context, accountID string) (_ []domain.ConversationSummary, err error) {
	ctx, span := tracer.Start(ctx, "ChatHistoryService.List")
	defer func() { endSpan(span, err) }()

	list, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return list, nil
}

func (s *ChatHistoryService) Get(ctx context.Context, accountID, id string) (_ domain.Conversation, err error) {
	ctx, span := tracer.Start(ctx, "ChatHistoryService.Get")
	defer func() { endSpan(span, err) }()

	if !isConversationID(id) {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	conv, err := s.repo.GetByID(ctx, accountID, id)
	if err != nil {
		return domain.Conversation{}, conversationError(err)
	}
	return conv, nil
}

func (s *ChatHistoryService) Create(ctx context.Context, accountID string, input ConversationInput) (_ domain.Conversation, err error) {
	ctx, span := tracer.Start(ctx, "ChatHistoryService.Create")
	defer func() { endSpan(span, err) }()

	title, err := validateConversation(input)
	if err != nil {
		return domain.Conversation{}, err
	}
	now := s.now()
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Title:     title,
		Messages:  input.Messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return domain.Conversation{}, domain.StorageError(err)
	}
	return conv, nil
}

// Update reemplaza titulo y mensajes de una conversacion propia.
func (s *ChatHistoryService) Update(ctx context.Context, accountID, id string, input ConversationInput) (err error) {
	ctx, span := tracer.Start(ctx, "ChatHistoryService.Update")
	defer func() { endSpan(span, err) }()

	title, err := validateConversation(input)
	if err != nil {
		return err
	}
	if !isConversationID(id) {
		return domain.ErrConversationNotFound
	}
	err = s.repo.Update(ctx, domain.Conversation{
		ID:        id,
		AccountID: accountID,
		Title:     title,
		Messages:  input.Messages,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return conversationError(err)
	}
	return nil
}

func (s *ChatHistoryService) Delete(ctx context.Context, accountID, id string) (err error) {
	ctx, span := tracer.Start(ctx, "ChatHistoryService.Delete")
	defer func() { endSpan(span, err) }()

	if !isConversationID(id) {
		return domain.ErrConversationNotFound
	}
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return conversationError(err)
	}
	s.logger.Debug("conversation deleted", zap.String("account_id", accountID), zap.String("id", id))
	return nil
}

func validateConversation(input ConversationInput) (string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.Messages == nil {
		return "", errConversationRequired
	}
	return title, nil
}

// isConversationID evita mandar a la base ids que la columna uuid rechazaria.
func isConversationID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func conversationError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrConversationNotFound
	}
	return domain.StorageError(err)
}
