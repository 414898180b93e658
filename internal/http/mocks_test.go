package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"aquanova-auth/internal/domain"
)

type mockAccountRepo struct {
	mu             sync.Mutex
	accountsByID   map[string]domain.Account
	accountsByMail map[string]string
	err            error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accountsByID:   make(map[string]domain.Account),
		accountsByMail: make(map[string]string),
	}
}

func (m *mockAccountRepo) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.accountsByMail[account.Email]; ok {
		return domain.ErrAccountExists
	}
	m.accountsByID[account.ID] = account
	m.accountsByMail[account.Email] = account.ID
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Account{}, m.err
	}
	account, ok := m.accountsByID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	id, ok := m.accountsByMail[email]
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.accountsByMail[email]
	return ok, nil
}

func (m *mockAccountRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountsByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LastLoginAt = &at
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) UpdatePasswordHash(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.accountsByMail[email]
	if !ok {
		return pgx.ErrNoRows
	}
	account := m.accountsByID[id]
	account.PasswordHash = passwordHash
	m.accountsByID[id] = account
	return nil
}

func (m *mockAccountRepo) remove(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.accountsByMail[email]
	delete(m.accountsByMail, email)
	delete(m.accountsByID, id)
}

// captureSender guarda el ultimo codigo enviado por email.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newCaptureSender() *captureSender {
	return &captureSender{codes: make(map[string]string)}
}

func (s *captureSender) SendOTP(_ context.Context, toEmail, _, code string, _ domain.Purpose, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[toEmail] = code
	return s.err
}

func (s *captureSender) codeFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

// memoryChatRepo guarda conversaciones en memoria, acotadas por cuenta.
type memoryChatRepo struct {
	mu    sync.Mutex
	convs map[string]domain.Conversation
	err   error
}

func newMemoryChatRepo() *memoryChatRepo {
	return &memoryChatRepo{convs: make(map[string]domain.Conversation)}
}

func (m *memoryChatRepo) Create(_ context.Context, conv domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.convs[conv.ID] = conv
	return nil
}

func (m *memoryChatRepo) ListByAccount(_ context.Context, accountID string) ([]domain.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.ConversationSummary{}
	for _, c := range m.convs {
		if c.AccountID == accountID {
			out = append(out, domain.ConversationSummary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryChatRepo) GetByID(_ context.Context, accountID, id string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Conversation{}, m.err
	}
	c, ok := m.convs[id]
	if !ok || c.AccountID != accountID {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memoryChatRepo) Update(_ context.Context, conv domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.convs[conv.ID]
	if !ok || c.AccountID != conv.AccountID {
		return pgx.ErrNoRows
	}
	c.Title, c.Messages, c.UpdatedAt = conv.Title, conv.Messages, conv.UpdatedAt
	m.convs[conv.ID] = c
	return nil
}

func (m *memoryChatRepo) Delete(_ context.Context, accountID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.convs[id]
	if !ok || c.AccountID != accountID {
		return pgx.ErrNoRows
	}
	delete(m.convs, id)
	return nil
}
