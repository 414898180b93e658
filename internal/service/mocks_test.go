package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/repository"
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

type sentOTP struct {
	to        string
	name      string
	code      string
	purpose   domain.Purpose
	expiresAt time.Time
}

type mockEmailSender struct {
	sent []sentOTP
	err  error
}

func (m *mockEmailSender) SendOTP(_ context.Context, toEmail, displayName, code string, purpose domain.Purpose, expiresAt time.Time) error {
	m.sent = append(m.sent, sentOTP{to: toEmail, name: displayName, code: code, purpose: purpose, expiresAt: expiresAt})
	return m.err
}

func (m *mockEmailSender) last() sentOTP {
	if len(m.sent) == 0 {
		return sentOTP{}
	}
	return m.sent[len(m.sent)-1]
}

type fixedGenerator struct {
	codes []string
	next  int
}

func (g *fixedGenerator) Generate() (string, error) {
	if len(g.codes) == 0 {
		return "", errors.New("no codes")
	}
	code := g.codes[g.next%len(g.codes)]
	g.next++
	return code, nil
}

// failingOTPStore devuelve err en todas las operaciones.
type failingOTPStore struct {
	err error
}

var _ repository.OTPStore = failingOTPStore{}

func (f failingOTPStore) Put(context.Context, string, string, time.Duration) (domain.OTPRecord, error) {
	return domain.OTPRecord{}, f.err
}

func (f failingOTPStore) FindLatestUnverified(context.Context, string, string) (domain.OTPRecord, bool, error) {
	return domain.OTPRecord{}, false, f.err
}

func (f failingOTPStore) FindLatestVerified(context.Context, string, string) (domain.OTPRecord, bool, error) {
	return domain.OTPRecord{}, false, f.err
}

func (f failingOTPStore) FindLatestAny(context.Context, string, string) (domain.OTPRecord, bool, error) {
	return domain.OTPRecord{}, false, f.err
}

func (f failingOTPStore) MarkVerified(context.Context, string) error { return f.err }
func (f failingOTPStore) DeleteAll(context.Context, string) error    { return f.err }

type mockChatHistoryRepo struct {
	mu    sync.Mutex
	convs map[string]domain.Conversation
	err   error
}

var _ repository.ChatHistoryRepository = (*mockChatHistoryRepo)(nil)

func newMockChatHistoryRepo() *mockChatHistoryRepo {
	return &mockChatHistoryRepo{convs: make(map[string]domain.Conversation)}
}

func (m *mockChatHistoryRepo) Create(_ context.Context, conv domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.convs[conv.ID] = conv
	return nil
}

func (m *mockChatHistoryRepo) ListByAccount(_ context.Context, accountID string) ([]domain.ConversationSummary, error) {
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

func (m *mockChatHistoryRepo) GetByID(_ context.Context, accountID, id string) (domain.Conversation, error) {
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

func (m *mockChatHistoryRepo) Update(_ context.Context, conv domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.convs[conv.ID]
	if !ok || c.AccountID != conv.AccountID {
		return pgx.ErrNoRows
	}
	c.Title = conv.Title
	c.Messages = conv.Messages
	c.UpdatedAt = conv.UpdatedAt
	m.convs[conv.ID] = c
	return nil
}

func (m *mockChatHistoryRepo) Delete(_ context.Context, accountID, id string) error {
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
