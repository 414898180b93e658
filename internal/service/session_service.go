package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/repository"
)

// DefaultSessionTTL es la ventana de validez de un token de sesion.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionService valida credenciales y emite tokens de sesion firmados (HS256).
// No hay lista de revocacion: la validez depende solo de firma y expiracion.
type SessionService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	hasher   PasswordHasher
	secret   []byte
	ttl      time.Duration
	issuer   string
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Claims es el contenido del token de sesion.
type Claims struct {
	AccountID string `json:"uid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Identity es la identidad autenticada que se obtiene de un token valido.
type Identity struct {
	AccountID string
	Email     string
}

// Session es el resultado de un login exitoso.
type Session struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Account   domain.PublicAccount `json:"user"`
}

var errSecretMissing = errors.New("session secret not configured")

func NewSessionService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	secret string,
	ttl time.Duration,
	issuer string,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if issuer == "" {
		issuer = "aquanova-auth"
	}
	return &SessionService{
		logger:   logger,
		accounts: accounts,
		hasher:   hasher,
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login devuelve ErrInvalidCredentials tanto para email desconocido como para
// password incorrecto.
func (s *SessionService) Login(ctx context.Context, emailAddr, password string) (_ Session, err error) {
	ctx, span := tracer.Start(ctx, "SessionService.Login")
	defer func() {
		Logins.WithLabelValues(resultLabel(err)).Inc()
		endSpan(span, err)
	}()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return Session{}, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Verificacion ficticia: el tiempo de respuesta no depende de que el email exista.
			s.hasher.Verify(password, s.dummy())
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, domain.StorageError(err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return Session{}, domain.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return Session{}, domain.StorageError(err)
	}

	token, expiresAt, err := s.Issue(account.ID, account.Email, now)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account.Public(),
	}, nil
}

// Issue firma un token para la cuenta con validez desde now.
func (s *SessionService) Issue(accountID, emailAddr string, now time.Time) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errSecretMissing
	}
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		AccountID: accountID,
		Email:     emailAddr,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Authenticate verifica firma y expiracion; cualquier falla es ErrUnauthenticated.
func (s *SessionService) Authenticate(tokenString string) (Identity, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Identity{}, domain.ErrUnauthenticated
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, &domain.Error{Kind: domain.KindUnauthenticated, Err: err}
	}
	if strings.TrimSpace(claims.AccountID) == "" || claims.Subject != claims.AccountID {
		return Identity{}, domain.ErrUnauthenticated
	}
	return Identity{AccountID: claims.AccountID, Email: claims.Email}, nil
}

// CurrentAccount carga la cuenta de una identidad autenticada.
func (s *SessionService) CurrentAccount(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, domain.StorageError(err)
	}
	return account, nil
}

func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("aquanova-dummy-password")
		if err != nil {
			s.logger.Warn("dummy hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
