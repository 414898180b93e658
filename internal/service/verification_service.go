package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
	"aquanova-auth/internal/email"
	"aquanova-auth/internal/repository"
)

// DefaultOTPTTL es la vigencia de un codigo recien emitido.
const DefaultOTPTTL = 10 * time.Minute

// VerificationService orquesta emision y consumo de OTP para signup y reset de password.
// Es el unico que escribe registros OTP y el unico que crea cuentas.
type VerificationService struct {
	logger    *zap.Logger
	accounts  repository.AccountRepository
	otps      repository.OTPStore
	sender    email.Sender
	generator OTPGenerator
	hasher    PasswordHasher
	otpTTL    time.Duration
	now       func() time.Time
}

func NewVerificationService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	otps repository.OTPStore,
	sender email.Sender,
	generator OTPGenerator,
	hasher PasswordHasher,
	otpTTL time.Duration,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if generator == nil {
		generator = NewOTPGenerator()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}
	return &VerificationService{
		logger:    logger,
		accounts:  accounts,
		otps:      otps,
		sender:    sender,
		generator: generator,
		hasher:    hasher,
		otpTTL:    otpTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SignupInput agrupa los datos de CompleteSignup.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Code     string
}

// RequestOTP emite un codigo nuevo para el email, reemplazando cualquier codigo previo.
// Si el envio falla el registro queda guardado; un nuevo pedido lo reemplaza.
func (s *VerificationService) RequestOTP(ctx context.Context, emailAddr string, purpose domain.Purpose, displayName string) (err error) {
	ctx, span := tracer.Start(ctx, "VerificationService.RequestOTP")
	span.SetAttributes(attribute.String("otp.purpose", string(purpose)))
	defer func() {
		OTPRequests.WithLabelValues(string(purpose), resultLabel(err)).Inc()
		endSpan(span, err)
	}()

	emailAddr = normalizeEmail(emailAddr)
	displayName = strings.TrimSpace(displayName)
	if emailAddr == "" {
		return domain.ValidationError("email is required")
	}
	if !purpose.Valid() {
		return domain.ValidationError("unknown otp purpose")
	}

	switch purpose {
	case domain.PurposeSignupVerification:
		exists, err := s.accounts.ExistsByEmail(ctx, emailAddr)
		if err != nil {
			return domain.StorageError(err)
		}
		if exists {
			return domain.ErrAccountExists
		}
	case domain.PurposePasswordReset:
		account, err := s.accounts.GetByEmail(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return domain.StorageError(err)
		}
		if displayName == "" {
			displayName = account.Name
		}
	}

	code, err := s.generator.Generate()
	if err != nil {
		return err
	}
	rec, err := s.otps.Put(ctx, emailAddr, code, s.otpTTL)
	if err != nil {
		return domain.StorageError(err)
	}

	if s.sender == nil {
		return domain.DeliveryError(errors.New("email sender not configured"))
	}
	if err := s.sender.SendOTP(ctx, emailAddr, displayName, code, purpose, rec.ExpiresAt); err != nil {
		s.logger.Warn("send otp failed",
			zap.Error(err),
			zap.String("email", emailAddr),
			zap.String("purpose", string(purpose)),
		)
		return domain.DeliveryError(err)
	}
	return nil
}

// VerifyOTP marca como verificado el codigo vigente; el registro queda como
// autorizacion para CompleteSignup.
func (s *VerificationService) VerifyOTP(ctx context.Context, emailAddr, code string) (err error) {
	ctx, span := tracer.Start(ctx, "VerificationService.VerifyOTP")
	defer func() {
		OTPChecks.WithLabelValues("verify", resultLabel(err)).Inc()
		endSpan(span, err)
	}()

	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !isValidOTPCode(code) {
		return domain.ErrInvalidCode
	}

	rec, found, err := s.otps.FindLatestUnverified(ctx, emailAddr, code)
	if err != nil {
		return domain.StorageError(err)
	}
	if !found {
		return domain.ErrInvalidCode
	}
	if rec.ExpiredAt(s.now()) {
		return domain.ErrCodeExpired
	}
	if err := s.otps.MarkVerified(ctx, rec.ID); err != nil {
		return domain.StorageError(err)
	}
	return nil
}

// CompleteSignup crea la cuenta si existe un registro verificado para email+code.
// La expiracion no se vuelve a revisar: el flag verified alcanza.
func (s *VerificationService) CompleteSignup(ctx context.Context, input SignupInput) (_ domain.PublicAccount, err error) {
	ctx, span := tracer.Start(ctx, "VerificationService.CompleteSignup")
	defer func() {
		OTPChecks.WithLabelValues("signup", resultLabel(err)).Inc()
		endSpan(span, err)
	}()

	emailAddr := normalizeEmail(input.Email)
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if err := ValidatePassword(input.Password); err != nil {
		return domain.PublicAccount{}, err
	}
	if !isValidOTPCode(code) {
		return domain.PublicAccount{}, domain.ErrNotVerified
	}

	_, found, err := s.otps.FindLatestVerified(ctx, emailAddr, code)
	if err != nil {
		return domain.PublicAccount{}, domain.StorageError(err)
	}
	if !found {
		return domain.PublicAccount{}, domain.ErrNotVerified
	}

	exists, err := s.accounts.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return domain.PublicAccount{}, domain.StorageError(err)
	}
	if exists {
		return domain.PublicAccount{}, domain.ErrAccountExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.PublicAccount{}, err
	}

	account := domain.Account{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         emailAddr,
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.PublicAccount{}, domain.StorageError(err)
	}

	if err := s.otps.DeleteAll(ctx, emailAddr); err != nil {
		s.logger.Error("consume signup otp failed", zap.Error(err), zap.String("email", emailAddr))
		return domain.PublicAccount{}, domain.StorageError(err)
	}
	return account.Public(), nil
}

// CompletePasswordReset revisa codigo y expiracion directamente, sin exigir VerifyOTP previo.
func (s *VerificationService) CompletePasswordReset(ctx context.Context, emailAddr, code, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "VerificationService.CompletePasswordReset")
	defer func() {
		OTPChecks.WithLabelValues("reset", resultLabel(err)).Inc()
		endSpan(span, err)
	}()

	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if !isValidOTPCode(code) {
		return domain.ErrInvalidCode
	}

	rec, found, err := s.otps.FindLatestAny(ctx, emailAddr, code)
	if err != nil {
		return domain.StorageError(err)
	}
	if !found {
		return domain.ErrInvalidCode
	}
	if rec.ExpiredAt(s.now()) {
		return domain.ErrCodeExpired
	}

	if _, err := s.accounts.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return domain.StorageError(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePasswordHash(ctx, emailAddr, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return domain.StorageError(err)
	}

	if err := s.otps.DeleteAll(ctx, emailAddr); err != nil {
		s.logger.Error("consume reset otp failed", zap.Error(err), zap.String("email", emailAddr))
		return domain.StorageError(err)
	}
	return nil
}
