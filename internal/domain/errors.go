package domain

import "errors"

// ErrorKind es la enumeracion cerrada de fallas del flujo de autenticacion.
// El texto para el cliente se genera solo en la capa HTTP.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindAccountExists      ErrorKind = "account_exists"
	KindAccountNotFound    ErrorKind = "account_not_found"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindInvalidCode        ErrorKind = "invalid_code"
	KindCodeExpired        ErrorKind = "code_expired"
	KindNotVerified        ErrorKind = "not_verified"
	KindDeliveryFailed     ErrorKind = "delivery_failed"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindStorage            ErrorKind = "storage"

	KindConversationNotFound ErrorKind = "conversation_not_found"
)

// Error asocia un ErrorKind con la causa original, si existe.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is compara por Kind, asi errors.Is(err, ErrInvalidCode) funciona con causas envueltas.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAccountExists      = &Error{Kind: KindAccountExists}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrCodeExpired        = &Error{Kind: KindCodeExpired}
	ErrNotVerified        = &Error{Kind: KindNotVerified}
	ErrDeliveryFailed     = &Error{Kind: KindDeliveryFailed}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrStorage            = &Error{Kind: KindStorage}

	ErrConversationNotFound = &Error{Kind: KindConversationNotFound}
)

// StorageError envuelve una falla de la capa de persistencia.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStorage, Err: err}
}

// DeliveryError envuelve una falla del envio de email.
func DeliveryError(err error) error {
	return &Error{Kind: KindDeliveryFailed, Err: err}
}

// ValidationError construye un error de validacion con un mensaje apto para el cliente.
func ValidationError(msg string) error {
	return &Error{Kind: KindValidation, Err: errors.New(msg)}
}

// KindOf clasifica cualquier error; lo desconocido se trata como storage.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}
