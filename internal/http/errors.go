package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"aquanova-auth/internal/domain"
)

type errorResponse struct {
	status  int
	message string
}

// errorResponses es la unica fuente de texto de error hacia el cliente.
var errorResponses = map[domain.ErrorKind]errorResponse{
	domain.KindAccountExists:        {http.StatusBadRequest, "User already exists with this email"},
	domain.KindAccountNotFound:      {http.StatusNotFound, "No account found with this email"},
	domain.KindInvalidCredentials:   {http.StatusBadRequest, "Invalid credentials"},
	domain.KindInvalidCode:          {http.StatusBadRequest, "Invalid OTP"},
	domain.KindCodeExpired:          {http.StatusBadRequest, "OTP has expired. Please request a new one."},
	domain.KindNotVerified:          {http.StatusBadRequest, "Please verify your email with OTP first"},
	domain.KindDeliveryFailed:       {http.StatusInternalServerError, "Failed to send OTP email. Please try again."},
	domain.KindUnauthenticated:      {http.StatusUnauthorized, "Token is not valid"},
	domain.KindConversationNotFound: {http.StatusNotFound, "Conversation not found"},
	domain.KindStorage:              {http.StatusInternalServerError, "Server error"},
}

// fieldError es un error de validacion por campo, devuelto tal cual al cliente.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldMessages indexa por "Campo.tag"; la entrada "Campo" es el fallback.
var fieldMessages = map[string]fieldError{
	"Email":             {"email", "Please enter a valid email"},
	"Name":              {"name", "Name is required"},
	"Password":          {"password", "Password must be at least 6 characters"},
	"Password.required": {"password", "Password is required"},
	"Password.max":      {"password", "Password must be at most 72 bytes"},
	"OTP":               {"otp", "OTP must be 6 digits"},
	"NewPassword":       {"newPassword", "Password must be at least 6 characters"},
	"NewPassword.max":   {"newPassword", "Password must be at most 72 bytes"},
}

// writeError traduce un error del core a status y mensaje.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindValidation {
		var derr *domain.Error
		msg := "invalid request"
		if errors.As(err, &derr) && derr.Err != nil {
			msg = derr.Err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	resp, ok := errorResponses[kind]
	if !ok {
		resp = errorResponses[domain.KindStorage]
	}
	switch kind {
	case domain.KindStorage, domain.KindDeliveryFailed:
		logger.Error(op+" failed", zap.Error(err), zap.String("kind", string(kind)))
	}
	c.JSON(resp.status, gin.H{"message": resp.message})
}

// writeBindError responde 400 con los errores por campo del validator.
func writeBindError(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid "+op+" request", zap.Error(err))

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describeField(fe))
	}
	c.JSON(http.StatusBadRequest, gin.H{"errors": out})
}

func describeField(fe validator.FieldError) fieldError {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	return fieldError{Field: fe.Field(), Message: "invalid value"}
}
